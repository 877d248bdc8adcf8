// Package timer implements the per-question countdown that drives automatic
// answer submission.
package timer

import (
	"sync"
	"time"
)

// Ticker delivers one value per interval until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Countdown counts down whole seconds for the current question and calls
// onTimeout exactly once when it reaches zero. Each Reset binds a new
// question and returns its sequence number; the callback receives that
// number so stale timeouts can be told apart.
type Countdown struct {
	onTimeout func(seq uint64)
	onTick    func(remaining int)
	newTicker func(time.Duration) Ticker

	mu        sync.Mutex
	remaining int
	seq       uint64
	gen       uint64
	paused    bool
	expired   bool
	stopped   bool
	cancel    chan struct{}
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithTickerFactory replaces the one-second ticker source.
func WithTickerFactory(f func(time.Duration) Ticker) Option {
	return func(c *Countdown) { c.newTicker = f }
}

// WithOnTick registers a callback invoked after every decrement.
func WithOnTick(f func(remaining int)) Option {
	return func(c *Countdown) { c.onTick = f }
}

// New creates a stopped countdown.
func New(onTimeout func(seq uint64), opts ...Option) *Countdown {
	c := &Countdown{
		onTimeout: onTimeout,
		newTicker: NewTicker,
		stopped:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset binds a new question with limit seconds and starts ticking unless paused.
func (c *Countdown) Reset(limit int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLoopLocked()
	if limit < 0 {
		limit = 0
	}
	c.remaining = limit
	c.seq++
	c.expired = false
	c.stopped = false
	if !c.paused {
		c.startLoopLocked()
	}
	return c.seq
}

// Tick advances the countdown by one second.
func (c *Countdown) Tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

func (c *Countdown) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.stopped || c.paused || c.expired || c.remaining <= 0 {
		c.mu.Unlock()
		return
	}
	c.remaining--
	remaining := c.remaining
	seq := c.seq
	fire := remaining == 0
	if fire {
		c.expired = true
		c.stopLoopLocked()
	}
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(remaining)
	}
	if fire && c.onTimeout != nil {
		c.onTimeout(seq)
	}
}

// Pause stops ticking and keeps the remaining time.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.stopLoopLocked()
}

// Resume restarts ticking from the remaining time.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	if !c.stopped && !c.expired && c.remaining > 0 {
		c.startLoopLocked()
	}
}

// Stop halts the countdown until the next Reset.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.stopLoopLocked()
}

// Remaining returns the seconds left on the current question.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Seq returns the sequence number of the current question.
func (c *Countdown) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Paused reports whether the countdown is paused.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Expired reports whether the current question ran out of time.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *Countdown) startLoopLocked() {
	c.gen++
	cancel := make(chan struct{})
	c.cancel = cancel
	go c.run(c.newTicker(time.Second), cancel, c.gen)
}

// stopLoopLocked signals the running loop, if any, and invalidates its ticks.
func (c *Countdown) stopLoopLocked() {
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
	c.gen++
}

func (c *Countdown) run(t Ticker, cancel <-chan struct{}, gen uint64) {
	defer t.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-t.C():
			c.tick(gen)
		}
	}
}
