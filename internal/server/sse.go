package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/interview"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// subscriberBuffer is the number of events queued per slow subscriber
// before further events are dropped for it.
const subscriberBuffer = 32

// Broker fans interview events out to SSE subscribers.
type Broker struct {
	mu   sync.Mutex
	subs map[chan interview.Event]struct{}
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan interview.Event]struct{})}
}

// Publish delivers e to every subscriber without blocking. Pass it to
// interview.WithEventHandler.
func (b *Broker) Publish(e interview.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned func unregisters it.
func (b *Broker) Subscribe() (<-chan interview.Event, func()) {
	ch := make(chan interview.Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// handleEvents streams workflow events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(w, err)
		return
	}

	events, unsubscribe := s.broker.Subscribe()
	defer unsubscribe()

	if err := sse.WriteEvent("session", s.svc.Session()); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.WriteEvent(string(e.Type), e); err != nil {
				s.log.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	}
}
