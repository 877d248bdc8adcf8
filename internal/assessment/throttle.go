package assessment

import (
	"context"
	"time"
)

var sleep = time.Sleep

// Throttle holds the fixed delay applied before each kind of external call.
type Throttle struct {
	Extract   time.Duration
	Generate  time.Duration
	Evaluate  time.Duration
	Summarize time.Duration
}

// DefaultThrottle returns the production pre-call delays.
func DefaultThrottle() Throttle {
	return Throttle{
		Extract:   1000 * time.Millisecond,
		Generate:  2000 * time.Millisecond,
		Evaluate:  1500 * time.Millisecond,
		Summarize: 2500 * time.Millisecond,
	}
}

// NoThrottle disables all pre-call delays.
func NoThrottle() Throttle {
	return Throttle{}
}

func (t Throttle) delay(op Operation) time.Duration {
	switch op {
	case OpExtractContact:
		return t.Extract
	case OpGenerateQuestions:
		return t.Generate
	case OpEvaluateAnswer:
		return t.Evaluate
	case OpGenerateSummary:
		return t.Summarize
	default:
		return 0
	}
}

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	wait := sleep
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
