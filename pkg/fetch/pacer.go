package fetch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Pacer enforces a fixed pause after every fetch attempt
type Pacer struct {
	delay  time.Duration
	pauses atomic.Int64
	log    *logrus.Entry
}

// NewPacer creates a Pacer; a delay <= 0 disables sleeping
func NewPacer(delay time.Duration, log *logrus.Entry) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay, log: log}
}

// Delay returns the configured pause
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Pause sleeps for the configured delay.
// Returns ctx.Err() if the context is cancelled before or during the sleep.
func (p *Pacer) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.pauses.Add(1)
	if p.delay == 0 {
		return nil
	}

	p.log.WithField("sleep", p.delay).Debug("Pacing before next fetch")
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pauses returns how many times Pause was entered with a live context
func (p *Pacer) Pauses() int {
	return int(p.pauses.Load())
}
