// Package driver runs a command link without a UI: a fixed-rate frame loop
// that advances the link's send timer, optionally moving the pose each frame.
package driver

import (
	"context"
	"fmt"
	"time"
)

const DefaultFrameInterval = 10 * time.Millisecond

// Ticker is the part of link.Link the loop drives.
type Ticker interface {
	Tick(elapsed time.Duration) error
}

// StepFunc runs once per frame before the link is ticked. since is the time
// elapsed from the first frame.
type StepFunc func(since time.Duration)

type Loop struct {
	ticker   Ticker
	interval time.Duration
	step     StepFunc
	frames   uint64
}

type Option func(*Loop)

func WithStep(step StepFunc) Option {
	return func(l *Loop) {
		l.step = step
	}
}

func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func NewLoop(t Ticker, opts ...Option) *Loop {
	l := &Loop{ticker: t, interval: DefaultFrameInterval}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run ticks until ctx is done, returning nil, or until the link reports a
// failure, which is returned.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	start := time.Now()
	last := start
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := l.Frame(now.Sub(start), now.Sub(last)); err != nil {
				return err
			}
			last = now
		}
	}
}

// Frame runs one step and tick. Run calls it from the ticker; tests call it
// directly with synthetic durations.
func (l *Loop) Frame(since time.Duration, elapsed time.Duration) error {
	l.frames++
	if l.step != nil {
		l.step(since)
	}
	if err := l.ticker.Tick(elapsed); err != nil {
		return fmt.Errorf("frame %d: %w", l.frames, err)
	}
	return nil
}

func (l *Loop) Frames() uint64 {
	return l.frames
}
