// Package ratelimit bounds concurrent outbound sends and spaces them out.
//
// A plain counting semaphore alone allows bursty back-to-back sends when
// workers race to grab a freed slot; the release-timestamp gate on Acquire
// closes that gap. The timestamp is read and written under one mutex so two
// workers can never both observe "enough time has passed".
package ratelimit

import (
	"context"
	"time"
)

type Limiter struct {
	slots   chan struct{}
	spacing time.Duration

	// lastRelease is guarded by gate (a 1-deep channel used as a mutex so
	// the wait itself stays ctx-cancellable).
	gate        chan struct{}
	lastRelease time.Time
}

// New creates a limiter allowing maxConcurrent outstanding acquisitions with
// at least spacing between successive releases.
func New(maxConcurrent int, spacing time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	l := &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		spacing: spacing,
		gate:    make(chan struct{}, 1),
	}
	for i := 0; i < maxConcurrent; i++ {
		l.slots <- struct{}{}
	}
	l.gate <- struct{}{}
	return l
}

// Acquire blocks until a slot is free AND at least the configured spacing has
// elapsed since the last release, then occupies the slot.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.slots:
	}

	select {
	case <-ctx.Done():
		// Give the slot back; the caller never held it.
		l.slots <- struct{}{}
		return ctx.Err()
	case <-l.gate:
	}

	// Hold the gate across the wait: racing acquirers serialize here, so a
	// freed slot cannot be grabbed back-to-back under the spacing window.
	if wait := l.spacing - time.Since(l.lastRelease); wait > 0 {
		tmr := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			l.gate <- struct{}{}
			l.slots <- struct{}{}
			return ctx.Err()
		case <-tmr.C:
		}
	}
	l.gate <- struct{}{}
	return nil
}

// Release records the release timestamp, then frees the slot.
func (l *Limiter) Release() {
	<-l.gate
	l.lastRelease = time.Now()
	l.gate <- struct{}{}

	select {
	case l.slots <- struct{}{}:
	default:
		// Release without a matching Acquire; ignore.
	}
}
