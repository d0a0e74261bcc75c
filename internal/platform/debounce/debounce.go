// Package debounce implements "last call wins" quiet periods keyed by string.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSuperseded = errors.New("debounce: superseded by a newer call")

// Retention is how long a slot outlives its last quiet period. Keys that see
// no new calls are dropped after it, and latest reports false for them.
const Retention = time.Minute

type slot struct {
	seq  uint64
	stop chan struct{}
	idle time.Time // end of the last quiet period, zero while one is pending
}

type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	seq   uint64
	slots map[string]*slot
	now   func() time.Time
}

func New(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet, slots: make(map[string]*slot), now: time.Now}
}

// Wait blocks for the quiet period. A newer Wait for the same key makes this
// one return ErrSuperseded. The returned func reports whether the call is
// still the latest for key, so results of slow work started after the quiet
// period can be dropped too.
func (d *Debouncer) Wait(ctx context.Context, key string) (func() bool, error) {
	d.mu.Lock()
	d.sweep()
	s, ok := d.slots[key]
	if !ok {
		s = &slot{}
		d.slots[key] = s
	}
	if s.stop != nil {
		close(s.stop)
	}
	d.seq++
	seq := d.seq
	stop := make(chan struct{})
	s.seq, s.stop, s.idle = seq, stop, time.Time{}
	d.mu.Unlock()

	latest := func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		cur, ok := d.slots[key]
		return ok && cur.seq == seq
	}

	done := func() {
		d.mu.Lock()
		if cur, ok := d.slots[key]; ok && cur.seq == seq {
			cur.stop = nil
			cur.idle = d.now()
		}
		d.mu.Unlock()
	}

	if d.quiet <= 0 {
		done()
		return latest, nil
	}

	timer := time.NewTimer(d.quiet)
	defer timer.Stop()
	select {
	case <-timer.C:
		done()
		return latest, nil
	case <-stop:
		return nil, ErrSuperseded
	case <-ctx.Done():
		done()
		return nil, ctx.Err()
	}
}

// Forget drops the state held for key. A pending Wait for key is superseded.
func (d *Debouncer) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.slots[key]; ok {
		if s.stop != nil {
			close(s.stop)
		}
		delete(d.slots, key)
	}
}

// sweep drops slots idle for longer than Retention. d.mu must be held.
func (d *Debouncer) sweep() {
	cutoff := d.now().Add(-Retention)
	for key, s := range d.slots {
		if s.stop == nil && !s.idle.IsZero() && s.idle.Before(cutoff) {
			delete(d.slots, key)
		}
	}
}
