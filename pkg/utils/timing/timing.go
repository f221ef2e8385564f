// Package timing accumulates per-operation durations of a single request and
// renders them as a Server-Timing header value.
package timing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type entry struct {
	name     string
	desc     string
	duration time.Duration
	marker   bool
	failed   bool
}

// Timing is safe for concurrent use.
type Timing struct {
	mu      sync.Mutex
	start   time.Time
	entries []entry
	now     func() time.Time
}

func New() *Timing {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Timing {
	return &Timing{start: now(), now: now}
}

// Measure runs fn and records its duration under name.
func (t *Timing) Measure(name, desc string, fn func() error) error {
	if t == nil {
		return fn()
	}
	started := t.now()
	err := fn()
	t.add(entry{name: name, desc: desc, duration: t.now().Sub(started), failed: err != nil})
	return err
}

// Add records a duration measured elsewhere.
func (t *Timing) Add(name, desc string, d time.Duration) {
	if t == nil {
		return
	}
	t.add(entry{name: name, desc: desc, duration: d})
}

// CacheStatus records a zero-duration cache hit/miss marker.
func (t *Timing) CacheStatus(name string, hit bool) {
	if t == nil {
		return
	}
	e := entry{name: name + "-miss", desc: "Cache miss", marker: true}
	if hit {
		e = entry{name: name + "-hit", desc: "Cache hit", marker: true}
	}
	t.add(e)
}

func (t *Timing) add(e entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Total returns the elapsed time since the Timing was created.
func (t *Timing) Total() time.Duration {
	return t.now().Sub(t.start)
}

// Header renders the Server-Timing header value.
func (t *Timing) Header() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := make([]string, 0, len(t.entries)+1)
	for _, e := range t.entries {
		if e.marker {
			parts = append(parts, fmt.Sprintf(`%s;desc="%s"`, e.name, e.desc))
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s;dur=%.2f;desc="%s"`, e.name, ms(e.duration), e.desc))
	}
	parts = append(parts, fmt.Sprintf("total;dur=%.2f", ms(t.Total())))
	return strings.Join(parts, ", ")
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type ctxKey struct{}

// With stores t in ctx.
func With(ctx context.Context, t *Timing) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// From returns the Timing stored in ctx. A nil *Timing is returned when absent;
// all methods except Header and Total are nil-safe.
func From(ctx context.Context) *Timing {
	t, _ := ctx.Value(ctxKey{}).(*Timing)
	return t
}
