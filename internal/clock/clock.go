// Package clock provides the 32-bit millisecond time source consumed by the
// button and interval timer state machines.
//
// The counter wraps back to zero after math.MaxUint32 milliseconds (about 49.7
// days). All elapsed-time math must go through Elapsed so that it stays
// correct across the wrap.
package clock

import (
	"sync"
	"time"
)

// Clock reports monotonic time as a wrapping count of milliseconds.
type Clock interface {
	Millis() uint32
}

// Elapsed returns the milliseconds from since to now using modular uint32
// subtraction, so a now that has wrapped past zero still yields the small
// forward distance.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// System is a Clock backed by the process monotonic clock.
type System struct {
	start  time.Time
	offset uint32
}

// NewSystem creates a System clock that reads zero at construction.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// NewSystemWithOffset creates a System clock that reads offset at
// construction. Useful to exercise the wrap without waiting seven weeks.
func NewSystemWithOffset(offset uint32) *System {
	return &System{start: time.Now(), offset: offset}
}

// Millis returns milliseconds since construction, truncated to 32 bits.
func (s *System) Millis() uint32 {
	return uint32(time.Since(s.start).Milliseconds()) + s.offset
}

// Fake is a manually driven Clock for tests. Safe for concurrent use so a
// test goroutine can advance it while a run loop reads it.
type Fake struct {
	mu  sync.Mutex
	now uint32
}

// NewFake creates a Fake clock reading start.
func NewFake(start uint32) *Fake {
	return &Fake{now: start}
}

// Millis returns the current fake time.
func (f *Fake) Millis() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to an absolute value.
func (f *Fake) Set(ms uint32) {
	f.mu.Lock()
	f.now = ms
	f.mu.Unlock()
}

// Advance moves the clock forward by d milliseconds, wrapping like the real
// counter.
func (f *Fake) Advance(d uint32) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}
