package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted raw levels.
type FakeReader struct {
	mu sync.Mutex

	// Levels contains scripted raw levels (true = high = released).
	// Each call to Read() consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given levels.
func NewFakeReader(levels []bool) *FakeReader {
	return &FakeReader{Levels: levels}
}

// Read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeReader) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset resets the reader to the beginning of levels.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Closed = false
	f.mu.Unlock()
}

// Script builds a level sequence from runs: each run repeats level n times.
func Script(runs ...Run) []bool {
	var out []bool
	for _, r := range runs {
		for i := 0; i < r.N; i++ {
			out = append(out, r.High)
		}
	}
	return out
}

// Run is a stretch of identical samples.
type Run struct {
	High bool
	N    int
}

// Released returns n samples of an open switch (high).
func Released(n int) Run { return Run{High: true, N: n} }

// Pressed returns n samples of a closed switch (low).
func Pressed(n int) Run { return Run{High: false, N: n} }
