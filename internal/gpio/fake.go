package gpio

import "fmt"

// FakeWriter is a test double that records LED writes.
type FakeWriter struct {
	// Writes contains every write in order.
	Writes []Write

	// LEDs holds the last value written per index.
	LEDs map[int][3]bool

	// Known restricts valid indices; nil accepts any index.
	Known map[int]bool

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// Write is a single recorded LED write.
type Write struct {
	Index int
	RGB   [3]bool
}

// NewFakeWriter creates a FakeWriter accepting the given indices.
func NewFakeWriter(indices ...int) *FakeWriter {
	f := &FakeWriter{LEDs: make(map[int][3]bool)}
	if len(indices) > 0 {
		f.Known = make(map[int]bool, len(indices))
		for _, i := range indices {
			f.Known[i] = true
		}
	}
	return f
}

// Write records the write.
func (f *FakeWriter) Write(index int, rgb [3]bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if f.Known != nil && !f.Known[index] {
		return fmt.Errorf("no led at index %d", index)
	}
	f.Writes = append(f.Writes, Write{Index: index, RGB: rgb})
	f.LEDs[index] = rgb
	return nil
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.LEDs = make(map[int][3]bool)
	f.Closed = false
}
