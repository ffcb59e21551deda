package blink1

import (
	"context"

	"github.com/sweeney/busylight/internal/logic"
)

// Call is one recorded render.
type Call struct {
	FadeMillis int
	Color      logic.Color
	Index      int
}

// FakeRenderer records renders for test assertions.
type FakeRenderer struct {
	// Calls contains every render in order, including failed ones.
	Calls []Call

	// RenderError, if set, will be returned by Render.
	RenderError error

	// FailIndex, if non-nil, restricts RenderError to renders on these indices.
	FailIndex map[int]bool
}

// NewFakeRenderer creates a FakeRenderer for testing.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{}
}

// Render records the call.
func (f *FakeRenderer) Render(_ context.Context, fadeMillis int, c logic.Color, index int) error {
	f.Calls = append(f.Calls, Call{FadeMillis: fadeMillis, Color: c, Index: index})
	if f.RenderError != nil && (f.FailIndex == nil || f.FailIndex[index]) {
		return f.RenderError
	}
	return nil
}

// Last returns the most recent call.
func (f *FakeRenderer) Last() (Call, bool) {
	if len(f.Calls) == 0 {
		return Call{}, false
	}
	return f.Calls[len(f.Calls)-1], true
}

// Reset clears recorded calls and errors.
func (f *FakeRenderer) Reset() {
	f.Calls = nil
	f.RenderError = nil
	f.FailIndex = nil
}
