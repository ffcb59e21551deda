package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is matched by errors for undefined or inadmissible triggers.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrRenderFailure is matched by errors for renders that did not complete.
	ErrRenderFailure = errors.New("render failure")
)

// TransitionError reports a trigger that was rejected. The channel state is unchanged.
type TransitionError struct {
	Channel Channel
	Trigger Trigger
	From    State
	Defined bool // false if the channel has no such trigger at all
}

func (e *TransitionError) Error() string {
	if !e.Defined {
		return fmt.Sprintf("%s: unknown trigger %q", e.Channel, e.Trigger)
	}
	return fmt.Sprintf("%s: trigger %q not allowed from %q", e.Channel, e.Trigger, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// RenderError reports a failed on-entry render. The state change it
// belongs to has already been committed.
type RenderError struct {
	Channel Channel
	State   State
	Index   int
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: render %q on led %d: %v", e.Channel, e.State, e.Index, e.Err)
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRenderFailure
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// CouplingError reports that the cross-channel trigger following a Tasking
// transition failed. The Tasking transition itself stands.
type CouplingError struct {
	Trigger Trigger
	Err     error
}

func (e *CouplingError) Error() string {
	return fmt.Sprintf("coupling %s %q: %v", Availability, e.Trigger, e.Err)
}

func (e *CouplingError) Unwrap() error {
	return e.Err
}
