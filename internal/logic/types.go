// Package logic contains the pure state engine for the two indicator channels.
// This package has NO external dependencies (no exec, GPIO, MQTT, or logging).
// All device effects go through the Renderer interface.
package logic

import (
	"context"
	"fmt"
	"strconv"
)

// Color is an 8-bit RGB intensity triple.
type Color struct {
	R, G, B uint8
}

// String formats the color as r,g,b.
func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// Named palette.
var (
	Black     = Color{0, 0, 0}
	Red       = Color{255, 0, 0}
	Green     = Color{0, 255, 0}
	Blue      = Color{0, 0, 255}
	Magenta   = Color{255, 0, 255}
	LightGray = Color{200, 200, 200}
	Pink      = Color{255, 105, 180}
)

// Speed is a fade duration in device milliseconds.
// SpeedSlow and SpeedFast are the named classes; any other value is a raw duration.
type Speed int

const (
	SpeedOff  Speed = 0
	SpeedFast Speed = 1000
	SpeedSlow Speed = 10000
)

// Millis returns the fade duration passed to the renderer.
func (s Speed) Millis() int {
	return int(s)
}

func (s Speed) String() string {
	switch s {
	case SpeedFast:
		return "fast"
	case SpeedSlow:
		return "slow"
	}
	return strconv.Itoa(int(s))
}

// ParseSpeed resolves "slow" or "fast", falling back to a raw millisecond count.
func ParseSpeed(s string) (Speed, error) {
	switch s {
	case "slow":
		return SpeedSlow, nil
	case "fast":
		return SpeedFast, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid speed %q", s)
	}
	return Speed(n), nil
}

// Look is what a state renders as.
type Look struct {
	Speed Speed
	Color Color
}

// Channel identifies one of the two indicator zones.
type Channel string

const (
	Availability Channel = "availability"
	Tasking      Channel = "tasking"
)

// ParseChannel accepts the channel name or its physical side ("left"/"right").
func ParseChannel(s string) (Channel, bool) {
	switch s {
	case "availability", "left":
		return Availability, true
	case "tasking", "right":
		return Tasking, true
	}
	return "", false
}

// State is a channel state name.
type State string

// Availability states.
const (
	StateAvailable State = "available"
	StateWFH       State = "wfh"
	StateBusy      State = "busy"
)

// Tasking states.
const (
	StateMeeting       State = "meeting"
	StateDeploy        State = "deploy"
	StateWork          State = "work"
	StateOOO           State = "ooo"
	StateInterruptable State = "interruptable"
)

// Trigger is an operator action name.
type Trigger string

// Transition moves a channel from any of From to To when Trigger fires.
type Transition struct {
	Trigger Trigger
	From    []State
	To      State
}

func (t Transition) allows(s State) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

// Renderer performs the physical light effect for one LED index.
// Calls are synchronous; a non-nil error means the device did not take the color.
type Renderer interface {
	Render(ctx context.Context, fadeMillis int, c Color, index int) error
}

// RenderFunc adapts a plain function to Renderer.
type RenderFunc func(ctx context.Context, fadeMillis int, c Color, index int) error

// Render calls f.
func (f RenderFunc) Render(ctx context.Context, fadeMillis int, c Color, index int) error {
	return f(ctx, fadeMillis, c, index)
}
