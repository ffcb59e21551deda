// Package status tracks what the light is showing and how rendering has gone.
// It feeds the console "status" command and MQTT lifecycle events.
package status

import (
	"context"
	"time"

	"github.com/sweeney/busylight/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Renderer          string
	AvailabilityIndex int
	TaskingIndex      int
	OffIndex          int
	Broker            string // empty unless renderer is mqtt
}

// Snapshot is a point-in-time view of daemon state.
type Snapshot struct {
	Availability   logic.State
	Tasking        logic.State
	Commands       int
	Ignored        int
	Renders        int
	RenderFailures int
	LastError      string
	MQTT           bool // an MQTT connection is being tracked
	MQTTConnected  bool
	StartTime      time.Time
	Now            time.Time
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state. Like the controller it is driven from
// the single command path and is not safe for concurrent use.
type Tracker struct {
	snap Snapshot
	now  func() time.Time

	// mqttConnected is polled at snapshot time. status does not import
	// internal/mqtt, so the caller passes the publisher's IsConnected.
	mqttConnected func() bool
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the time source used by Snapshot.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// TrackMQTT makes every snapshot report the MQTT connection state.
func (t *Tracker) TrackMQTT(connected func() bool) {
	t.mqttConnected = connected
}

// Update sets both channel states.
func (t *Tracker) Update(availability, tasking logic.State) {
	t.snap.Availability = availability
	t.snap.Tasking = tasking
}

// RecordCommand counts an operator token; ignored tokens are counted separately.
func (t *Tracker) RecordCommand(fired bool) {
	t.snap.Commands++
	if !fired {
		t.snap.Ignored++
	}
}

// RecordRender counts a render attempt and remembers the last failure.
func (t *Tracker) RecordRender(err error) {
	t.snap.Renders++
	if err != nil {
		t.snap.RenderFailures++
		t.snap.LastError = err.Error()
	}
}

// Instrument wraps r so that every render is recorded.
func (t *Tracker) Instrument(r logic.Renderer) logic.Renderer {
	return logic.RenderFunc(func(ctx context.Context, fadeMillis int, c logic.Color, index int) error {
		err := r.Render(ctx, fadeMillis, c, index)
		t.RecordRender(err)
		return err
	})
}

// Snapshot returns a copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	s := t.snap
	s.Now = t.now()
	if t.mqttConnected != nil {
		s.MQTT = true
		s.MQTTConnected = t.mqttConnected()
	}
	return s
}
