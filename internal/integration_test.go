package internal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/busylight/internal/console"
	"github.com/sweeney/busylight/internal/gpio"
	"github.com/sweeney/busylight/internal/logic"
	"github.com/sweeney/busylight/internal/mqtt"
	"github.com/sweeney/busylight/internal/status"
)

var (
	rgbOff     = [3]bool{false, false, false}
	rgbRed     = [3]bool{true, false, false}
	rgbGreen   = [3]bool{false, true, false}
	rgbMagenta = [3]bool{true, false, true}
	rgbWhite   = [3]bool{true, true, true}
)

func newTracker(renderer string) *status.Tracker {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, status.Config{
		Renderer:          renderer,
		AvailabilityIndex: logic.DefaultAvailabilityIndex,
		TaskingIndex:      logic.DefaultTaskingIndex,
		OffIndex:          logic.DefaultOffIndex,
	})
	tr.SetClock(func() time.Time { return start.Add(90 * time.Second) })
	return tr
}

// startSession wires a controller and session to r the way main does.
func startSession(t *testing.T, r logic.Renderer, tracker *status.Tracker) *console.Session {
	t.Helper()
	ctl, err := logic.NewController(tracker.Instrument(r), logic.DefaultConfig())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := ctl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return console.NewSession(ctl, tracker, nil)
}

func execAll(t *testing.T, s *console.Session, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if reply := s.Execute(context.Background(), l); reply.Err != nil {
			t.Fatalf("%q: unexpected error: %v", l, reply.Err)
		}
	}
}

// TestIntegrationGPIOFullFlow drives the scenario meet, ooo, available, wfh
// through the GPIO renderer.
func TestIntegrationGPIOFullFlow(t *testing.T) {
	w := gpio.NewFakeWriter(1, 2)
	r := &gpio.Renderer{W: w, Indices: []int{1, 2}}
	tracker := newTracker("gpio")
	s := startSession(t, r, tracker)

	if w.LEDs[1] != rgbGreen || w.LEDs[2] != rgbGreen {
		t.Fatalf("after start: got %v", w.LEDs)
	}

	execAll(t, s, "meet")
	if w.LEDs[2] != rgbWhite {
		t.Errorf("meeting should light every line, got %v", w.LEDs[2])
	}

	execAll(t, s, "ooo")
	if w.LEDs[2] != rgbRed || w.LEDs[1] != rgbRed {
		t.Errorf("ooo should couple availability to busy, got %v", w.LEDs)
	}

	execAll(t, s, "available", "wfh")
	if w.LEDs[1] != rgbMagenta {
		t.Errorf("wfh: got %v", w.LEDs[1])
	}
	if w.LEDs[2] != rgbRed {
		t.Errorf("tasking should be untouched, got %v", w.LEDs[2])
	}

	// start 2, meet 1, ooo 2, available 1, wfh 1
	if len(w.Writes) != 7 {
		t.Errorf("expected 7 writes, got %d", len(w.Writes))
	}

	if err := s.Off(context.Background()); err != nil {
		t.Fatalf("off: %v", err)
	}
	if w.LEDs[1] != rgbOff || w.LEDs[2] != rgbOff {
		t.Errorf("off should clear both LEDs, got %v", w.LEDs)
	}

	snap := tracker.Snapshot()
	if snap.Availability != logic.StateWFH || snap.Tasking != logic.StateOOO {
		t.Errorf("tracker: got %s/%s", snap.Availability, snap.Tasking)
	}
	if snap.Renders != 8 {
		t.Errorf("tracker renders: got %d, want 8", snap.Renders)
	}
}

func TestIntegrationUnknownTokenNoRender(t *testing.T) {
	w := gpio.NewFakeWriter()
	s := startSession(t, &gpio.Renderer{W: w, Indices: []int{1, 2}}, newTracker("gpio"))
	before := len(w.Writes)

	reply := s.Execute(context.Background(), "frobnicate")
	if reply.Err != nil || reply.Output != "" {
		t.Errorf("expected silent no-op, got %+v", reply)
	}
	if len(w.Writes) != before {
		t.Errorf("unknown token rendered: %d writes", len(w.Writes)-before)
	}
	if got := s.Controller().Dump(); got != "availability: available\ntasking: interruptable" {
		t.Errorf("state changed: %q", got)
	}
}

func TestIntegrationAmbiguousTokenIgnored(t *testing.T) {
	w := gpio.NewFakeWriter()
	s := startSession(t, &gpio.Renderer{W: w, Indices: []int{1, 2}}, newTracker("gpio"))
	before := len(w.Writes)

	// "work" is admissible on both channels from the initial states.
	execAll(t, s, "work")
	if len(w.Writes) != before {
		t.Errorf("ambiguous token rendered")
	}

	execAll(t, s, "right:work")
	avail, task := s.Controller().States()
	if avail != logic.StateAvailable || task != logic.StateWork {
		t.Errorf("qualified work: got %s/%s", avail, task)
	}
	if w.LEDs[2] != rgbMagenta {
		t.Errorf("work: got %v", w.LEDs[2])
	}
}

func TestIntegrationMQTTLightPayloads(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	now := time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)
	r := &mqtt.Renderer{P: pub, Now: func() time.Time { return now }}
	s := startSession(t, r, newTracker("mqtt"))

	execAll(t, s, "deploy")

	if len(pub.Lights) != 3 {
		t.Fatalf("expected 3 light commands, got %d", len(pub.Lights))
	}
	expected := `{"light":{"timestamp":"2026-02-02T22:18:12Z","led":2,"fade_ms":1000,"rgb":[255,105,180]}}`
	if got := string(pub.Payloads[2]); got != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", got, expected)
	}
	if topic := mqtt.LightTopic(mqtt.DefaultTopicPrefix, pub.Lights[2].Index); topic != "busylight/led/2/set" {
		t.Errorf("topic: got %s", topic)
	}
}

func TestIntegrationPublishFailureKeepsState(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tracker := newTracker("mqtt")
	s := startSession(t, &mqtt.Renderer{P: pub}, tracker)

	pub.PublishError = errors.New("broker unreachable")
	reply := s.Execute(context.Background(), "ooo")

	if !errors.Is(reply.Err, logic.ErrRenderFailure) {
		t.Fatalf("expected render failure, got %v", reply.Err)
	}
	var coupling *logic.CouplingError
	if !errors.As(reply.Err, &coupling) {
		t.Errorf("expected the coupled busy render to fail too, got %v", reply.Err)
	}

	avail, task := s.Controller().States()
	if avail != logic.StateBusy || task != logic.StateOOO {
		t.Errorf("state must not roll back, got %s/%s", avail, task)
	}

	snap := tracker.Snapshot()
	if snap.RenderFailures != 2 {
		t.Errorf("render failures: got %d, want 2", snap.RenderFailures)
	}
	if !strings.Contains(snap.LastError, "broker unreachable") {
		t.Errorf("last error: got %q", snap.LastError)
	}

	// Recovery: the next command renders normally.
	pub.PublishError = nil
	execAll(t, s, "bored")
	if len(pub.Lights) != 3 {
		t.Errorf("expected initial 2 plus bored, got %d", len(pub.Lights))
	}
}

func TestIntegrationStartupThenShutdown(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tracker := newTracker("mqtt")
	s := startSession(t, &mqtt.Renderer{P: pub}, tracker)

	snap := tracker.Snapshot()
	if err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		t.Fatalf("startup: %v", err)
	}

	execAll(t, s, "meet", "dnd", "frobnicate")

	snap = tracker.Snapshot()
	if err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "EXIT",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "EXIT"),
	}); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(pub.SystemPayloads) != 2 {
		t.Fatalf("expected 2 system payloads, got %d", len(pub.SystemPayloads))
	}

	var start, stop status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &start); err != nil {
		t.Fatalf("startup payload: %v", err)
	}
	if err := json.Unmarshal(pub.SystemPayloads[1], &stop); err != nil {
		t.Fatalf("shutdown payload: %v", err)
	}

	if start.Status.Availability != "available" || start.Status.Tasking != "interruptable" {
		t.Errorf("startup states: %+v", start.Status)
	}
	if stop.Status.Availability != "busy" || stop.Status.Tasking != "meeting" {
		t.Errorf("shutdown states: %+v", stop.Status)
	}
	if stop.Status.Commands != 3 || stop.Status.Ignored != 1 {
		t.Errorf("commands: got %d (%d ignored)", stop.Status.Commands, stop.Status.Ignored)
	}
	if stop.Status.Renders != 4 {
		t.Errorf("renders: got %d, want 4", stop.Status.Renders)
	}
	if stop.Status.Reason != "EXIT" || stop.Status.UptimeSeconds != 90 {
		t.Errorf("shutdown payload: %+v", stop.Status)
	}
	if stop.Status.Config.Renderer != "mqtt" || stop.Status.Config.TaskingIndex != 2 {
		t.Errorf("config: %+v", stop.Status.Config)
	}
}

func TestIntegrationRejectedTriggerReported(t *testing.T) {
	w := gpio.NewFakeWriter()
	s := startSession(t, &gpio.Renderer{W: w, Indices: []int{1, 2}}, newTracker("gpio"))
	before := len(w.Writes)

	reply := s.Execute(context.Background(), "left:available")
	if !errors.Is(reply.Err, logic.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", reply.Err)
	}
	if !strings.HasPrefix(reply.Output, "error: availability: trigger \"available\" not allowed") {
		t.Errorf("unexpected output: %q", reply.Output)
	}
	if len(w.Writes) != before {
		t.Error("rejected trigger rendered")
	}
}
