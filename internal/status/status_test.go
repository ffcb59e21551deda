package status

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/busylight/internal/logic"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	tr := NewTracker(testStart, Config{Renderer: "blink1", AvailabilityIndex: 1, TaskingIndex: 2})
	tr.SetClock(func() time.Time { return testStart.Add(90 * time.Second) })
	return tr
}

func TestNewTracker(t *testing.T) {
	tr := newTestTracker()
	snap := tr.Snapshot()

	if !snap.StartTime.Equal(testStart) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, testStart)
	}
	if snap.Config.Renderer != "blink1" {
		t.Errorf("Config.Renderer: got %q", snap.Config.Renderer)
	}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v", snap.Uptime())
	}
	if snap.Renders != 0 || snap.Commands != 0 {
		t.Errorf("expected zero counters, got %+v", snap)
	}
}

func TestRecordCommand(t *testing.T) {
	tr := newTestTracker()
	tr.RecordCommand(true)
	tr.RecordCommand(false)
	tr.RecordCommand(false)

	snap := tr.Snapshot()
	if snap.Commands != 3 || snap.Ignored != 2 {
		t.Errorf("got commands=%d ignored=%d", snap.Commands, snap.Ignored)
	}
}

func TestInstrument(t *testing.T) {
	tr := newTestTracker()
	fail := errors.New("device unplugged")
	var calls int
	r := tr.Instrument(logic.RenderFunc(func(_ context.Context, _ int, _ logic.Color, index int) error {
		calls++
		if index == 2 {
			return fail
		}
		return nil
	}))

	if err := r.Render(context.Background(), 1000, logic.Red, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Render(context.Background(), 1000, logic.Red, 2); !errors.Is(err, fail) {
		t.Fatalf("expected error to pass through, got %v", err)
	}

	snap := tr.Snapshot()
	if calls != 2 || snap.Renders != 2 || snap.RenderFailures != 1 {
		t.Errorf("calls=%d renders=%d failures=%d", calls, snap.Renders, snap.RenderFailures)
	}
	if snap.LastError != "device unplugged" {
		t.Errorf("LastError: got %q", snap.LastError)
	}
}

func TestFormatJSON(t *testing.T) {
	tr := newTestTracker()
	tr.Update(logic.StateBusy, logic.StateOOO)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Availability != "busy" || sj.Status.Tasking != "ooo" {
		t.Errorf("states: got %s/%s", sj.Status.Availability, sj.Status.Tasking)
	}
	if sj.Status.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds: got %d", sj.Status.UptimeSeconds)
	}
	if sj.Status.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("StartTime: got %s", sj.Status.StartTime)
	}
	if sj.Status.Event != "" {
		t.Errorf("plain status should carry no event, got %q", sj.Status.Event)
	}
	if sj.Status.Config.AvailabilityIndex != 1 || sj.Status.Config.TaskingIndex != 2 {
		t.Errorf("unexpected config: %+v", sj.Status.Config)
	}
}

func TestFormatJSONUnknownStates(t *testing.T) {
	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(newTestTracker().Snapshot()), &sj); err != nil {
		t.Fatal(err)
	}
	if sj.Status.Availability != "UNKNOWN" || sj.Status.Tasking != "UNKNOWN" {
		t.Errorf("got %s/%s", sj.Status.Availability, sj.Status.Tasking)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := newTestTracker()
	tr.Update(logic.StateAvailable, logic.StateInterruptable)

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("event payload should be compact")
	}

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", sj.Status.Event, sj.Status.Reason)
	}
}

func TestFormatText(t *testing.T) {
	tr := newTestTracker()
	tr.Update(logic.StateWFH, logic.StateWork)
	tr.RecordRender(errors.New("timeout"))

	out := FormatText(tr.Snapshot())
	for _, want := range []string{
		"availability: wfh (led 1)",
		"tasking: work (led 2)",
		"renderer: blink1",
		"uptime: 1m30s",
		"renders: 1 (1 failed)",
		"last error: timeout",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTrackMQTT(t *testing.T) {
	tr := newTestTracker()
	if sj := FormatJSON(tr.Snapshot()); strings.Contains(string(sj), `"mqtt"`) {
		t.Errorf("untracked connection should be omitted:\n%s", sj)
	}
	if out := FormatText(tr.Snapshot()); strings.Contains(out, "mqtt:") {
		t.Errorf("untracked connection should be omitted:\n%s", out)
	}

	connected := false
	tr.TrackMQTT(func() bool { return connected })
	tr.snap.Config.Broker = "tcp://broker:1883"

	if out := FormatText(tr.Snapshot()); !strings.Contains(out, "mqtt: disconnected (tcp://broker:1883)") {
		t.Errorf("missing disconnected line in:\n%s", out)
	}

	connected = true
	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.MQTT == nil || !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("mqtt: got %+v", sj.Status.MQTT)
	}
}
