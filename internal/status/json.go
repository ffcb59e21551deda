package status

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string      `json:"event,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Availability   string      `json:"availability"`
	Tasking        string      `json:"tasking"`
	Commands       int         `json:"commands"`
	Ignored        int         `json:"ignored"`
	Renders        int         `json:"renders"`
	RenderFailures int         `json:"render_failures"`
	LastError      string      `json:"last_error,omitempty"`
	MQTT           *MQTTStatus `json:"mqtt,omitempty"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	StartTime      string      `json:"start_time"`
	Timestamp      string      `json:"timestamp"`
	Config         ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Renderer          string `json:"renderer"`
	AvailabilityIndex int    `json:"availability_led"`
	TaskingIndex      int    `json:"tasking_led"`
	OffIndex          int    `json:"off_led"`
	Broker            string `json:"broker,omitempty"`
}

func stateOrUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	var mq *MQTTStatus
	if snap.MQTT {
		mq = &MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker}
	}
	return StatusInner{
		Availability:   stateOrUnknown(string(snap.Availability)),
		Tasking:        stateOrUnknown(string(snap.Tasking)),
		Commands:       snap.Commands,
		Ignored:        snap.Ignored,
		Renders:        snap.Renders,
		RenderFailures: snap.RenderFailures,
		LastError:      snap.LastError,
		MQTT:           mq,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			Renderer:          snap.Config.Renderer,
			AvailabilityIndex: snap.Config.AvailabilityIndex,
			TaskingIndex:      snap.Config.TaskingIndex,
			OffIndex:          snap.Config.OffIndex,
			Broker:            snap.Config.Broker,
		},
	}
}

// FormatJSON returns the indented JSON status (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatText returns a short human-readable status block.
func FormatText(snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "availability: %s (led %d)\n", stateOrUnknown(string(snap.Availability)), snap.Config.AvailabilityIndex)
	fmt.Fprintf(&b, "tasking: %s (led %d)\n", stateOrUnknown(string(snap.Tasking)), snap.Config.TaskingIndex)
	fmt.Fprintf(&b, "renderer: %s\n", snap.Config.Renderer)
	if snap.MQTT {
		state := "disconnected"
		if snap.MQTTConnected {
			state = "connected"
		}
		fmt.Fprintf(&b, "mqtt: %s (%s)\n", state, snap.Config.Broker)
	}
	fmt.Fprintf(&b, "uptime: %s\n", snap.Uptime().Truncate(time.Second))
	fmt.Fprintf(&b, "commands: %d (%d ignored)\n", snap.Commands, snap.Ignored)
	fmt.Fprintf(&b, "renders: %d (%d failed)", snap.Renders, snap.RenderFailures)
	if snap.LastError != "" {
		fmt.Fprintf(&b, "\nlast error: %s", snap.LastError)
	}
	return b.String()
}
