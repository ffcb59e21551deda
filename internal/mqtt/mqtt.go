// Package mqtt publishes light commands and lifecycle events, with abstraction for testing.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/busylight/internal/logic"
)

// DefaultTopicPrefix is the root of every topic.
const DefaultTopicPrefix = "busylight"

// LightTopic is the topic a light bridge subscribes to for LED index.
func LightTopic(prefix string, index int) string {
	return fmt.Sprintf("%s/led/%d/set", prefix, index)
}

// SystemTopic is the topic for system lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes to MQTT.
type Publisher interface {
	// PublishLight sends a light command to the broker.
	PublishLight(cmd LightCommand) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// LightCommand asks the device behind Index to fade to Color.
type LightCommand struct {
	Timestamp  time.Time
	Index      int
	FadeMillis int
	Color      logic.Color
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, reconnect).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "EXIT", "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a light command.
type Payload struct {
	Light LightPayload `json:"light"`
}

// LightPayload contains the light command details.
type LightPayload struct {
	Timestamp string `json:"timestamp"`
	LED       int    `json:"led"`
	FadeMs    int    `json:"fade_ms"`
	RGB       [3]int `json:"rgb"`
}

// FormatPayload creates the JSON payload for a light command.
func FormatPayload(cmd LightCommand) ([]byte, error) {
	payload := Payload{
		Light: LightPayload{
			Timestamp: cmd.Timestamp.UTC().Format(time.RFC3339),
			LED:       cmd.Index,
			FadeMs:    cmd.FadeMillis,
			RGB:       [3]int{int(cmd.Color.R), int(cmd.Color.G), int(cmd.Color.B)},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for simple system events
// (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Renderer turns renders into light commands on p.
type Renderer struct {
	P   Publisher
	Now func() time.Time
}

// Render publishes the light command. A publish error is a render failure.
func (r *Renderer) Render(_ context.Context, fadeMillis int, c logic.Color, index int) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.P.PublishLight(LightCommand{
		Timestamp:  now(),
		Index:      index,
		FadeMillis: fadeMillis,
		Color:      c,
	})
}
