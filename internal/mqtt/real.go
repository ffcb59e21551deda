package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/busylight/internal/logger"
)

// DefaultBufferSize is how many messages are kept while the broker is unreachable.
const DefaultBufferSize = 64

// Config configures a RealPublisher.
type Config struct {
	Broker      string
	ClientID    string // a random suffix is appended
	TopicPrefix string
	BufferSize  int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	prefix string
	log    *logger.Logger

	// mu orders the online check, buffering and enqueueing of every publish
	// against the drain in onConnect.
	mu        sync.Mutex
	buf       *ringBuffer
	online    bool
	connected bool // set after the first successful connect
}

func newPublisher(prefix string, bufferSize int, log *logger.Logger) *RealPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RealPublisher{prefix: prefix, log: log, buf: newRingBuffer(bufferSize)}
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher keeps retrying in the
// background and buffers until it is.
func NewRealPublisher(cfg Config, log *logger.Logger) (*RealPublisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "busylight"
	}
	p := newPublisher(cfg.TopicPrefix, cfg.BufferSize, log)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID+"-"+uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(SystemTopic(p.prefix), will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warnw("mqtt broker not reachable yet, buffering", "broker", cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect replays the buffer before any new message can be enqueued, so a
// retained light command never lands behind an older one.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reconnect := p.connected
	p.connected = true
	pending, dropped := p.buf.drain()

	if reconnect {
		p.log.Infow("mqtt reconnected", "replay", len(pending), "dropped", dropped)
		if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err == nil {
			c.Publish(SystemTopic(p.prefix), 1, false, payload)
		}
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	p.online = true
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
	p.log.Warnw("mqtt connection lost", "err", err)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.online {
		firstDrop := p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		if firstDrop {
			p.log.Warnw("mqtt buffer full, dropping oldest", "capacity", p.buf.capacity())
		}
		return nil
	}
	token := p.client.Publish(topic, qos, retained, payload)
	p.mu.Unlock()

	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishLight sends a retained light command so a restarting bridge picks up the last color.
func (p *RealPublisher) PublishLight(cmd LightCommand) error {
	payload, err := FormatPayload(cmd)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(LightTopic(p.prefix, cmd.Index), 1, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(SystemTopic(p.prefix), 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
