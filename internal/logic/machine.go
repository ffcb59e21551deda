package logic

import (
	"context"
	"fmt"
)

// MachineConfig describes one channel.
type MachineConfig struct {
	Channel Channel
	Index   int // physical LED index
	Initial State
	Table   []Transition
	Looks   map[State]Look
}

// Machine is the state machine of a single channel.
// Not safe for concurrent use.
type Machine struct {
	channel  Channel
	index    int
	initial  State
	state    State
	table    []Transition
	triggers map[Trigger]Transition
	looks    map[State]Look
	renderer Renderer
}

// NewMachine validates cfg and returns a machine sitting in cfg.Initial.
// Nothing is rendered until Start is called.
func NewMachine(cfg MachineConfig, r Renderer) (*Machine, error) {
	if r == nil {
		return nil, fmt.Errorf("%s: nil renderer", cfg.Channel)
	}
	if _, ok := cfg.Looks[cfg.Initial]; !ok {
		return nil, fmt.Errorf("%s: initial state %q has no look", cfg.Channel, cfg.Initial)
	}

	triggers := make(map[Trigger]Transition, len(cfg.Table))
	for _, t := range cfg.Table {
		if _, dup := triggers[t.Trigger]; dup {
			return nil, fmt.Errorf("%s: duplicate trigger %q", cfg.Channel, t.Trigger)
		}
		if _, ok := cfg.Looks[t.To]; !ok {
			return nil, fmt.Errorf("%s: state %q has no look", cfg.Channel, t.To)
		}
		for _, f := range t.From {
			if _, ok := cfg.Looks[f]; !ok {
				return nil, fmt.Errorf("%s: source state %q of %q has no look", cfg.Channel, f, t.Trigger)
			}
		}
		triggers[t.Trigger] = t
	}

	return &Machine{
		channel:  cfg.Channel,
		index:    cfg.Index,
		initial:  cfg.Initial,
		state:    cfg.Initial,
		table:    cfg.Table,
		triggers: triggers,
		looks:    cfg.Looks,
		renderer: r,
	}, nil
}

// Start renders the initial state.
func (m *Machine) Start(ctx context.Context) error {
	m.state = m.initial
	return m.enter(ctx)
}

// Channel returns the channel this machine drives.
func (m *Machine) Channel() Channel {
	return m.channel
}

// Index returns the physical LED index.
func (m *Machine) Index() int {
	return m.index
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Look returns the rendering of s and whether s belongs to this channel.
func (m *Machine) Look(s State) (Look, bool) {
	l, ok := m.looks[s]
	return l, ok
}

// Table returns the transition table in declaration order.
func (m *Machine) Table() []Transition {
	out := make([]Transition, len(m.table))
	copy(out, m.table)
	return out
}

// Triggers returns the triggers admissible from s, in table order.
func (m *Machine) Triggers(s State) []Trigger {
	var out []Trigger
	for _, t := range m.table {
		if t.allows(s) {
			out = append(out, t.Trigger)
		}
	}
	return out
}

// Allows reports whether trigger is admissible from the current state.
func (m *Machine) Allows(trigger Trigger) bool {
	t, ok := m.triggers[trigger]
	return ok && t.allows(m.state)
}

// Fire applies trigger. On a rejected trigger the state is untouched and a
// *TransitionError is returned. Otherwise the destination is committed and
// rendered; a render failure returns the new state with a *RenderError.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) (State, error) {
	t, ok := m.triggers[trigger]
	if !ok || !t.allows(m.state) {
		return m.state, &TransitionError{Channel: m.channel, Trigger: trigger, From: m.state, Defined: ok}
	}

	m.state = t.To
	return m.state, m.enter(ctx)
}

// enter runs the on-entry action of the current state: exactly one render.
func (m *Machine) enter(ctx context.Context) error {
	look := m.looks[m.state]
	if err := m.renderer.Render(ctx, look.Speed.Millis(), look.Color, m.index); err != nil {
		return &RenderError{Channel: m.channel, State: m.state, Index: m.index, Err: err}
	}
	return nil
}
