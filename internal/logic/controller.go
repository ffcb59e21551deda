package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Default LED indices. Index 0 addresses every LED on the device.
const (
	DefaultAvailabilityIndex = 1
	DefaultTaskingIndex      = 2
	DefaultOffIndex          = 0
)

// Config binds the channels to physical LED indices.
type Config struct {
	AvailabilityIndex int
	TaskingIndex      int
	OffIndex          int
}

// DefaultConfig returns the stock LED layout.
func DefaultConfig() Config {
	return Config{
		AvailabilityIndex: DefaultAvailabilityIndex,
		TaskingIndex:      DefaultTaskingIndex,
		OffIndex:          DefaultOffIndex,
	}
}

// Controller owns both channel machines and the coupling between them.
type Controller struct {
	availability *Machine
	tasking      *Machine
	renderer     Renderer
	offIndex     int
}

// Result describes what Dispatch did with a token.
type Result struct {
	Fired   bool
	Channel Channel
	Trigger Trigger
	State   State
	// Coupled is set when the transition also forced availability to busy.
	Coupled bool
}

func fired(ch Channel, trigger Trigger, state State) Result {
	return Result{
		Fired:   true,
		Channel: ch,
		Trigger: trigger,
		State:   state,
		Coupled: ch == Tasking && state == couplingState,
	}
}

// NewController builds both machines on r. Call Start to render the initial states.
func NewController(r Renderer, cfg Config) (*Controller, error) {
	avail, err := NewMachine(MachineConfig{
		Channel: Availability,
		Index:   cfg.AvailabilityIndex,
		Initial: StateAvailable,
		Table:   AvailabilityTable,
		Looks:   AvailabilityLooks,
	}, r)
	if err != nil {
		return nil, err
	}
	task, err := NewMachine(MachineConfig{
		Channel: Tasking,
		Index:   cfg.TaskingIndex,
		Initial: StateInterruptable,
		Table:   TaskingTable,
		Looks:   TaskingLooks,
	}, r)
	if err != nil {
		return nil, err
	}
	return &Controller{
		availability: avail,
		tasking:      task,
		renderer:     r,
		offIndex:     cfg.OffIndex,
	}, nil
}

// Start enters both initial states, availability first. A render failure on
// one channel does not stop the other from being rendered.
func (c *Controller) Start(ctx context.Context) error {
	return errors.Join(c.availability.Start(ctx), c.tasking.Start(ctx))
}

// Machine returns the machine for ch, or nil.
func (c *Controller) Machine(ch Channel) *Machine {
	switch ch {
	case Availability:
		return c.availability
	case Tasking:
		return c.tasking
	}
	return nil
}

// Machines returns both machines, availability first.
func (c *Controller) Machines() []*Machine {
	return []*Machine{c.availability, c.tasking}
}

// States returns the current state of both channels.
func (c *Controller) States() (availability, tasking State) {
	return c.availability.State(), c.tasking.State()
}

// Fire applies trigger to ch. When tasking enters ooo, busy is then fired on
// availability; a failure there comes back as a *CouplingError joined with
// any render error of the primary transition.
func (c *Controller) Fire(ctx context.Context, ch Channel, trigger Trigger) (State, error) {
	m := c.Machine(ch)
	if m == nil {
		return "", fmt.Errorf("unknown channel %q", ch)
	}

	state, err := m.Fire(ctx, trigger)
	if errors.Is(err, ErrInvalidTransition) {
		return state, err
	}

	if ch == Tasking && state == couplingState {
		if _, cerr := c.availability.Fire(ctx, couplingTrigger); cerr != nil {
			err = errors.Join(err, &CouplingError{Trigger: couplingTrigger, Err: cerr})
		}
	}
	return state, err
}

// Dispatch resolves an operator token and fires it. A bare trigger is fired on
// the one channel that currently admits it; tokens admitted by neither or both
// channels are ignored. "channel:trigger" addresses a channel explicitly.
func (c *Controller) Dispatch(ctx context.Context, token string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, nil
	}

	if name, trig, ok := strings.Cut(token, ":"); ok {
		ch, known := ParseChannel(name)
		if !known {
			return Result{}, nil
		}
		state, err := c.Fire(ctx, ch, Trigger(trig))
		if errors.Is(err, ErrInvalidTransition) {
			return Result{}, err
		}
		return fired(ch, Trigger(trig), state), err
	}

	trigger := Trigger(token)
	var target *Machine
	for _, m := range c.Machines() {
		if !m.Allows(trigger) {
			continue
		}
		if target != nil {
			return Result{}, nil
		}
		target = m
	}
	if target == nil {
		return Result{}, nil
	}

	state, err := c.Fire(ctx, target.Channel(), trigger)
	return fired(target.Channel(), trigger, state), err
}

// Admissible returns the triggers ch accepts right now.
func (c *Controller) Admissible(ch Channel) []Trigger {
	m := c.Machine(ch)
	if m == nil {
		return nil
	}
	return m.Triggers(m.State())
}

// Triggers returns every trigger currently admissible on either channel,
// availability first, without duplicates.
func (c *Controller) Triggers() []Trigger {
	seen := make(map[Trigger]bool)
	var out []Trigger
	for _, m := range c.Machines() {
		for _, t := range m.Triggers(m.State()) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Complete returns the admissible triggers starting with prefix.
func (c *Controller) Complete(prefix string) []string {
	var out []string
	for _, t := range c.Triggers() {
		if strings.HasPrefix(string(t), prefix) {
			out = append(out, string(t))
		}
	}
	return out
}

// Dump formats both channel states, one per line.
func (c *Controller) Dump() string {
	return fmt.Sprintf("%s: %s\n%s: %s", Availability, c.availability.State(), Tasking, c.tasking.State())
}

// Off blanks the whole device. It is the last render before exit.
func (c *Controller) Off(ctx context.Context) error {
	if err := c.renderer.Render(ctx, Off.Speed.Millis(), Off.Color, c.offIndex); err != nil {
		return fmt.Errorf("render off on led %d: %w: %w", c.offIndex, ErrRenderFailure, err)
	}
	return nil
}
