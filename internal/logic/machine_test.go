package logic

import (
	"context"
	"testing"
)

func TestNewMachineValidation(t *testing.T) {
	looks := map[State]Look{"a": {Speed: SpeedFast, Color: Red}, "b": {Speed: SpeedSlow, Color: Blue}}

	tests := []struct {
		name string
		cfg  MachineConfig
		r    Renderer
	}{
		{"nil renderer", MachineConfig{Initial: "a", Looks: looks}, nil},
		{"initial without look", MachineConfig{Initial: "z", Looks: looks}, &recorder{}},
		{"destination without look", MachineConfig{Initial: "a", Looks: looks, Table: []Transition{
			{Trigger: "go", From: []State{"a"}, To: "z"},
		}}, &recorder{}},
		{"source without look", MachineConfig{Initial: "a", Looks: looks, Table: []Transition{
			{Trigger: "go", From: []State{"z"}, To: "b"},
		}}, &recorder{}},
		{"duplicate trigger", MachineConfig{Initial: "a", Looks: looks, Table: []Transition{
			{Trigger: "go", From: []State{"a"}, To: "b"},
			{Trigger: "go", From: []State{"b"}, To: "a"},
		}}, &recorder{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMachine(tt.cfg, tt.r); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEveryStateHasALook(t *testing.T) {
	for _, set := range []struct {
		table []Transition
		looks map[State]Look
	}{
		{AvailabilityTable, AvailabilityLooks},
		{TaskingTable, TaskingLooks},
	} {
		for _, tr := range set.table {
			if _, ok := set.looks[tr.To]; !ok {
				t.Errorf("%s: destination %s has no look", tr.Trigger, tr.To)
			}
		}
	}
}

func TestWFHMustPassThroughAvailable(t *testing.T) {
	m, err := NewMachine(MachineConfig{
		Channel: Availability, Index: 1, Initial: StateWFH,
		Table: AvailabilityTable, Looks: AvailabilityLooks,
	}, &recorder{})
	if err != nil {
		t.Fatal(err)
	}
	for _, trig := range []Trigger{"work", "dnd", "wfh"} {
		if m.Allows(trig) {
			t.Errorf("%s should not be admissible from wfh", trig)
		}
	}
	if _, err := m.Fire(context.Background(), "work"); err == nil {
		t.Error("expected work from wfh to fail")
	}
}

func TestParseSpeed(t *testing.T) {
	tests := []struct {
		in      string
		want    Speed
		wantErr bool
	}{
		{"slow", SpeedSlow, false},
		{"fast", SpeedFast, false},
		{"250", Speed(250), false},
		{"0", SpeedOff, false},
		{"-1", 0, true},
		{"medium", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSpeed(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSpeed(%q): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSpeed(%q): got %d, want %d", tt.in, got, tt.want)
		}
	}
	if SpeedSlow.Millis() != 10000 || SpeedFast.Millis() != 1000 {
		t.Error("unexpected speed resolution")
	}
	if SpeedSlow.String() != "slow" || Speed(42).String() != "42" {
		t.Error("unexpected speed names")
	}
}

func TestParseChannel(t *testing.T) {
	for in, want := range map[string]Channel{
		"left": Availability, "availability": Availability,
		"right": Tasking, "tasking": Tasking,
	} {
		got, ok := ParseChannel(in)
		if !ok || got != want {
			t.Errorf("ParseChannel(%q): got %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseChannel("middle"); ok {
		t.Error("middle is not a channel")
	}
}
