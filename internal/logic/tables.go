package logic

// AvailabilityTable is the transition table of the availability ("left") channel.
// wfh has to pass through available before work/dnd.
var AvailabilityTable = []Transition{
	{Trigger: "break", From: []State{StateWFH, StateBusy}, To: StateAvailable},
	{Trigger: "available", From: []State{StateWFH, StateBusy}, To: StateAvailable},
	{Trigger: "wfh", From: []State{StateAvailable, StateBusy}, To: StateWFH},
	{Trigger: "work", From: []State{StateAvailable}, To: StateBusy},
	{Trigger: "dnd", From: []State{StateAvailable}, To: StateBusy},
	{Trigger: "busy", From: []State{StateAvailable, StateWFH, StateBusy}, To: StateBusy},
}

// TaskingTable is the transition table of the tasking ("right") channel.
var TaskingTable = []Transition{
	{Trigger: "meet", From: []State{StateDeploy, StateOOO, StateWork, StateInterruptable}, To: StateMeeting},
	{Trigger: "deploy", From: []State{StateMeeting, StateOOO, StateWork, StateInterruptable}, To: StateDeploy},
	{Trigger: "out", From: []State{StateMeeting, StateDeploy, StateWork, StateInterruptable}, To: StateOOO},
	{Trigger: "ooo", From: []State{StateMeeting, StateDeploy, StateWork, StateInterruptable}, To: StateOOO},
	{Trigger: "work", From: []State{StateMeeting, StateDeploy, StateOOO, StateInterruptable}, To: StateWork},
	{Trigger: "bored", From: []State{StateMeeting, StateDeploy, StateOOO, StateWork}, To: StateInterruptable},
}

// AvailabilityLooks maps every availability state to its rendering.
var AvailabilityLooks = map[State]Look{
	StateAvailable: {Speed: SpeedSlow, Color: Green},
	StateWFH:       {Speed: SpeedSlow, Color: Magenta},
	StateBusy:      {Speed: SpeedFast, Color: Red},
}

// TaskingLooks maps every tasking state to its rendering.
var TaskingLooks = map[State]Look{
	StateMeeting:       {Speed: SpeedFast, Color: LightGray},
	StateDeploy:        {Speed: SpeedFast, Color: Pink},
	StateWork:          {Speed: SpeedFast, Color: Magenta},
	StateOOO:           {Speed: SpeedSlow, Color: Red},
	StateInterruptable: {Speed: SpeedFast, Color: Green},
}

// Off is rendered on shutdown.
var Off = Look{Speed: SpeedOff, Color: Black}

// couplingTrigger is fired on the availability channel whenever tasking enters couplingState.
const (
	couplingState   = StateOOO
	couplingTrigger = Trigger("busy")
)
