// Package console is the operator front end: it turns typed lines into
// controller calls and formats the answers.
package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ryanuber/columnize"

	"github.com/sweeney/busylight/internal/logger"
	"github.com/sweeney/busylight/internal/logic"
	"github.com/sweeney/busylight/internal/status"
)

// Built-in commands. Anything else is treated as a trigger.
const (
	CmdState           = "state"
	CmdShowTransitions = "showtransitions"
	CmdStatus          = "status"
	CmdHelp            = "help"
)

// quitCommands end the session; the caller then renders off.
var quitCommands = map[string]bool{"off": true, "exit": true, "quit": true, "EOF": true}

// Reply is the outcome of one line.
type Reply struct {
	Output string
	Quit   bool
	Err    error
}

// Session executes operator lines against a controller. Execute and Off
// are serialized, so a line still running when the session is shut down
// finishes before the off render.
type Session struct {
	ctl     *logic.Controller
	tracker *status.Tracker
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession creates a session. tracker may be nil.
func NewSession(ctl *logic.Controller, tracker *status.Tracker, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	s := &Session{ctl: ctl, tracker: tracker, log: log}
	s.sync()
	return s
}

// Controller returns the controller driven by the session.
func (s *Session) Controller() *logic.Controller {
	return s.ctl
}

func (s *Session) sync() {
	if s.tracker != nil {
		s.tracker.Update(s.ctl.States())
	}
}

// Off turns the light off. Lines executed afterwards only report Quit.
func (s *Session) Off(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.ctl.Off(ctx)
}

// Execute runs a single line to completion.
func (s *Session) Execute(ctx context.Context, line string) Reply {
	token := strings.TrimSpace(line)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Reply{Quit: true}
	}

	switch {
	case token == "":
		return Reply{}
	case quitCommands[token]:
		return Reply{Quit: true}
	case token == CmdState:
		return Reply{Output: s.ctl.Dump()}
	case token == CmdShowTransitions:
		return Reply{Output: Admissible(s.ctl)}
	case token == CmdStatus:
		if s.tracker == nil {
			return Reply{Output: s.ctl.Dump()}
		}
		return Reply{Output: status.FormatText(s.tracker.Snapshot())}
	case token == CmdHelp || token == "?":
		return Reply{Output: s.help()}
	}

	res, err := s.ctl.Dispatch(ctx, token)
	if s.tracker != nil {
		s.tracker.RecordCommand(res.Fired)
	}
	s.sync()

	if res.Fired {
		avail, task := s.ctl.States()
		s.log.Debugw("fired", "channel", res.Channel, "trigger", res.Trigger, "state", res.State,
			"availability", avail, "tasking", task)
		if res.Coupled {
			s.log.Debugw("coupled", "tasking", res.State, "availability", avail)
		}
	} else if err == nil {
		s.log.Debugw("ignored token", "token", token)
	}

	if err != nil {
		switch {
		case errors.Is(err, logic.ErrInvalidTransition):
			s.log.Infow("rejected", "token", token, "err", err)
		default:
			s.log.Warnw("render failed", "token", token, "err", err)
		}
		return Reply{Output: "error: " + err.Error(), Err: err}
	}
	return Reply{}
}

// Complete returns the admissible triggers and built-in commands starting with prefix.
func (s *Session) Complete(prefix string) []string {
	s.mu.Lock()
	out := s.ctl.Complete(prefix)
	s.mu.Unlock()
	for _, c := range Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Commands lists the built-in commands, sorted.
func Commands() []string {
	cmds := []string{CmdState, CmdShowTransitions, CmdStatus, CmdHelp}
	for c := range quitCommands {
		if c != "EOF" {
			cmds = append(cmds, c)
		}
	}
	sort.Strings(cmds)
	return cmds
}

func (s *Session) help() string {
	var triggers []string
	for _, t := range s.ctl.Triggers() {
		triggers = append(triggers, string(t))
	}
	return fmt.Sprintf("triggers: %s\ncommands: %s\nprefix a trigger with left: or right: to pick a channel",
		strings.Join(triggers, " "), strings.Join(Commands(), " "))
}

// Admissible formats the triggers each channel accepts right now.
func Admissible(ctl *logic.Controller) string {
	rows := []string{"CHANNEL | STATE | TRIGGERS"}
	for _, m := range ctl.Machines() {
		var names []string
		for _, t := range ctl.Admissible(m.Channel()) {
			names = append(names, string(t))
		}
		rows = append(rows, fmt.Sprintf("%s | %s | %s", m.Channel(), m.State(), strings.Join(names, " ")))
	}
	return columnize.SimpleFormat(rows)
}

// Transitions formats the full transition table of both channels.
func Transitions(ctl *logic.Controller) string {
	rows := []string{"CHANNEL | TRIGGER | FROM | TO | SPEED | COLOR"}
	for _, m := range ctl.Machines() {
		for _, t := range m.Table() {
			from := make([]string, len(t.From))
			for i, f := range t.From {
				from[i] = string(f)
			}
			look, _ := m.Look(t.To)
			rows = append(rows, fmt.Sprintf("%s | %s | %s | %s | %s | %s",
				m.Channel(), t.Trigger, strings.Join(from, ","), t.To, look.Speed, look.Color))
		}
	}
	return columnize.SimpleFormat(rows)
}
