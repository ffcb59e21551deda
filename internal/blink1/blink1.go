// Package blink1 renders colors on a blink(1) USB light by running blink1-tool.
package blink1

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/busylight/internal/logic"
)

// DefaultTool is the blink1-tool executable looked up on PATH.
const DefaultTool = "blink1-tool"

// DefaultTimeout bounds a single blink1-tool invocation.
const DefaultTimeout = 5 * time.Second

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ToolRenderer shells out to blink1-tool for every render.
type ToolRenderer struct {
	tool    string
	timeout time.Duration
	run     Runner
}

// NewToolRenderer returns a renderer invoking tool. A zero timeout uses DefaultTimeout,
// a nil run uses ExecRunner.
func NewToolRenderer(tool string, timeout time.Duration, run Runner) *ToolRenderer {
	if tool == "" {
		tool = DefaultTool
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if run == nil {
		run = ExecRunner
	}
	return &ToolRenderer{tool: tool, timeout: timeout, run: run}
}

// Args builds the blink1-tool argument list for a fade.
func Args(fadeMillis int, c logic.Color, index int) []string {
	return []string{
		"-m", strconv.Itoa(fadeMillis),
		"--rgb", c.String(),
		"-l", strconv.Itoa(index),
	}
}

// Render runs blink1-tool and fails on any non-zero exit.
func (r *ToolRenderer) Render(ctx context.Context, fadeMillis int, c logic.Color, index int) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.run(ctx, r.tool, Args(fadeMillis, c, index)...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", r.tool, err, msg)
		}
		return fmt.Errorf("%s: %w", r.tool, err)
	}
	return nil
}
