//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives LEDs through the Linux GPIO character device.
type RealWriter struct {
	chip  *gpiocdev.Chip
	leds  map[int][3]*gpiocdev.Line
	lines []*gpiocdev.Line
}

// NewRealWriter requests three output lines (r, g, b) per LED index on chip.
// All lines start low.
func NewRealWriter(chip string, pins map[int][3]int) (*RealWriter, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &RealWriter{chip: c, leds: make(map[int][3]*gpiocdev.Line, len(pins))}
	for index, rgb := range pins {
		var led [3]*gpiocdev.Line
		for i, pin := range rgb {
			l, err := c.RequestLine(pin, gpiocdev.AsOutput(0))
			if err != nil {
				w.Close()
				return nil, fmt.Errorf("request led %d pin %d: %w", index, pin, err)
			}
			led[i] = l
			w.lines = append(w.lines, l)
		}
		w.leds[index] = led
	}
	return w, nil
}

// Write drives the three lines of the LED at index.
func (w *RealWriter) Write(index int, rgb [3]bool) error {
	led, ok := w.leds[index]
	if !ok {
		return fmt.Errorf("no led at index %d", index)
	}
	for i, on := range rgb {
		v := 0
		if on {
			v = 1
		}
		if err := led[i].SetValue(v); err != nil {
			return fmt.Errorf("set led %d line %d: %w", index, i, err)
		}
	}
	return nil
}

// Close releases GPIO resources.
// Lines are switched back to input with pull-down (the Pi boot default)
// before closing so nothing is left driven.
func (w *RealWriter) Close() error {
	var errs []error

	for _, l := range w.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	w.lines = nil
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		w.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
