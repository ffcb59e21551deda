// Package gpio drives RGB indicator LEDs wired to GPIO output lines.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"fmt"

	"github.com/sweeney/busylight/internal/logic"
)

// Writer sets the red, green and blue lines of one LED.
type Writer interface {
	// Write drives the LED at index. true = line lit.
	Write(index int, rgb [3]bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering), red/green/blue per LED.
var (
	DefaultPinsAvailability = [3]int{17, 27, 22}
	DefaultPinsTasking      = [3]int{5, 6, 13}
)

// Threshold is the component intensity at which a line is switched on.
const Threshold = 128

// Renderer adapts a Writer to logic.Renderer. GPIO lines are on/off only,
// so the fade duration is ignored and each component is thresholded.
// Index 0 addresses every LED in Indices.
type Renderer struct {
	W       Writer
	Indices []int
}

// Render thresholds c and writes it to the LED at index.
func (r *Renderer) Render(_ context.Context, _ int, c logic.Color, index int) error {
	rgb := [3]bool{c.R >= Threshold, c.G >= Threshold, c.B >= Threshold}
	if index != 0 {
		return r.W.Write(index, rgb)
	}
	for _, i := range r.Indices {
		if err := r.W.Write(i, rgb); err != nil {
			return fmt.Errorf("led %d: %w", i, err)
		}
	}
	return nil
}
