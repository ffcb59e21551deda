package config

import "strings"

// envReplacer turns "leds.availability" into BUSYLIGHT_LEDS_AVAILABILITY.
var envReplacer = strings.NewReplacer(".", "_", "-", "_")
