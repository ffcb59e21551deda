// Package config loads daemon settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/busylight/internal/blink1"
	"github.com/sweeney/busylight/internal/gpio"
	"github.com/sweeney/busylight/internal/logger"
	"github.com/sweeney/busylight/internal/logic"
	"github.com/sweeney/busylight/internal/mqtt"
)

// Renderer kinds.
const (
	RendererBlink1 = "blink1"
	RendererGPIO   = "gpio"
	RendererMQTT   = "mqtt"
	RendererDryRun = "dry-run"
)

// UI modes.
const (
	UIAuto  = "auto"
	UITUI   = "tui"
	UIPlain = "plain"
)

// EnvPrefix prefixes every environment override, e.g. BUSYLIGHT_RENDERER.
const EnvPrefix = "BUSYLIGHT"

// Config is the full daemon configuration.
type Config struct {
	LogLevel      string        `mapstructure:"log_level" validate:"loglevel"`
	Renderer      string        `mapstructure:"renderer" validate:"oneof=blink1 gpio mqtt dry-run"`
	UI            string        `mapstructure:"ui" validate:"oneof=auto tui plain"`
	SelfTest      bool          `mapstructure:"self_test"`
	SelfTestPause time.Duration `mapstructure:"self_test_pause" validate:"gte=0"`
	SelfTestSpeed string        `mapstructure:"self_test_speed" validate:"required"`
	LEDs          LEDs          `mapstructure:"leds"`
	Blink1        Blink1        `mapstructure:"blink1"`
	GPIO          GPIO          `mapstructure:"gpio"`
	MQTT          MQTT          `mapstructure:"mqtt"`
}

// LEDs maps channels to device LED indices.
type LEDs struct {
	Availability int `mapstructure:"availability" validate:"gte=0,nefield=Tasking"`
	Tasking      int `mapstructure:"tasking" validate:"gte=0"`
	Off          int `mapstructure:"off" validate:"gte=0"`
}

// Blink1 configures the blink1-tool renderer.
type Blink1 struct {
	Tool    string        `mapstructure:"tool" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// GPIO configures the GPIO renderer. Pins are BCM numbers in r,g,b order.
type GPIO struct {
	Chip         string `mapstructure:"chip" validate:"required"`
	Availability []int  `mapstructure:"availability" validate:"len=3,dive,gte=0"`
	Tasking      []int  `mapstructure:"tasking" validate:"len=3,dive,gte=0"`
}

// MQTT configures the MQTT renderer.
type MQTT struct {
	Broker      string `mapstructure:"broker" validate:"omitempty,url"`
	TopicPrefix string `mapstructure:"topic_prefix" validate:"required"`
	ClientID    string `mapstructure:"client_id" validate:"required"`
}

// LogicConfig returns the LED layout for the controller.
func (c Config) LogicConfig() logic.Config {
	return logic.Config{
		AvailabilityIndex: c.LEDs.Availability,
		TaskingIndex:      c.LEDs.Tasking,
		OffIndex:          c.LEDs.Off,
	}
}

// SelfTestFade resolves self_test_speed. Validate has already checked it.
func (c Config) SelfTestFade() logic.Speed {
	sp, err := logic.ParseSpeed(c.SelfTestSpeed)
	if err != nil {
		return logic.SpeedFast
	}
	return sp
}

// GPIOPins returns the pin triple per LED index.
func (c Config) GPIOPins() map[int][3]int {
	pins := make(map[int][3]int, 2)
	if len(c.GPIO.Availability) == 3 {
		pins[c.LEDs.Availability] = [3]int{c.GPIO.Availability[0], c.GPIO.Availability[1], c.GPIO.Availability[2]}
	}
	if len(c.GPIO.Tasking) == 3 {
		pins[c.LEDs.Tasking] = [3]int{c.GPIO.Tasking[0], c.GPIO.Tasking[1], c.GPIO.Tasking[2]}
	}
	return pins
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("renderer", RendererBlink1)
	v.SetDefault("ui", UIAuto)
	v.SetDefault("self_test", true)
	v.SetDefault("self_test_pause", time.Second)
	v.SetDefault("self_test_speed", logic.SpeedFast.String())
	v.SetDefault("leds.availability", logic.DefaultAvailabilityIndex)
	v.SetDefault("leds.tasking", logic.DefaultTaskingIndex)
	v.SetDefault("leds.off", logic.DefaultOffIndex)
	v.SetDefault("blink1.tool", blink1.DefaultTool)
	v.SetDefault("blink1.timeout", blink1.DefaultTimeout)
	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.availability", gpio.DefaultPinsAvailability[:])
	v.SetDefault("gpio.tasking", gpio.DefaultPinsTasking[:])
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic_prefix", mqtt.DefaultTopicPrefix)
	v.SetDefault("mqtt.client_id", "busylight")
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"renderer":    "renderer",
	"ui":          "ui",
	"self-test":   "self_test",
	"led-left":    "leds.availability",
	"led-right":   "leds.tasking",
	"blink1-tool": "blink1.tool",
	"broker":      "mqtt.broker",
}

// BindFlags binds the flags that exist in fs to their config keys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults, environment binding and the
// config file search path set. file overrides the search path when non-empty.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}
	v.SetConfigName("busylight")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "busylight"))
	}
	v.AddConfigPath(".")
	return v
}

// Load reads the config file (a missing file in the search path is fine),
// decodes and validates the result.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

// newValidator adds the "loglevel" tag, which accepts the levels the logger knows.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return logger.ValidLevel(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks field constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logic.ParseSpeed(cfg.SelfTestSpeed); err != nil {
		return fmt.Errorf("invalid config: self_test_speed: %w", err)
	}
	if cfg.Renderer == RendererMQTT && cfg.MQTT.Broker == "" {
		return errors.New("invalid config: mqtt renderer needs mqtt.broker")
	}
	return nil
}
