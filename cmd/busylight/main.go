// Command busylight drives a two-zone status light from an operator console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sweeney/busylight/internal/blink1"
	"github.com/sweeney/busylight/internal/config"
	"github.com/sweeney/busylight/internal/console"
	"github.com/sweeney/busylight/internal/gpio"
	"github.com/sweeney/busylight/internal/logger"
	"github.com/sweeney/busylight/internal/logic"
	"github.com/sweeney/busylight/internal/mqtt"
	"github.com/sweeney/busylight/internal/status"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// selfTestColors are flashed on the off index at startup, in order.
var selfTestColors = []logic.Color{logic.Red, logic.Green, logic.Blue}

func main() {
	a := &app{
		in:       os.Stdin,
		out:      os.Stdout,
		logOut:   os.Stderr,
		terminal: stdinIsTerminal,
		sleep:    sleepCtx,
		open:     openBackend,
	}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

// backend is an opened light device.
type backend struct {
	renderer logic.Renderer
	// publisher is set for the mqtt renderer and receives lifecycle events.
	publisher mqtt.Publisher
	close     func() error
}

// runOptions are the one-shot modes of the root command.
type runOptions struct {
	printState bool
	json       bool
}

// app holds everything run touches outside the engine.
type app struct {
	in       io.Reader
	out      io.Writer
	logOut   io.Writer
	terminal func() bool
	sleep    func(context.Context, time.Duration) error
	open     func(config.Config, *logger.Logger) (*backend, error)
}

func newRootCmd(a *app) *cobra.Command {
	var (
		cfgFile string
		opts    runOptions
	)

	root := &cobra.Command{
		Use:           "busylight",
		Short:         "Drive a two-zone status light from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile, cmd)
			if err != nil {
				fmt.Fprintf(a.logOut, "fatal: %v\n", err)
				return err
			}
			log := logger.NewWithWriter(cfg.LogLevel, a.logOut)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.run(ctx, cfg, log, opts); err != nil {
				log.Errorw("fatal", "err", err)
				return err
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/busylight/busylight.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	f := root.Flags()
	f.String("renderer", config.RendererBlink1, "light backend: blink1, gpio, mqtt or dry-run")
	f.String("ui", config.UIAuto, "console: auto, tui or plain")
	f.Bool("self-test", true, "flash red, green, blue at startup")
	f.Int("led-left", logic.DefaultAvailabilityIndex, "LED index of the availability zone")
	f.Int("led-right", logic.DefaultTaskingIndex, "LED index of the tasking zone")
	f.String("blink1-tool", blink1.DefaultTool, "path to blink1-tool")
	f.String("broker", "", "MQTT broker address for the mqtt renderer")
	f.BoolVar(&opts.printState, "print-state", false, "print the initial states and exit")
	f.BoolVar(&opts.json, "json", false, "with --print-state, print the full status as JSON")

	root.AddCommand(newTransitionsCmd(), newVersionCmd())
	return root
}

func newTransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions",
		Short: "Print the transition table of both channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nop := logic.RenderFunc(func(context.Context, int, logic.Color, int) error { return nil })
			ctl, err := logic.NewController(nop, logic.DefaultConfig())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), console.Transitions(ctl))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "busylight %s\n", version)
		},
	}
}

func loadConfig(file string, cmd *cobra.Command) (config.Config, error) {
	v := config.New(file)
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func (a *app) run(ctx context.Context, cfg config.Config, log *logger.Logger, opts runOptions) error {
	b, err := a.open(cfg, log)
	if err != nil {
		return fmt.Errorf("open %s renderer: %w", cfg.Renderer, err)
	}
	defer func() {
		if err := b.close(); err != nil {
			log.Warnw("close renderer", "err", err)
		}
	}()

	tracker := status.NewTracker(time.Now(), status.Config{
		Renderer:          cfg.Renderer,
		AvailabilityIndex: cfg.LEDs.Availability,
		TaskingIndex:      cfg.LEDs.Tasking,
		OffIndex:          cfg.LEDs.Off,
		Broker:            cfg.MQTT.Broker,
	})
	if cs, ok := b.publisher.(mqtt.ConnectionStatus); ok {
		tracker.TrackMQTT(cs.IsConnected)
	}
	r := tracker.Instrument(logRenders(b.renderer, log))

	if cfg.SelfTest {
		if err := selfTest(ctx, r, cfg.LEDs.Off, cfg.SelfTestFade(), cfg.SelfTestPause, a.sleep); err != nil {
			log.Warnw("self-test", "err", err)
		}
	}

	ctl, err := logic.NewController(r, cfg.LogicConfig())
	if err != nil {
		return err
	}
	if err := ctl.Start(ctx); err != nil {
		log.Warnw("initial render failed", "err", err)
	}

	session := console.NewSession(ctl, tracker, log)
	publishLifecycle(b.publisher, tracker, "STARTUP", "", log)
	log.Infow("started", "renderer", cfg.Renderer,
		"availability_led", cfg.LEDs.Availability, "tasking_led", cfg.LEDs.Tasking)

	switch {
	case opts.printState && opts.json:
		fmt.Fprintln(a.out, string(status.FormatJSON(tracker.Snapshot())))
	case opts.printState:
		fmt.Fprintln(a.out, ctl.Dump())
	default:
		if err := a.console(ctx, session, cfg.UI); err != nil {
			log.Warnw("console", "err", err)
		}
	}

	reason := "EXIT"
	if ctx.Err() != nil {
		reason = "SIGNAL"
	}
	log.Infow("shutting down", "reason", reason)

	// The run context may already be canceled; off must still reach the device.
	if err := session.Off(context.WithoutCancel(ctx)); err != nil {
		log.Warnw("render off", "err", err)
	}
	publishLifecycle(b.publisher, tracker, "SHUTDOWN", reason, log)
	return nil
}

// console runs the operator console until it quits or ctx is done.
func (a *app) console(ctx context.Context, s *console.Session, ui string) error {
	tty := a.terminal()
	if ui == config.UITUI || (ui == config.UIAuto && tty) {
		return console.RunTUI(ctx, s, a.in, a.out)
	}

	// A blocked read cannot be interrupted, so a signal abandons the reader.
	done := make(chan error, 1)
	go func() { done <- console.RunPlain(ctx, s, a.in, a.out, tty) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

// selfTest flashes each self-test color on index, pausing after each.
func selfTest(ctx context.Context, r logic.Renderer, index int, speed logic.Speed, pause time.Duration, sleep func(context.Context, time.Duration) error) error {
	var errs []error
	for _, c := range selfTestColors {
		if err := r.Render(ctx, speed.Millis(), c, index); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", c, err))
		}
		if err := sleep(ctx, pause); err != nil {
			return errors.Join(append(errs, err)...)
		}
	}
	return errors.Join(errs...)
}

func publishLifecycle(p mqtt.Publisher, tracker *status.Tracker, event, reason string, log *logger.Logger) {
	if p == nil {
		return
	}
	snap := tracker.Snapshot()
	err := p.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Warnw("publish lifecycle event", "event", event, "err", err)
		return
	}
	log.Debugw("published lifecycle event", "event", event, "mqtt_connected", snap.MQTTConnected)
}

func openBackend(cfg config.Config, log *logger.Logger) (*backend, error) {
	noClose := func() error { return nil }

	switch cfg.Renderer {
	case config.RendererBlink1:
		r := blink1.NewToolRenderer(cfg.Blink1.Tool, cfg.Blink1.Timeout, blink1.ExecRunner)
		return &backend{renderer: r, close: noClose}, nil

	case config.RendererGPIO:
		w, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIOPins())
		if err != nil {
			return nil, err
		}
		r := &gpio.Renderer{W: w, Indices: []int{cfg.LEDs.Availability, cfg.LEDs.Tasking}}
		return &backend{renderer: r, close: w.Close}, nil

	case config.RendererMQTT:
		p, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, log)
		if err != nil {
			return nil, err
		}
		return &backend{renderer: &mqtt.Renderer{P: p}, publisher: p, close: p.Close}, nil

	case config.RendererDryRun:
		return &backend{renderer: dryRun(log), close: noClose}, nil
	}
	return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
}

// logRenders logs every render at debug level.
func logRenders(r logic.Renderer, log *logger.Logger) logic.Renderer {
	return logic.RenderFunc(func(ctx context.Context, fadeMillis int, c logic.Color, index int) error {
		err := r.Render(ctx, fadeMillis, c, index)
		log.Debugw("rendered", "led", index, "fade_ms", fadeMillis, "rgb", c.String(), "err", err)
		return err
	})
}

// dryRun logs every render instead of driving hardware.
func dryRun(log *logger.Logger) logic.Renderer {
	return logic.RenderFunc(func(_ context.Context, fadeMillis int, c logic.Color, index int) error {
		log.Infow("render", "led", index, "fade_ms", fadeMillis, "rgb", c.String())
		return nil
	})
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
