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

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"github.com/gwillem/allegro/pkg/allegro"
	"github.com/gwillem/allegro/pkg/config"
	"github.com/gwillem/allegro/pkg/supervisor"
	"github.com/gwillem/allegro/pkg/transport"
)

type Options struct {
	Config     string `short:"c" long:"config" default:"allegro.toml" description:"Configuration file"`
	Executable string `short:"e" long:"executable" description:"Hand server executable (overrides config)"`
	Attach     bool   `long:"attach" description:"Connect to an already running server instead of launching one"`
	Host       string `long:"host" description:"Server host (overrides config)"`
	Port       int    `long:"port" description:"Server port (overrides config)"`
	Verbose    bool   `short:"v" long:"verbose" description:"Debug logging"`

	Gestures GesturesCommand `command:"gestures" description:"Run the demo gestures"`
	Cycle    CycleCommand    `command:"cycle" description:"Open and close the hand repeatedly"`
	Set      SetCommand      `command:"set" description:"Command all 16 joint positions once"`
	Monitor  MonitorCommand  `command:"monitor" description:"Print joint positions and torques"`
	Joystick JoystickCommand `command:"joystick" alias:"teleop" description:"Control hand closure with a joystick axis"`
	Setup    SetupCommand    `command:"setup" description:"Write a configuration file interactively"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Allegro - supervised control client for the Allegro robotic hand"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// newLogger writes human-readable log lines to w.
func newLogger(w io.Writer, timestamps bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	if !timestamps {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
		cw.NoColor = true
	}
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Executable != "" {
		cfg.Server.Executable = opts.Executable
	}
	if opts.Attach {
		cfg.Server.Attach = true
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM so deferred shutdowns run
// before the process exits.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openHand launches and connects to the hand server. Setup failures are
// fatal for every command, so the error is explained here.
func openHand(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*allegro.Hand, error) {
	hc := cfg.HandConfig()
	hc.Logger = log

	hand, err := allegro.Open(ctx, hc)
	if err == nil {
		return hand, nil
	}

	var launchErr *supervisor.LaunchError
	var connErr *transport.ConnectionError
	switch {
	case errors.As(err, &launchErr):
		fmt.Fprintln(os.Stderr, errorStyle.Render("Could not start the hand server: "+launchErr.Error()))
		fmt.Fprintln(os.Stderr, "Build it to ./build/grasp/grasp or pass --executable.")
	case errors.As(err, &connErr):
		fmt.Fprintln(os.Stderr, errorStyle.Render("Hand server unreachable: "+connErr.Error()))
	}
	return nil, err
}
