// Package teleop drives the hand from a live joystick axis.
package teleop

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gwillem/allegro/pkg/input"
	"github.com/gwillem/allegro/pkg/protocol"
)

// Defaults for Config.
const (
	DefaultAxis     = 4
	DefaultMaxAngle = 1.1
	DefaultHz       = 50
)

// Hand is the part of a control session the controller needs.
type Hand interface {
	SetJointPositions(protocol.JointVector) bool
	GetJointPositions() (protocol.JointVector, bool)
}

// State represents the current state of teleoperation.
type State struct {
	Sample    float64
	Angle     float64
	Commanded protocol.JointVector
	Acked     bool

	// Measured is only filled when feedback is enabled and the read succeeded.
	Measured    protocol.JointVector
	HasMeasured bool

	Timestamp time.Time
	Error     error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	hand     Hand
	source   input.AxisSource
	axis     int
	maxAngle float64
	hz       int
	feedback bool

	mu      sync.RWMutex
	state   State
	running bool
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Hand     Hand
	Source   input.AxisSource
	Axis     int
	MaxAngle float64
	Hz       int
	Feedback bool // Read back joint positions after every command
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Hand == nil {
		return nil, fmt.Errorf("teleop: no hand")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("teleop: no input source")
	}
	if cfg.Axis < 0 {
		return nil, fmt.Errorf("teleop: invalid axis %d", cfg.Axis)
	}
	if cfg.MaxAngle <= 0 {
		cfg.MaxAngle = DefaultMaxAngle
	}
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}

	return &Controller{
		hand:     cfg.Hand,
		source:   cfg.Source,
		axis:     cfg.Axis,
		maxAngle: cfg.MaxAngle,
		hz:       cfg.Hz,
		feedback: cfg.Feedback,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// MaxAngle returns the angle commanded at full axis deflection.
func (c *Controller) MaxAngle() float64 {
	return c.maxAngle
}

// State returns the most recent state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Write makes the controller usable as a log sink: each line written ends
// up on the Logs channel.
func (c *Controller) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			c.pushLog(line)
		}
	}
	return len(p), nil
}

func (c *Controller) log(format string, args ...any) {
	c.pushLog(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...)))
}

func (c *Controller) pushLog(msg string) {
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is canceled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.log("Teleoperation stopped")
	}()

	c.log("Teleoperation started at %d Hz on axis %d", c.hz, c.axis)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Step()
		}
	}
}

// Step performs one poll-and-command cycle.
func (c *Controller) Step() State {
	sample, ok := c.source.Axis(c.axis)
	if !ok {
		err := fmt.Errorf("axis %d has no sample", c.axis)
		s := State{Error: err, Timestamp: time.Now()}
		c.publish(s)
		return s
	}

	angle := input.AxisToAngle(sample, c.maxAngle)
	cmd := input.SpreadVector(angle)

	s := State{
		Sample:    sample,
		Angle:     angle,
		Commanded: cmd,
		Acked:     c.hand.SetJointPositions(cmd),
		Timestamp: time.Now(),
	}
	if !s.Acked {
		s.Error = fmt.Errorf("set joints not acknowledged")
		c.log("Command failed at angle %.3f rad", angle)
	}

	if c.feedback {
		s.Measured, s.HasMeasured = c.hand.GetJointPositions()
	}

	c.publish(s)
	return s
}

func (c *Controller) publish(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.sendState(s)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}
