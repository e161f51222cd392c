// Package allegro is the client for the Allegro hand control server. A Hand
// launches the server, connects to it, issues joint commands and queries,
// and tears both down again on Shutdown.
package allegro

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/allegro/pkg/protocol"
	"github.com/gwillem/allegro/pkg/supervisor"
	"github.com/gwillem/allegro/pkg/transport"
)

// Default timings.
const (
	DefaultHost         = "localhost"
	DefaultStartupDelay = time.Second
	DefaultDrainDelay   = 100 * time.Millisecond
)

// Config holds everything needed to open a Hand.
type Config struct {
	// Executable is the server binary. When empty, SearchPaths are tried.
	Executable  string
	SearchPaths []string
	Args        []string
	Env         []string

	// Attach connects to a server that is already running instead of
	// launching one.
	Attach bool

	Host string
	Port int

	StartupDelay time.Duration
	GraceTimeout time.Duration
	DrainDelay   time.Duration

	Dial transport.DialConfig

	Logger *zerolog.Logger
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = protocol.DefaultPort
	}
	if c.SearchPaths == nil {
		c.SearchPaths = supervisor.DefaultSearchPaths()
	}
	if c.StartupDelay <= 0 {
		c.StartupDelay = DefaultStartupDelay
	}
	if c.GraceTimeout <= 0 {
		c.GraceTimeout = supervisor.DefaultGraceTimeout
	}
	if c.DrainDelay <= 0 {
		c.DrainDelay = DefaultDrainDelay
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Dial.Logger == nil {
		c.Dial.Logger = c.Logger
	}
}

// Addr returns the host:port the Hand connects to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Hand is a control session with one server. Commands are synchronous and
// must not be issued concurrently.
type Hand struct {
	cfg  Config
	log  *zerolog.Logger
	proc *supervisor.Process // nil when attached

	mu   sync.Mutex
	conn *transport.Conn

	// stopWatch detaches the Open context from the connection.
	stopWatch func() bool

	shutdownOnce sync.Once
}

// Open launches the server (unless cfg.Attach is set), waits for it to come
// up and connects. A *supervisor.LaunchError or *transport.ConnectionError
// means no control is possible; in the latter case the launched server has
// already been terminated. Cancelling ctx after Open returns interrupts any
// pending read, so a blocked command fails instead of hanging; Shutdown
// must still be called.
func Open(ctx context.Context, cfg Config) (*Hand, error) {
	cfg.setDefaults()
	h := &Hand{cfg: cfg, log: cfg.Logger}

	if !cfg.Attach {
		path, err := supervisor.FindExecutable(cfg.Executable, cfg.SearchPaths)
		if err != nil {
			return nil, err
		}
		proc, err := supervisor.Start(path, supervisor.Options{
			Args:   cfg.Args,
			Env:    cfg.Env,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		h.proc = proc

		select {
		case <-ctx.Done():
			h.Shutdown()
			return nil, ctx.Err()
		case <-time.After(cfg.StartupDelay):
		}
	}

	conn, err := transport.Dial(ctx, cfg.Addr(), cfg.Dial)
	if err != nil {
		h.Shutdown()
		return nil, err
	}
	h.conn = conn
	h.stopWatch = context.AfterFunc(ctx, func() {
		h.log.Debug().Msg("context canceled, interrupting hand connection")
		conn.Interrupt()
	})
	return h, nil
}

// NewHand wraps an established connection without a supervised process.
func NewHand(conn *transport.Conn, logger *zerolog.Logger) *Hand {
	cfg := Config{Attach: true, Logger: logger, SearchPaths: []string{}}
	cfg.setDefaults()
	return &Hand{cfg: cfg, log: cfg.Logger, conn: conn}
}

// Process returns the supervised server, or nil when attached.
func (h *Hand) Process() *supervisor.Process {
	return h.proc
}

// Connected reports whether the Hand has an open connection.
func (h *Hand) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

func (h *Hand) connection() *transport.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

// SetJointPositions commands all 16 joints and reports whether the server
// acknowledged. Failures are logged, never returned.
func (h *Hand) SetJointPositions(v protocol.JointVector) bool {
	conn := h.connection()
	if conn == nil {
		h.log.Warn().Str("command", protocol.CmdSetJoints).Msg("not connected to hand server")
		return false
	}

	resp, err := conn.Request(protocol.EncodeSetJoints(v))
	if err == nil {
		err = protocol.CheckAck(protocol.CmdSetJoints, resp)
	}
	if err != nil {
		h.logFailure(protocol.CmdSetJoints, err)
		return false
	}
	return true
}

// SetJointValues is SetJointPositions for untyped input. Anything but
// exactly 16 values is rejected before any I/O.
func (h *Hand) SetJointValues(values []float64) bool {
	v, err := protocol.VectorFromSlice(values)
	if err != nil {
		h.log.Warn().Err(err).Msg("rejected joint positions")
		return false
	}
	return h.SetJointPositions(v)
}

// GetJointPositions returns the measured joint angles in radians.
func (h *Hand) GetJointPositions() (protocol.JointVector, bool) {
	return h.query(protocol.CmdGetJoints)
}

// GetJointTorques returns the commanded joint torques.
func (h *Hand) GetJointTorques() (protocol.JointVector, bool) {
	return h.query(protocol.CmdGetTorques)
}

func (h *Hand) query(cmd string) (protocol.JointVector, bool) {
	conn := h.connection()
	if conn == nil {
		h.log.Warn().Str("command", cmd).Msg("not connected to hand server")
		return protocol.JointVector{}, false
	}

	resp, err := conn.Request(protocol.Line(cmd))
	if err != nil {
		h.logFailure(cmd, err)
		return protocol.JointVector{}, false
	}
	v, err := protocol.ParseVector(cmd, resp)
	if err != nil {
		h.logFailure(cmd, err)
		return protocol.JointVector{}, false
	}
	return v, true
}

func (h *Hand) logFailure(cmd string, err error) {
	ev := h.log.Warn().Err(err).Str("command", cmd)
	var perr *protocol.Error
	if errors.As(err, &perr) {
		ev = ev.Str("kind", "protocol")
	} else {
		ev = ev.Str("kind", "transport")
	}
	ev.Msg("hand command failed")
}

// Shutdown asks the server to quit, closes the connection and terminates
// the server's process group. It runs once; later calls return immediately.
func (h *Hand) Shutdown() {
	h.shutdownOnce.Do(h.shutdown)
}

func (h *Hand) shutdown() {
	h.log.Info().Msg("ending connection and cleaning up")
	if h.stopWatch != nil {
		h.stopWatch()
	}

	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()

	if conn != nil {
		if err := conn.Send(protocol.Line(protocol.CmdQuit)); err != nil {
			h.log.Debug().Err(err).Msg("send quit")
		}
		time.Sleep(h.cfg.DrainDelay)
		if err := conn.Close(); err != nil {
			h.log.Debug().Err(err).Msg("close connection")
		}
	}

	if h.proc != nil {
		h.proc.Terminate(h.cfg.GraceTimeout)
	}
}
