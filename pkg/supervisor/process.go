// Package supervisor launches the hand control server in its own process
// group and tears the whole group down when the session ends.
package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// DefaultGraceTimeout is how long Terminate waits after SIGTERM before SIGKILL.
const DefaultGraceTimeout = 2 * time.Second

// reapTimeout bounds the wait for the kernel to deliver SIGKILL.
const reapTimeout = 5 * time.Second

// Options configure how the server is launched.
type Options struct {
	Args []string
	Env  []string // nil inherits the current environment
	Dir  string

	// Stdout and Stderr default to the null device.
	Stdout io.Writer
	Stderr io.Writer

	Logger *zerolog.Logger
}

// Process is a running server and its process group.
type Process struct {
	path string
	cmd  *exec.Cmd
	pid  int
	pgid int
	log  *zerolog.Logger

	done    chan struct{}
	waitErr error

	termOnce sync.Once
}

// Start launches path as the leader of a new process group.
func Start(path string, opts Options) (*Process, error) {
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LaunchError{Path: path, Err: errors.New("is a directory")}
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Env = opts.Env
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}

	p := &Process{
		path: path,
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		pgid: cmd.Process.Pid,
		log:  log,
		done: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	log.Info().Str("path", path).Int("pid", p.pid).Msg("started hand server")
	return p, nil
}

// Pid returns the process id of the server.
func (p *Process) Pid() int {
	return p.pid
}

// Pgid returns the process group id shared by the server and its children.
func (p *Process) Pgid() int {
	return p.pgid
}

// Path returns the executable that was launched.
func (p *Process) Path() string {
	return p.path
}

// Done is closed once the server process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Running reports whether the server process is still alive.
func (p *Process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the result of waiting on the process, or nil while it runs.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Terminate stops the whole process group: SIGTERM, up to grace for the
// leader to exit, then SIGKILL for anything left in the group. It runs at
// most once. Errors are logged, never returned.
func (p *Process) Terminate(grace time.Duration) {
	if p == nil {
		return
	}
	p.termOnce.Do(func() {
		p.terminate(grace)
	})
}

func (p *Process) terminate(grace time.Duration) {
	if grace <= 0 {
		grace = DefaultGraceTimeout
	}
	log := p.log.With().Int("pgid", p.pgid).Logger()

	if !p.signalGroup(unix.SIGTERM) {
		log.Debug().Msg("process group already gone")
		p.awaitExit(reapTimeout)
		return
	}

	select {
	case <-p.done:
	case <-time.After(grace):
		log.Warn().Dur("grace", grace).Msg("hand server did not stop, killing process group")
	}

	// The leader may be gone while children it spawned still hold the group.
	if p.groupAlive() {
		p.signalGroup(unix.SIGKILL)
	}
	p.awaitExit(reapTimeout)
	log.Info().Msg("hand server stopped")
}

// signalGroup sends sig to the process group and reports whether the group
// still existed.
func (p *Process) signalGroup(sig syscall.Signal) bool {
	err := unix.Kill(-p.pgid, sig)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.ESRCH):
		return false
	default:
		p.log.Warn().Err(err).Int("pgid", p.pgid).Str("signal", sig.String()).Msg("signal process group")
		return true
	}
}

func (p *Process) groupAlive() bool {
	return unix.Kill(-p.pgid, 0) == nil
}

func (p *Process) awaitExit(timeout time.Duration) {
	select {
	case <-p.done:
	case <-time.After(timeout):
		p.log.Error().Int("pid", p.pid).Msg("hand server not reaped after kill")
	}
}
