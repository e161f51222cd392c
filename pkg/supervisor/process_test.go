package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const helperEnv = "SUPERVISOR_HELPER"

// TestHelperProcess is not a real test. It is re-executed as the supervised
// child by the tests below.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	switch mode {
	case "sleep":
	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
	case "spawn-child":
		child := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
		child.Env = append(os.Environ(), helperEnv+"=ignore-term")
		if err := child.Start(); err != nil {
			os.Exit(2)
		}
		pidFile := os.Getenv("SUPERVISOR_PID_FILE")
		os.WriteFile(pidFile, []byte(strconv.Itoa(child.Process.Pid)), 0644)
	case "exit":
		os.Exit(0)
	}
	time.Sleep(time.Minute)
	os.Exit(0)
}

func startHelper(t *testing.T, mode string, extraEnv ...string) *Process {
	t.Helper()
	env := append(os.Environ(), helperEnv+"="+mode)
	env = append(env, extraEnv...)
	p, err := Start(os.Args[0], Options{
		Args: []string{"-test.run=TestHelperProcess"},
		Env:  env,
	})
	require.NoError(t, err)
	t.Cleanup(func() { p.Terminate(100 * time.Millisecond) })
	return p
}

// alive reports whether pid exists and is not a zombie.
func alive(pid int) bool {
	if err := unix.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return true
	}
	// The state field follows the parenthesised command name.
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) == 0 || fields[0] != "Z"
}

func TestStartMissingExecutable(t *testing.T) {
	_, err := Start(filepath.Join(t.TempDir(), "grasp"), Options{})
	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr), "got %v", err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStartDirectory(t *testing.T) {
	_, err := Start(t.TempDir(), Options{})
	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr))
}

func TestStartNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grasp")
	require.NoError(t, os.WriteFile(path, []byte("not a program"), 0644))

	_, err := Start(path, Options{})
	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr))
}

func TestStartOwnProcessGroup(t *testing.T) {
	p := startHelper(t, "sleep")

	assert.True(t, p.Running())
	pgid, err := unix.Getpgid(p.Pid())
	require.NoError(t, err)
	assert.Equal(t, p.Pid(), pgid)
	assert.Equal(t, p.Pgid(), pgid)
	assert.NotEqual(t, unix.Getpgrp(), pgid)
}

func TestTerminateGraceful(t *testing.T) {
	p := startHelper(t, "sleep")

	start := time.Now()
	p.Terminate(2 * time.Second)

	assert.False(t, p.Running())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, alive(p.Pid()))
}

func TestTerminateEscalatesToKill(t *testing.T) {
	p := startHelper(t, "ignore-term")
	// Give the helper time to install its signal handler.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	p.Terminate(300 * time.Millisecond)

	assert.False(t, p.Running())
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	var exitErr *exec.ExitError
	require.True(t, errors.As(p.ExitErr(), &exitErr))
}

func TestTerminateReclaimsChildren(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	p := startHelper(t, "spawn-child", "SUPERVISOR_PID_FILE="+pidFile)

	var childPid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil || len(data) == 0 {
			return false
		}
		childPid, err = strconv.Atoi(string(data))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	require.True(t, alive(childPid))

	p.Terminate(300 * time.Millisecond)

	assert.Eventually(t, func() bool { return !alive(childPid) }, 5*time.Second, 20*time.Millisecond)
	// The orphaned child lingers in the group as a zombie until init reaps it.
	assert.Eventually(t, func() bool {
		return errors.Is(unix.Kill(-p.Pgid(), 0), unix.ESRCH)
	}, 10*time.Second, 50*time.Millisecond)
}

func TestTerminateIdempotent(t *testing.T) {
	p := startHelper(t, "sleep")
	p.Terminate(time.Second)
	p.Terminate(time.Second)
	assert.False(t, p.Running())
}

func TestTerminateAfterExit(t *testing.T) {
	p := startHelper(t, "exit")
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("helper did not exit")
	}

	p.Terminate(time.Second)
	assert.False(t, p.Running())
}

func TestTerminateNil(t *testing.T) {
	var p *Process
	p.Terminate(time.Second)
}
