package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/allegro/pkg/handtest"
	"github.com/gwillem/allegro/pkg/protocol"
)

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestDialAndRequest(t *testing.T) {
	srv, err := handtest.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	conn, err := Dial(context.Background(), srv.Addr(), DialConfig{})
	require.NoError(t, err)
	defer conn.Close()

	resp, err := conn.Request(protocol.EncodeSetJoints(protocol.Fill(0.25)))
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)

	resp, err = conn.Request("GET_JOINTS")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(resp), protocol.NumJoints)
}

func TestDialExhaustsAttempts(t *testing.T) {
	addr := closedAddr(t)

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	start := time.Now()
	_, err := Dial(context.Background(), addr, DialConfig{MaxAttempts: 3, RetryDelay: 20 * time.Millisecond, Logger: &log})
	require.Error(t, err)

	// One retry warning per attempt but the last, then a single failure.
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "connection attempt failed, retrying"), out)
	assert.Equal(t, 1, strings.Count(out, `"message":"failed to connect"`), out)

	var cerr *ConnectionError
	require.True(t, errors.As(err, &cerr), "got %T", err)
	assert.Equal(t, 3, cerr.Attempts)
	assert.Equal(t, addr, cerr.Addr)
	// Two sleeps between three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestDialCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, closedAddr(t), DialConfig{MaxAttempts: 5, RetryDelay: time.Second})
	var cerr *ConnectionError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendAfterClose(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn := NewConn(client)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	var terr *Error
	err := conn.Send("GET_JOINTS")
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "send", terr.Op)

	_, err = conn.ReadLine()
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "read", terr.Op)
}

func TestCloseNil(t *testing.T) {
	var conn *Conn
	assert.NoError(t, conn.Close())
}

func TestReadLinePeerClosed(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client)
	defer conn.Close()

	go func() {
		buf := make([]byte, 64)
		server.Read(buf)
		server.Close()
	}()

	_, err := conn.Request("GET_TORQUES")
	var terr *Error
	require.True(t, errors.As(err, &terr), "got %v", err)
}

func TestReadLineOversized(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client)
	defer conn.Close()

	go func() {
		server.Write([]byte(strings.Repeat("9", BufferSize+10)))
		server.Close()
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, BufferSize)
}

func TestReadLineOversizedResyncs(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client)
	defer conn.Close()
	defer server.Close()

	go func() {
		server.Write([]byte(strings.Repeat("9", 3*BufferSize) + "\n" + "OK\n"))
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, BufferSize)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line)
}

func TestInterruptUnblocksRead(t *testing.T) {
	srv, err := handtest.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()
	srv.Silence(protocol.CmdGetJoints)

	conn, err := Dial(context.Background(), srv.Addr(), DialConfig{})
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		_, err := conn.Request(protocol.CmdGetJoints)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	conn.Interrupt()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(3 * time.Second):
		t.Fatal("read still blocked after Interrupt")
	}

	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, ErrInterrupted)

	// Sends still reach the server.
	require.NoError(t, conn.Send(protocol.CmdQuit))
	select {
	case <-srv.Quit():
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw QUIT")
	}
}

func TestInterruptNilAndClosed(t *testing.T) {
	var conn *Conn
	conn.Interrupt()

	client, server := net.Pipe()
	defer server.Close()
	c := NewConn(client)
	require.NoError(t, c.Close())
	c.Interrupt()
}

func TestReadLineTimeout(t *testing.T) {
	srv, err := handtest.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()
	srv.Silence(protocol.CmdGetJoints)

	conn, err := Dial(context.Background(), srv.Addr(), DialConfig{ResponseTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Request("GET_JOINTS")
	var terr *Error
	require.True(t, errors.As(err, &terr))
	var nerr net.Error
	require.True(t, errors.As(err, &nerr))
	assert.True(t, nerr.Timeout())
}

func TestSendAppendsNewline(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client)
	defer conn.Close()
	defer server.Close()

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		got <- string(buf[:n])
	}()

	require.NoError(t, conn.Send("QUIT"))
	assert.Equal(t, "QUIT\n", <-got)
}
