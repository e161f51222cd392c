// Package transport provides a blocking, line-delimited request/response
// channel over a TCP connection.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BufferSize bounds a single response. A reply longer than this without a
// newline is returned in BufferSize chunks.
const BufferSize = 1024

// Defaults for DialConfig.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = time.Second
)

// DialConfig controls connection retries.
type DialConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration

	// ResponseTimeout bounds each ReadLine. Zero blocks until data arrives.
	ResponseTimeout time.Duration

	Logger *zerolog.Logger
}

func (c *DialConfig) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

// Conn is a connection to a line-oriented server. It is not safe for
// concurrent use: one request is in flight at a time.
type Conn struct {
	addr    string
	timeout time.Duration

	mu          sync.Mutex
	conn        net.Conn
	reader      *bufio.Reader
	closed      bool
	interrupted bool
}

// Dial connects to addr, retrying up to cfg.MaxAttempts times with a fixed
// delay between attempts.
func Dial(ctx context.Context, addr string, cfg DialConfig) (*Conn, error) {
	cfg.setDefaults()
	log := cfg.Logger

	var dialer net.Dialer
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			log.Info().Str("addr", addr).Int("attempt", attempt).Msg("connected to hand server")
			return newConn(nc, addr, cfg.ResponseTimeout), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &ConnectionError{Addr: addr, Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("connection attempt failed, retrying")
		select {
		case <-ctx.Done():
			return nil, &ConnectionError{Addr: addr, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(cfg.RetryDelay):
		}
	}

	log.Error().Err(lastErr).Int("attempts", cfg.MaxAttempts).Msg("failed to connect")
	return nil, &ConnectionError{Addr: addr, Attempts: cfg.MaxAttempts, Err: lastErr}
}

// NewConn wraps an established connection, e.g. one end of net.Pipe.
func NewConn(nc net.Conn) *Conn {
	return newConn(nc, nc.RemoteAddr().String(), 0)
}

func newConn(nc net.Conn, addr string, timeout time.Duration) *Conn {
	return &Conn{
		addr:    addr,
		timeout: timeout,
		conn:    nc,
		reader:  bufio.NewReaderSize(nc, BufferSize),
	}
}

// Addr returns the remote address.
func (c *Conn) Addr() string {
	return c.addr
}

// Send writes one command line in a single write. A trailing newline is
// appended if missing.
func (c *Conn) Send(line string) error {
	c.mu.Lock()
	nc, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed || nc == nil {
		return &Error{Op: "send", Err: net.ErrClosed}
	}

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := nc.Write([]byte(line)); err != nil {
		return &Error{Op: "send", Err: err}
	}
	return nil
}

// ReadLine blocks until one newline-terminated line, or BufferSize bytes,
// are available. The returned line has surrounding whitespace removed.
func (c *Conn) ReadLine() (string, error) {
	c.mu.Lock()
	nc, r, closed, interrupted := c.conn, c.reader, c.closed, c.interrupted
	c.mu.Unlock()
	if closed || nc == nil {
		return "", &Error{Op: "read", Err: net.ErrClosed}
	}
	if interrupted {
		return "", &Error{Op: "read", Err: ErrInterrupted}
	}

	if c.timeout > 0 {
		if err := nc.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", &Error{Op: "read", Err: err}
		}
	}

	line, err := r.ReadSlice('\n')
	switch {
	case err == nil:
	case errors.Is(err, bufio.ErrBufferFull):
		// Oversized reply: hand back what fits, the caller treats it as
		// malformed. The tail up to the newline belongs to the same reply.
		head := strings.TrimSpace(string(line))
		discardLine(r)
		return head, nil
	default:
		if len(line) == 0 {
			if c.isInterrupted() {
				err = ErrInterrupted
			}
			return "", &Error{Op: "read", Err: err}
		}
	}
	return strings.TrimSpace(string(line)), nil
}

// discardLine drops buffered input up to and including the next newline.
// A read error ends the discard; the next ReadLine reports it.
func discardLine(r *bufio.Reader) {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}

// Interrupt unblocks a pending ReadLine and fails every later one with
// ErrInterrupted. Sends still go through, so a final QUIT can be delivered.
func (c *Conn) Interrupt() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return
	}
	c.interrupted = true
	_ = c.conn.SetReadDeadline(time.Now())
}

func (c *Conn) isInterrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupted
}

// Request sends line and reads one response line.
func (c *Conn) Request(line string) (string, error) {
	if err := c.Send(line); err != nil {
		return "", err
	}
	return c.ReadLine()
}

// Close closes the connection. Closing twice, or a nil Conn, is a no-op.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
