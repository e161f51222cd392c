// Package handtest provides an in-process fake of the hand control server
// for tests and dry runs.
package handtest

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/gwillem/allegro/pkg/protocol"
)

// Server speaks the hand wire protocol. SET_JOINTS updates the positions it
// reports for GET_JOINTS; torques are fixed unless changed with SetTorques.
type Server struct {
	ln net.Listener

	mu        sync.Mutex
	positions protocol.JointVector
	torques   protocol.JointVector
	overrides map[string]string
	silent    map[string]bool
	received  []string
	conns     int
	quit      chan struct{}
	quitOnce  sync.Once
	stop      chan struct{}
	stopOnce  sync.Once

	wg sync.WaitGroup
}

// Listen starts a server on addr. Use "127.0.0.1:0" for an ephemeral port.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:        ln,
		overrides: make(map[string]string),
		silent:    make(map[string]bool),
		quit:      make(chan struct{}),
		stop:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Quit is closed once a client sends QUIT.
func (s *Server) Quit() <-chan struct{} {
	return s.quit
}

// SetPositions sets the vector reported for GET_JOINTS.
func (s *Server) SetPositions(v protocol.JointVector) {
	s.mu.Lock()
	s.positions = v
	s.mu.Unlock()
}

// SetTorques sets the vector reported for GET_TORQUES.
func (s *Server) SetTorques(v protocol.JointVector) {
	s.mu.Lock()
	s.torques = v
	s.mu.Unlock()
}

// Override makes the server answer cmd with a raw response line instead of
// the normal reply.
func (s *Server) Override(cmd, response string) {
	s.mu.Lock()
	s.overrides[cmd] = response
	s.mu.Unlock()
}

// Silence makes the server read cmd without ever answering it.
func (s *Server) Silence(cmd string) {
	s.mu.Lock()
	s.silent[cmd] = true
	s.mu.Unlock()
}

// Received returns every request line seen so far.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Connections returns the number of accepted clients.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// Close stops accepting and waits for the client handler to return.
func (s *Server) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()

		// One client at a time, like the real server.
		if s.handle(conn) {
			s.ln.Close()
			return
		}
	}
}

// handle serves one client and reports whether QUIT was received.
func (s *Server) handle(conn net.Conn) bool {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
		case <-s.stop:
			conn.Close()
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		cmd, args := protocol.ParseCommand(line)

		s.mu.Lock()
		s.received = append(s.received, line)
		override, hasOverride := s.overrides[cmd]
		silent := s.silent[cmd]
		s.mu.Unlock()

		if silent {
			continue
		}

		reply := s.reply(cmd, args)
		if hasOverride {
			reply = override
			if !strings.HasSuffix(reply, "\n") {
				reply += "\n"
			}
		}
		if reply != "" {
			if _, err := conn.Write([]byte(reply)); err != nil {
				return false
			}
		}
		if cmd == protocol.CmdQuit {
			s.quitOnce.Do(func() { close(s.quit) })
			return true
		}
	}
	return false
}

func (s *Server) reply(cmd string, args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case protocol.CmdSetJoints:
		v, err := protocol.ParseVector(cmd, strings.Join(args, " "))
		if err != nil {
			return "ERR\n"
		}
		s.positions = v
		return protocol.Line(protocol.Ack)
	case protocol.CmdGetJoints:
		return protocol.EncodeVector(s.positions)
	case protocol.CmdGetTorques:
		return protocol.EncodeVector(s.torques)
	case protocol.CmdQuit:
		return protocol.Line(protocol.Ack)
	}
	return "ERR\n"
}
