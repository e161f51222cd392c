package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Linux joystick API event types (linux/joystick.h).
const (
	jsEventButton = 0x01
	jsEventAxis   = 0x02
	jsEventInit   = 0x80
)

// jsEvent mirrors struct js_event.
type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

const jsEventSize = 8

// Joystick reads a Linux joystick device (/dev/input/jsN) in the background
// and keeps the latest value of every axis and button.
type Joystick struct {
	path string
	r    io.ReadCloser

	mu      sync.RWMutex
	axes    map[int]float64
	buttons map[int]bool
	err     error

	done chan struct{}
}

// OpenJoystick opens a joystick device and starts reading events.
func OpenJoystick(path string) (*Joystick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open joystick: %w", err)
	}
	return NewJoystick(path, f), nil
}

// NewJoystick reads js_event records from r. The Joystick owns r.
func NewJoystick(name string, r io.ReadCloser) *Joystick {
	j := &Joystick{
		path:    name,
		r:       r,
		axes:    make(map[int]float64),
		buttons: make(map[int]bool),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

// Name returns the device path.
func (j *Joystick) Name() string {
	return j.path
}

func (j *Joystick) run() {
	defer close(j.done)
	for {
		var ev jsEvent
		if err := binary.Read(j.r, binary.LittleEndian, &ev); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				j.mu.Lock()
				j.err = err
				j.mu.Unlock()
			}
			return
		}
		j.apply(ev)
	}
}

func (j *Joystick) apply(ev jsEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch ev.Type &^ jsEventInit {
	case jsEventAxis:
		j.axes[int(ev.Number)] = Clamp(float64(ev.Value) / 32767)
	case jsEventButton:
		j.buttons[int(ev.Number)] = ev.Value != 0
	}
}

// Axis returns the latest value of axis index.
func (j *Joystick) Axis(index int) (float64, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v, ok := j.axes[index]
	return v, ok
}

// Button reports whether button index is pressed.
func (j *Joystick) Button(index int) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.buttons[index]
}

// NumAxes returns how many axes the device has reported.
func (j *Joystick) NumAxes() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.axes)
}

// Err returns the read error that stopped the device, if any.
func (j *Joystick) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// Close closes the device and waits for the reader to stop.
func (j *Joystick) Close() error {
	err := j.r.Close()
	<-j.done
	return err
}

// ListJoysticks returns the joystick device nodes present on this machine.
func ListJoysticks() ([]string, error) {
	paths, err := filepath.Glob("/dev/input/js*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
