// Package input reads analog axes from human input devices.
package input

import (
	"math"
	"sync"

	"github.com/gwillem/allegro/pkg/protocol"
)

// AxisSource yields normalized axis samples in [-1, 1].
type AxisSource interface {
	// Axis returns the latest sample of axis index, or false when the
	// device has no such axis or has not reported it yet.
	Axis(index int) (float64, bool)
	Close() error
}

// Static is an AxisSource with fixed values, settable at runtime.
type Static struct {
	mu   sync.Mutex
	axes map[int]float64
}

// NewStatic returns a source reporting the given axis values.
func NewStatic(axes map[int]float64) *Static {
	s := &Static{axes: make(map[int]float64, len(axes))}
	for i, v := range axes {
		s.axes[i] = Clamp(v)
	}
	return s
}

// Set updates one axis.
func (s *Static) Set(index int, value float64) {
	s.mu.Lock()
	s.axes[index] = Clamp(value)
	s.mu.Unlock()
}

func (s *Static) Axis(index int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.axes[index]
	return v, ok
}

func (s *Static) Close() error { return nil }

// Clamp limits a sample to [-1, 1]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// AxisToAngle maps a sample in [-1, 1] linearly onto [0, maxAngle].
func AxisToAngle(sample, maxAngle float64) float64 {
	return ((Clamp(sample) + 1) / 2) * maxAngle
}

// SpreadVector returns a grasp vector with every joint at angle except the
// spreading joints, which stay at zero.
func SpreadVector(angle float64) protocol.JointVector {
	return protocol.Fill(angle).WithSpreadZeroed()
}
