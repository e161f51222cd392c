// Package protocol defines the joint data model and the line-based wire
// protocol spoken by the Allegro hand control server.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// NumJoints is the number of actuated joints on the hand.
const NumJoints = 16

// JointsPerFinger is the number of joints in each finger segment.
const JointsPerFinger = 4

// JointVector holds one value per joint: radians for positions, torque units
// for torques. Joints are ordered index, middle, ring, thumb.
type JointVector [NumJoints]float64

// Finger identifies a 4-joint segment of the hand.
type Finger int

// Fingers in joint order.
const (
	Index Finger = iota
	Middle
	Ring
	Thumb
)

func (f Finger) String() string {
	switch f {
	case Index:
		return "index"
	case Middle:
		return "middle"
	case Ring:
		return "ring"
	case Thumb:
		return "thumb"
	}
	return fmt.Sprintf("finger(%d)", int(f))
}

// AllFingers returns all fingers in joint order.
func AllFingers() []Finger {
	return []Finger{Index, Middle, Ring, Thumb}
}

// SpreadJoints are the abduction joints at the base of the index, middle and
// ring fingers. Grasp poses keep them at zero.
var SpreadJoints = [...]int{0, 4, 8}

// ErrJointCount is returned when a sequence does not hold exactly NumJoints values.
var ErrJointCount = fmt.Errorf("joint vector must have exactly %d values", NumJoints)

// VectorFromSlice copies values into a JointVector.
func VectorFromSlice(values []float64) (JointVector, error) {
	var v JointVector
	if len(values) != NumJoints {
		return v, fmt.Errorf("%w, got %d", ErrJointCount, len(values))
	}
	copy(v[:], values)
	return v, nil
}

// Fill returns a vector with every joint set to x.
func Fill(x float64) JointVector {
	var v JointVector
	for i := range v {
		v[i] = x
	}
	return v
}

// Finger returns the four joint values of finger f.
func (v JointVector) Finger(f Finger) [JointsPerFinger]float64 {
	var seg [JointsPerFinger]float64
	copy(seg[:], v[int(f)*JointsPerFinger:])
	return seg
}

// SetFinger overwrites the four joint values of finger f.
func (v *JointVector) SetFinger(f Finger, seg [JointsPerFinger]float64) {
	copy(v[int(f)*JointsPerFinger:], seg[:])
}

// WithSpreadZeroed returns a copy of v with the spreading joints set to zero.
func (v JointVector) WithSpreadZeroed() JointVector {
	for _, j := range SpreadJoints {
		v[j] = 0
	}
	return v
}

// Slice returns the values as a freshly allocated slice.
func (v JointVector) Slice() []float64 {
	out := make([]float64, NumJoints)
	copy(out, v[:])
	return out
}

// String formats the vector grouped by finger.
func (v JointVector) String() string {
	var sb strings.Builder
	for i, f := range AllFingers() {
		if i > 0 {
			sb.WriteString(" | ")
		}
		seg := v.Finger(f)
		for j, x := range seg {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(x, 'f', 3, 64))
		}
	}
	return sb.String()
}
