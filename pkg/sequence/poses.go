// Package sequence runs scripted pose sequences on top of a hand session.
package sequence

import (
	"time"

	"github.com/gwillem/allegro/pkg/protocol"
)

// DefaultHold is how long a gesture is held before the next one.
const DefaultHold = time.Second

// Pose is one commanded joint configuration.
type Pose struct {
	Name   string
	Joints protocol.JointVector
	Hold   time.Duration
}

func pose(name string, build func(v *protocol.JointVector)) Pose {
	var v protocol.JointVector
	build(&v)
	return Pose{Name: name, Joints: v.WithSpreadZeroed(), Hold: DefaultHold}
}

func fill(v *protocol.JointVector, from, to int, x float64) {
	for i := from; i < to; i++ {
		v[i] = x
	}
}

// Gestures returns the demo gestures in presentation order.
func Gestures() []Pose {
	return []Pose{
		pose("fist", func(v *protocol.JointVector) {
			fill(v, 0, 16, 1)
		}),
		pose("one", func(v *protocol.JointVector) {
			fill(v, 0, 16, 1)
			fill(v, 0, 4, 0)
		}),
		pose("two", func(v *protocol.JointVector) {
			fill(v, 0, 16, 1)
			fill(v, 0, 8, 0)
		}),
		pose("three", func(v *protocol.JointVector) {
			fill(v, 0, 16, 1)
			fill(v, 0, 12, 0)
		}),
		pose("four", func(v *protocol.JointVector) {}),
		pose("six", func(v *protocol.JointVector) {
			fill(v, 0, 8, 1.3)
		}),
		pose("seven", func(v *protocol.JointVector) {
			fill(v, 0, 8, 0.7)
			v[1] = 1
			v[5] = 1
			fill(v, 8, 12, 1.4)
			fill(v, 12, 16, 0.9)
			v[13] = 0.4
			v[14] = 0.5
		}),
		pose("eight", func(v *protocol.JointVector) {
			fill(v, 4, 12, 1.4)
		}),
		pose("nine", func(v *protocol.JointVector) {
			fill(v, 2, 4, 1.3)
			fill(v, 4, 12, 1.3)
			fill(v, 12, 16, 1.0)
		}),
	}
}

// Gesture looks up a gesture by name.
func Gesture(name string) (Pose, bool) {
	for _, p := range Gestures() {
		if p.Name == name {
			return p, true
		}
	}
	return Pose{}, false
}

// GestureNames returns the names accepted by Gesture.
func GestureNames() []string {
	gestures := Gestures()
	names := make([]string, len(gestures))
	for i, p := range gestures {
		names[i] = p.Name
	}
	return names
}

// Cycle closes the hand from 0 to peak in steps increments, then opens it
// from openFrom back to 0. Spreading joints stay at zero throughout.
func Cycle(steps int, peak, openFrom float64, stepHold time.Duration) []Pose {
	if steps <= 0 {
		steps = 1
	}
	poses := make([]Pose, 0, 2*(steps+1))
	for step := 0; step <= steps; step++ {
		angle := peak * float64(step) / float64(steps)
		poses = append(poses, Pose{Name: "close", Joints: protocol.Fill(angle).WithSpreadZeroed(), Hold: stepHold})
	}
	for step := 0; step <= steps; step++ {
		angle := openFrom * float64(steps-step) / float64(steps)
		poses = append(poses, Pose{Name: "open", Joints: protocol.Fill(angle).WithSpreadZeroed(), Hold: stepHold})
	}
	return poses
}
