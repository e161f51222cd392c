package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gwillem/allegro/pkg/protocol"
)

// Commander accepts joint position commands.
type Commander interface {
	SetJointPositions(protocol.JointVector) bool
}

// Reader queries joint state.
type Reader interface {
	GetJointPositions() (protocol.JointVector, bool)
	GetJointTorques() (protocol.JointVector, bool)
}

// RunError lists the poses the server did not acknowledge.
type RunError struct {
	Failed []string
	Total  int
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%d of %d poses not acknowledged: %s", len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
}

// Run sends each pose and holds it. A rejected pose does not stop the run;
// all rejections are reported in a *RunError at the end. Run returns early
// with ctx.Err() when ctx is canceled.
func Run(ctx context.Context, hand Commander, poses []Pose, onPose func(Pose, bool)) error {
	var failed []string
	for _, p := range poses {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok := hand.SetJointPositions(p.Joints)
		if !ok {
			failed = append(failed, p.Name)
		}
		if onPose != nil {
			onPose(p, ok)
		}

		if err := sleep(ctx, p.Hold); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return &RunError{Failed: failed, Total: len(poses)}
	}
	return nil
}

// Repeat runs poses over and over until ctx is canceled.
func Repeat(ctx context.Context, hand Commander, poses []Pose, onPose func(Pose, bool)) error {
	for {
		err := Run(ctx, hand, poses, onPose)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var runErr *RunError
		if err != nil && !errors.As(err, &runErr) {
			return err
		}
	}
}

// Reading is one sample of the hand's joint state. Each half may be absent.
type Reading struct {
	Positions    protocol.JointVector
	HasPositions bool
	Torques      protocol.JointVector
	HasTorques   bool
	Timestamp    time.Time
}

// Monitor polls positions and torques every interval and hands each reading
// to fn until ctx is canceled.
func Monitor(ctx context.Context, hand Reader, interval time.Duration, fn func(Reading)) error {
	for {
		var r Reading
		r.Positions, r.HasPositions = hand.GetJointPositions()
		r.Torques, r.HasTorques = hand.GetJointTorques()
		r.Timestamp = time.Now()
		fn(r)

		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
