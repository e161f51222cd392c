package main

import (
	"strings"
	"testing"
	"time"

	"github.com/gwillem/allegro/pkg/protocol"
	"github.com/gwillem/allegro/pkg/sequence"
)

func TestRenderReadingAbsentTorques(t *testing.T) {
	r := sequence.Reading{
		Positions:    protocol.Fill(0.5),
		HasPositions: true,
		Timestamp:    time.Now(),
	}

	out := renderReading(r)
	if !strings.Contains(out, "torques unavailable") {
		t.Errorf("missing torque notice:\n%s", out)
	}
	if strings.Contains(out, "positions unavailable") {
		t.Errorf("positions wrongly reported unavailable:\n%s", out)
	}
	if !strings.Contains(out, "0.500") {
		t.Errorf("positions not rendered:\n%s", out)
	}
	for _, f := range protocol.AllFingers() {
		if !strings.Contains(out, f.String()) {
			t.Errorf("finger %s missing:\n%s", f, out)
		}
	}
}

func TestSelectPoses(t *testing.T) {
	c := &GesturesCommand{Hold: 10 * time.Millisecond}
	c.Args.Names = []string{"fist", "four"}

	poses, err := c.selectPoses()
	if err != nil {
		t.Fatalf("selectPoses: %v", err)
	}
	if len(poses) != 2 || poses[0].Name != "fist" || poses[1].Hold != 10*time.Millisecond {
		t.Errorf("selectPoses = %+v", poses)
	}

	c.Args.Names = []string{"wave"}
	if _, err := c.selectPoses(); err == nil {
		t.Error("unknown gesture should fail")
	}

	c.Args.Names = nil
	poses, _ = c.selectPoses()
	if len(poses) != len(sequence.GestureNames()) {
		t.Errorf("default selection has %d poses", len(poses))
	}
}
