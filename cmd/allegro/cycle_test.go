package main

import (
	"testing"

	"github.com/jessevdk/go-flags"
)

func parseCycle(t *testing.T, args ...string) CycleCommand {
	t.Helper()
	var o Options
	p := flags.NewParser(&o, flags.None)
	p.CommandHandler = func(flags.Commander, []string) error { return nil }
	if _, err := p.ParseArgs(append([]string{"cycle"}, args...)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return o.Cycle
}

func TestCycleOpenFromFlag(t *testing.T) {
	if got := parseCycle(t).OpenFrom; got != 1.2 {
		t.Errorf("default OpenFrom = %v, want 1.2", got)
	}
	c := parseCycle(t, "--open-from", "0.8", "--peak", "0.5")
	if c.OpenFrom != 0.8 || c.Peak != 0.5 {
		t.Errorf("got OpenFrom=%v Peak=%v, want 0.8 and 0.5", c.OpenFrom, c.Peak)
	}
}
