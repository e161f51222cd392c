package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gwillem/allegro/pkg/sequence"
)

type CycleCommand struct {
	Steps     int           `long:"steps" default:"10" description:"Steps per half cycle"`
	Peak      float64       `long:"peak" default:"1.0" description:"Closing angle in radians"`
	OpenFrom  float64       `long:"open-from" default:"1.2" description:"Angle the opening ramp starts from"`
	StepDelay time.Duration `long:"step-delay" default:"50ms" description:"Delay between steps"`
}

func (c *CycleCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, true)

	ctx, cancel := signalContext()
	defer cancel()

	hand, err := openHand(ctx, cfg, &log)
	if err != nil {
		return err
	}
	defer hand.Shutdown()

	fmt.Println("Cycling hand. Press Ctrl+C to stop.")

	poses := sequence.Cycle(c.Steps, c.Peak, c.OpenFrom, c.StepDelay)
	failures := 0
	sequence.Repeat(ctx, hand, poses, func(p sequence.Pose, ok bool) {
		if !ok {
			failures++
		}
	})

	fmt.Println()
	if failures > 0 {
		fmt.Println(errorStyle.Render(fmt.Sprintf("%d commands not acknowledged", failures)))
	}
	return nil
}
