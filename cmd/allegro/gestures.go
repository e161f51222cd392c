package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/allegro/pkg/sequence"
)

type GesturesCommand struct {
	Pick bool          `long:"pick" description:"Choose gestures interactively"`
	Hold time.Duration `long:"hold" default:"1s" description:"How long each gesture is held"`
	Args struct {
		Names []string `positional-arg-name:"gesture" description:"Gestures to run (default: all)"`
	} `positional-args:"yes"`
}

func (c *GesturesCommand) Execute(args []string) error {
	poses, err := c.selectPoses()
	if err != nil {
		return err
	}
	if len(poses) == 0 {
		fmt.Println("No gestures selected.")
		return nil
	}

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

	fmt.Println(headerStyle.Render("Allegro Gestures"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))

	err = sequence.Run(ctx, hand, poses, func(p sequence.Pose, ok bool) {
		status := successStyle.Render("ok")
		if !ok {
			status = errorStyle.Render("failed")
		}
		fmt.Printf("  %-6s %s  %s\n", p.Name, status, dimStyle.Render(p.Joints.String()))
	})

	var runErr *sequence.RunError
	switch {
	case errors.As(err, &runErr):
		fmt.Println(errorStyle.Render(runErr.Error()))
		return nil
	case ctx.Err() != nil:
		return nil
	}
	return err
}

func (c *GesturesCommand) selectPoses() ([]sequence.Pose, error) {
	names := c.Args.Names
	if c.Pick {
		var options []huh.Option[string]
		for _, name := range sequence.GestureNames() {
			options = append(options, huh.NewOption(name, name))
		}
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewMultiSelect[string]().
					Title("Which gestures?").
					Options(options...).
					Value(&names),
			),
		)
		if err := form.Run(); err != nil {
			return nil, err
		}
	}

	if len(names) == 0 {
		names = sequence.GestureNames()
	}

	poses := make([]sequence.Pose, 0, len(names))
	for _, name := range names {
		p, ok := sequence.Gesture(name)
		if !ok {
			return nil, fmt.Errorf("unknown gesture %q (choose from %s)", name, strings.Join(sequence.GestureNames(), ", "))
		}
		p.Hold = c.Hold
		poses = append(poses, p)
	}
	return poses, nil
}
