package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gwillem/allegro/pkg/protocol"
)

type SetCommand struct {
	Args struct {
		Values []string `positional-arg-name:"radians" description:"16 joint positions"`
	} `positional-args:"yes"`
}

func (c *SetCommand) Execute(args []string) error {
	values := make([]float64, 0, len(c.Args.Values))
	for _, s := range c.Args.Values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse joint value %q: %w", s, err)
		}
		values = append(values, v)
	}
	joints, err := protocol.VectorFromSlice(values)
	if err != nil {
		return err
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

	if !hand.SetJointPositions(joints) {
		fmt.Println(errorStyle.Render("Command not acknowledged"))
		return nil
	}
	fmt.Println(successStyle.Render("OK") + "  " + dimStyle.Render(joints.String()))
	return nil
}
