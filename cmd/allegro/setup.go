package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/allegro/pkg/config"
	"github.com/gwillem/allegro/pkg/input"
	"github.com/gwillem/allegro/pkg/supervisor"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Allegro Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return err
	}

	// Step 1: Locate the server
	fmt.Println(subHeaderStyle.Render("━━━ Hand server ━━━"))
	if cfg.Server.Executable == "" {
		if path, err := supervisor.FindExecutable("", supervisor.DefaultSearchPaths()); err == nil {
			cfg.Server.Executable = path
			fmt.Printf("Found server at %s\n", path)
		}
	}
	port := strconv.Itoa(cfg.Server.Port)

	serverForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Connect to an already running server?").
				Affirmative("Attach").
				Negative("Launch").
				Value(&cfg.Server.Attach),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Server executable").
				Description("Path to the grasp binary").
				Value(&cfg.Server.Executable).
				Validate(func(s string) error {
					_, err := supervisor.FindExecutable(s, nil)
					return err
				}),
		).WithHideFunc(func() bool { return cfg.Server.Attach }),
		huh.NewGroup(
			huh.NewInput().Title("Host").Value(&cfg.Server.Host),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 || n > 65535 {
						return errors.New("port must be between 1 and 65535")
					}
					return nil
				}),
		),
	)
	if err := serverForm.Run(); err != nil {
		return err
	}
	cfg.Server.Port, _ = strconv.Atoi(port)

	// Step 2: Pick a joystick
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Joystick ━━━"))
	devices, err := input.ListJoysticks()
	if err != nil || len(devices) == 0 {
		fmt.Println(dimStyle.Render("No joystick found. Keeping " + cfg.Joystick.Device))
	} else {
		var options []huh.Option[string]
		for _, d := range devices {
			options = append(options, huh.NewOption(d, d))
		}
		cfg.Joystick.Device = devices[0]
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Which joystick?").
					Options(options...).
					Value(&cfg.Joystick.Device),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Try the hand with: " + headerStyle.Render("allegro gestures"))
	return nil
}
