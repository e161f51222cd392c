// Package allegro provides a supervised control client for the Allegro
// robotic hand.
//
// The hand itself is driven by an external server (grasp) that talks CAN to
// the hardware and exposes a line-based TCP protocol on port 12321. This
// module launches that server in its own process group, connects to it,
// sends joint commands and queries, and tears everything down again on exit.
//
// # Installation
//
//	go install github.com/gwillem/allegro/cmd/allegro@latest
//
// # Usage
//
// Write a configuration file pointing at the server binary:
//
//	allegro setup
//
// Then run the demo gestures, or drive the hand with a joystick:
//
//	allegro gestures
//	allegro joystick
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/allegro: CLI with gestures, cycle, set, monitor, joystick and setup commands
//   - cmd/fakehand: stand-in server for running without hardware
//   - pkg/allegro: Control session (launch, connect, command, shutdown)
//   - pkg/supervisor: Server process and process-group lifecycle
//   - pkg/transport: Line-delimited request/response connection
//   - pkg/protocol: Joint vectors and wire format
//   - pkg/input: Joystick axis input
//   - pkg/teleop: Joystick teleoperation controller
//   - pkg/sequence: Scripted gestures and monitoring
//   - pkg/config: TOML configuration file
//   - pkg/handtest: In-process fake server for tests
package allegro
