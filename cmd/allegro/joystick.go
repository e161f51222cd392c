package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/allegro/pkg/input"
	"github.com/gwillem/allegro/pkg/protocol"
	"github.com/gwillem/allegro/pkg/teleop"
)

type JoystickCommand struct {
	Device   string  `long:"device" description:"Joystick device (overrides config)"`
	Axis     int     `long:"axis" default:"-1" description:"Axis index (overrides config)"`
	MaxAngle float64 `long:"max-angle" description:"Angle at full deflection in radians (overrides config)"`
	Hz       int     `long:"hz" description:"Control loop frequency (overrides config)"`
	Feedback bool    `long:"feedback" description:"Read back joint positions every step"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const commandedSeries = "commanded"

// Finger colors - distinct colors for each finger
var fingerColors = map[protocol.Finger]string{
	protocol.Index:  "196", // red
	protocol.Middle: "226", // yellow
	protocol.Ring:   "46",  // green
	protocol.Thumb:  "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type teleopModel struct {
	ctrl      *teleop.Controller
	chart     *streamlinechart.Model
	width     int      // terminal width
	height    int      // terminal height
	logs      []string // last N log messages
	quitting  bool
	lastAngle float64
	lastState teleop.State
	seen      bool
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if the commanded angle changed since the last state
func (m *teleopModel) hasMovement(s teleop.State) bool {
	if !m.seen {
		return true
	}
	return s.Angle != m.lastAngle || s.HasMeasured
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, ctrl.MaxAngle()),
	)

	chart.SetDataSetStyles(commandedSeries, runes.ThinLineStyle, dimStyle)
	for _, f := range protocol.AllFingers() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(fingerColors[f]))
		chart.SetDataSetStyles(f.String(), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.State(msg)
		if state.Error == nil || state.Acked {
			// Only update chart if there's movement (freeze when idle)
			if m.hasMovement(state) {
				m.chart.PushDataSet(commandedSeries, state.Angle)
				if state.HasMeasured {
					for _, f := range protocol.AllFingers() {
						m.chart.PushDataSet(f.String(), fingerClosure(state.Measured, f))
					}
				}
				m.chart.DrawAll()
				m.lastAngle = state.Angle
				m.seen = true
			}
		}
		m.lastState = state
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

// fingerClosure averages the three flexion joints of a finger.
func fingerClosure(v protocol.JointVector, f protocol.Finger) float64 {
	seg := v.Finger(f)
	return (seg[1] + seg[2] + seg[3]) / 3
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Allegro Joystick"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  axis %+.3f  angle %.3f rad", m.lastState.Sample, m.lastState.Angle)))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	items := []string{dimStyle.Bold(true).Render("━━") + " " + commandedSeries}
	for _, f := range protocol.AllFingers() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(fingerColors[f])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+f.String())
	}
	return strings.Join(items, "  ")
}

func (c *JoystickCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	js := cfg.Joystick
	if c.Device != "" {
		js.Device = c.Device
	}
	if c.Axis >= 0 {
		js.Axis = c.Axis
	}
	if c.MaxAngle > 0 {
		js.MaxAngle = c.MaxAngle
	}
	if c.Hz > 0 {
		js.Hz = c.Hz
	}

	stick, err := input.OpenJoystick(js.Device)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("No joystick available: "+err.Error()))
		return err
	}
	defer stick.Close()
	fmt.Printf("Initialized joystick: %s\n", stick.Name())

	ctx, cancel := signalContext()
	defer cancel()

	// Ending the loop context also interrupts a read the loop is blocked on.
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	// Session logs go to stderr until the TUI takes over the terminal.
	log := newLogger(os.Stderr, true)
	hand, err := openHand(loopCtx, cfg, &log)
	if err != nil {
		return err
	}
	defer hand.Shutdown()

	ctrl, err := teleop.NewController(teleop.Config{
		Hand:     hand,
		Source:   stick,
		Axis:     js.Axis,
		MaxAngle: js.MaxAngle,
		Hz:       js.Hz,
		Feedback: c.Feedback,
	})
	if err != nil {
		return err
	}

	// The session keeps &log, so this redirects its output into the log box.
	log = newLogger(ctrl, false)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ctrl.Start(loopCtx)
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// The loop must be idle before Shutdown uses the connection.
	stopLoop()
	<-loopDone
	log = newLogger(os.Stderr, true)

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run teleoperation UI: %w", runErr)
	}
	fmt.Println("Joystick control terminated")
	return nil
}
