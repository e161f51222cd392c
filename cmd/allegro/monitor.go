package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/allegro/pkg/protocol"
	"github.com/gwillem/allegro/pkg/sequence"
)

type MonitorCommand struct {
	Interval time.Duration `long:"interval" default:"100ms" description:"Polling interval"`
	Once     bool          `long:"once" description:"Print one reading and exit"`
	Pose     string        `long:"pose" default:"four" description:"Gesture to hold while monitoring (empty for none)"`
}

func (c *MonitorCommand) Execute(args []string) error {
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

	if c.Pose != "" {
		p, ok := sequence.Gesture(c.Pose)
		if !ok {
			return fmt.Errorf("unknown gesture %q", c.Pose)
		}
		if !hand.SetJointPositions(p.Joints) {
			fmt.Println(errorStyle.Render("Initial pose not acknowledged"))
		}
	}

	if c.Once {
		var r sequence.Reading
		r.Positions, r.HasPositions = hand.GetJointPositions()
		r.Torques, r.HasTorques = hand.GetJointTorques()
		r.Timestamp = time.Now()
		fmt.Println(renderReading(r))
		return nil
	}

	sequence.Monitor(ctx, hand, c.Interval, func(r sequence.Reading) {
		fmt.Println(renderReading(r))
	})
	return nil
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableFingerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderReading draws positions and torques per finger. Absent halves are
// shown as such instead of stopping the monitor.
func renderReading(r sequence.Reading) string {
	headers := []string{"Finger"}
	for j := 0; j < protocol.JointsPerFinger; j++ {
		headers = append(headers, "q"+strconv.Itoa(j))
	}
	for j := 0; j < protocol.JointsPerFinger; j++ {
		headers = append(headers, "τ"+strconv.Itoa(j))
	}

	rows := make([][]string, 0, len(protocol.AllFingers()))
	for _, f := range protocol.AllFingers() {
		row := []string{f.String()}
		row = append(row, segmentCells(r.Positions, r.HasPositions, f)...)
		row = append(row, segmentCells(r.Torques, r.HasTorques, f)...)
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableFingerStyle
			}
			return tableCellStyle
		})

	var sb strings.Builder
	sb.WriteString(dimStyle.Render(r.Timestamp.Format("15:04:05.000")))
	if !r.HasPositions {
		sb.WriteString("  " + errorStyle.Render("positions unavailable"))
	}
	if !r.HasTorques {
		sb.WriteString("  " + errorStyle.Render("torques unavailable"))
	}
	sb.WriteString("\n")
	sb.WriteString(t.Render())
	return sb.String()
}

func segmentCells(v protocol.JointVector, ok bool, f protocol.Finger) []string {
	cells := make([]string, protocol.JointsPerFinger)
	seg := v.Finger(f)
	for i := range cells {
		if !ok {
			cells[i] = "-"
			continue
		}
		cells[i] = strconv.FormatFloat(seg[i], 'f', 3, 64)
	}
	return cells
}
