// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"denoiser/internal/analysis"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// MeterFloorDB is the level shown as an empty bar.
const MeterFloorDB = -60.0

// LevelMsg carries one analysis frame of the live tap.
type LevelMsg struct {
	Level   float64
	LevelDB float64
	Bands   []analysis.BandLevel
}

// ElapsedMsg carries the capture manager's elapsed counter in seconds.
type ElapsedMsg int

// StoppedMsg tells the meter the session ended on its own.
type StoppedMsg struct {
	Err error
}

type meterKeys struct {
	Stop key.Binding
}

// MeterModel shows the input level, per-band levels and the elapsed time of a
// recording. It quits on q/ctrl+c or when a StoppedMsg arrives.
type MeterModel struct {
	title       string
	maxDuration int

	bar     progress.Model
	levelDB float64
	peakDB  float64
	bands   []analysis.BandLevel
	elapsed int
	err     error
	done    bool

	keys meterKeys
}

// NewMeterModel creates a meter. maxDuration is in seconds, zero for none.
func NewMeterModel(title string, maxDuration int) MeterModel {
	return MeterModel{
		title:       title,
		maxDuration: maxDuration,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		levelDB:     MeterFloorDB,
		peakDB:      MeterFloorDB,
		keys: meterKeys{
			Stop: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
		},
	}
}

func (m MeterModel) Init() tea.Cmd {
	return nil
}

// Err returns the error of a session that stopped on its own.
func (m MeterModel) Err() error {
	return m.err
}

func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, msg.Width-8)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Stop) {
			m.done = true
			return m, tea.Quit
		}

	case LevelMsg:
		m.levelDB = clampDB(msg.LevelDB)
		m.peakDB = math.Max(m.levelDB, m.peakDB)
		m.bands = msg.Bands

	case ElapsedMsg:
		m.elapsed = int(msg)

	case StoppedMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m MeterModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	status := recStyle.Render("● REC")
	if m.done {
		status = dimStyle.Render("■ STOPPED")
	}
	fmt.Fprintf(&sb, "%s  %s", status, formatClock(m.elapsed))
	if m.maxDuration > 0 {
		fmt.Fprintf(&sb, " / %s", formatClock(m.maxDuration))
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "%s %s\n", m.bar.ViewAs(LevelPercent(m.levelDB)),
		infoStyle.Render(fmt.Sprintf("%6.1f dB", m.levelDB)))
	sb.WriteString(dimStyle.Render(fmt.Sprintf("peak %6.1f dB", m.peakDB)))
	sb.WriteString("\n\n")

	for _, b := range m.bands {
		fmt.Fprintf(&sb, "%-7s %s\n", b.Name, highlightStyle.Render(fmt.Sprintf("%6.1f dB", clampDB(b.LevelDB))))
	}
	if len(m.bands) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString(infoStyle.Render("q: Stop recording"))
	return sb.String()
}

// LevelPercent maps a dBFS level onto the bar, MeterFloorDB being empty.
func LevelPercent(db float64) float64 {
	p := (db - MeterFloorDB) / -MeterFloorDB
	return math.Max(0, math.Min(1, p))
}

func clampDB(db float64) float64 {
	if math.IsNaN(db) || db < MeterFloorDB {
		return MeterFloorDB
	}
	return db
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Meter runs a MeterModel in its own program so capture callbacks can feed
// it with Send.
type Meter struct {
	program *tea.Program
}

func NewMeter(title string, maxDuration int) *Meter {
	return &Meter{program: tea.NewProgram(NewMeterModel(title, maxDuration))}
}

// Send delivers a message to the meter from any goroutine. It blocks until Run
// has started and is a no-op once Run has returned.
func (m *Meter) Send(msg tea.Msg) {
	m.program.Send(msg)
}

// Close stops the meter. Pending and later Send calls return immediately.
func (m *Meter) Close() {
	m.program.Kill()
}

// Run blocks until the user stops the recording or a StoppedMsg arrives.
func (m *Meter) Run() error {
	final, err := m.program.Run()
	if err != nil {
		return err
	}
	return final.(MeterModel).Err()
}
