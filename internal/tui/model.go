package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Log file path
var logFile *os.File

// InitLogger initializes the log file.
func InitLogger() error {
	dir := filepath.Join(os.TempDir(), "throttle")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var err error
	logFile, err = os.OpenFile(filepath.Join(dir, "throttle.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	return err
}

// CloseLogger closes the log file.
func CloseLogger() {
	if logFile != nil {
		logFile.Close()
	}
}

// Log writes a message to the log file.
func Log(format string, args ...interface{}) {
	if logFile == nil {
		return
	}
	msg := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	logFile.WriteString(msg)
	logFile.Sync()
}

// StatusSnapshot is the data the dashboard renders each tick; the CLI
// feeds it from daemon.Status so this package stays free of an import
// on internal/daemon.
type StatusSnapshot struct {
	Running     bool
	Triggered   bool
	Scenario    string
	Uptime      string
	Concurrency int
	GoalTps     float64
	Stable      bool
	LastError   string
}

// PollFunc fetches the latest StatusSnapshot from the daemon.
type PollFunc func() (StatusSnapshot, error)

// tickMsg drives the one-second refresh.
type tickMsg time.Time

// StopMsg requests the dashboard quit.
type StopMsg struct{}

// Model is a live read-only dashboard over a running daemon: goal TPS,
// concurrency and a rolling concurrency sparkline, refreshed once a
// second. It replaces the original interactive setup wizard, which
// belonged to a config shape this project no longer has; `throttle run`
// now owns configuration entirely via the YAML file.
type Model struct {
	poll     PollFunc
	snap     StatusSnapshot
	err      error
	history  []int
	width    int
	progress progress.Model
}

const historyLen = 40

// NewModel constructs a dashboard Model polling via poll.
func NewModel(poll PollFunc) Model {
	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40
	return Model{poll: poll, width: 60, progress: p}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.poll()
		if err != nil {
			return errMsg{err}
		}
		return snap
	}
}

type errMsg struct{ err error }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case StopMsg:
		return m, tea.Quit
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())
	case StatusSnapshot:
		m.err = nil
		m.snap = msg
		m.history = append(m.history, msg.Concurrency)
		if len(m.history) > historyLen {
			m.history = m.history[len(m.history)-historyLen:]
		}
	case errMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(MiniLogo())
	b.WriteString("  ")
	b.WriteString(TitleStyle.Render(" DASHBOARD "))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render("  ✗ not connected: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	var statusIcon, statusText string
	switch {
	case m.snap.Triggered:
		statusIcon, statusText = TriggerPulled, "RUNNING"
	case m.snap.Running:
		statusIcon, statusText = TriggerReady, "ARMED"
	default:
		statusIcon, statusText = CrossMark, "STOPPED"
	}
	b.WriteString(fmt.Sprintf("  %s %s   %s\n\n", SuccessStyle.Render(statusIcon), SuccessStyle.Render(statusText), DimStyle.Render(m.snap.Scenario)))

	b.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render("Goal TPS:"), ValueStyle.Render(fmt.Sprintf("%.0f", m.snap.GoalTps))))
	b.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render("Concurrency:"), ValueStyle.Render(fmt.Sprintf("%d", m.snap.Concurrency))))

	stability := 0.5
	if m.snap.Stable {
		stability = 1.0
	}
	b.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render("Stability:"), m.progress.ViewAs(stability)))
	b.WriteString(fmt.Sprintf("  %s %s\n\n", LabelStyle.Render("Uptime:"), ValueStyle.Render(m.snap.Uptime)))

	b.WriteString(LabelStyle.Render("  Concurrency history"))
	b.WriteString("\n  ")
	b.WriteString(sparkline(m.history))
	b.WriteString("\n")

	if m.snap.LastError != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("  last error: " + m.snap.LastError))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(DimStyle.Render("  q to quit"))
	return b.String()
}

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values as a single line of block characters scaled
// to the series' own max, matching how the original status watch
// rendered its TPS progress bar against a single running scale.
func sparkline(values []int) string {
	if len(values) == 0 {
		return DimStyle.Render("(no data yet)")
	}
	max := 1
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	var b strings.Builder
	for _, v := range values {
		idx := v * (len(sparkChars) - 1) / max
		b.WriteRune(sparkChars[idx])
	}
	return HighlightStyle.Render(b.String())
}
