package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SaleEntry is one presale row in the live monitor.
type SaleEntry struct {
	ID           string
	Symbol       string
	State        string
	Raised       string
	HardCap      string
	Progress     float64 // raised / hard cap, 0..1
	Contributors int
	EndsIn       time.Duration
}

// monitorModel is the Bubble Tea model for the live presale monitor.
type monitorModel struct {
	entries    []SaleEntry
	lastUpdate time.Time
	interval   time.Duration
	quitting   bool
	fetcher    func() ([]SaleEntry, error)
	err        string
}

type tickMsg time.Time
type salesFetchedMsg []SaleEntry
type salesErrorMsg string

// NewMonitor creates a Bubble Tea program that polls fetcher every interval.
func NewMonitor(interval time.Duration, fetcher func() ([]SaleEntry, error)) *tea.Program {
	return tea.NewProgram(newMonitorModel(interval, fetcher))
}

func newMonitorModel(interval time.Duration, fetcher func() ([]SaleEntry, error)) monitorModel {
	return monitorModel{interval: interval, fetcher: fetcher}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tick(m.interval))
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tick(m.interval))

	case salesFetchedMsg:
		m.entries = []SaleEntry(msg)
		m.lastUpdate = time.Now()
		m.err = ""

	case salesErrorMsg:
		m.err = string(msg)
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("Presale Monitor") + "\n")
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("Updated: %s · q to quit\n\n", m.lastUpdate.Format("15:04:05"))))

	if m.err != "" {
		sb.WriteString(Err(m.err) + "\n")
	}

	if len(m.entries) == 0 {
		sb.WriteString(StyleMeta.Render("Loading...") + "\n")
		return sb.String()
	}

	t := NewTable([]Column{
		{Title: "Token", Width: 8},
		{Title: "State", Width: 10},
		{Title: "Raised", Width: 24, Right: true},
		{Title: "Progress", Width: 18},
		{Title: "Buyers", Width: 6, Right: true},
		{Title: "Ends in", Width: 10, Right: true},
	})
	for _, e := range m.entries {
		t.AddRow(Row{
			Symbol(e.Symbol),
			State(e.State),
			e.Raised + " / " + e.HardCap,
			ProgressBar(e.Progress, 12),
			fmt.Sprint(e.Contributors),
			formatRemaining(e.EndsIn),
		})
	}
	sb.WriteString(t.Render())
	return sb.String()
}

func (m monitorModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.fetcher()
		if err != nil {
			return salesErrorMsg(err.Error())
		}
		return salesFetchedMsg(entries)
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ProgressBar renders frac (clamped to 0..1) as a bar of width cells
// followed by a percentage.
func ProgressBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	bar := StyleSuccess.Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, frac*100)
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "ended"
	}
	d = d.Round(time.Second)
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	}
	return d.String()
}
