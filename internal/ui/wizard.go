package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WizardResult holds answers collected by the setup wizard.
type WizardResult struct {
	Store       string
	PercentUnit string
	WalletName  string // empty when the user skipped wallet creation
	Cancelled   bool
}

// --- Bubble Tea model ---

type wizardStep int

const (
	stepStore wizardStep = iota
	stepUnit
	stepWallet
	stepDone
)

type wizardModel struct {
	step      wizardStep
	result    WizardResult
	cursor    int
	choices   []string
	input     string
	inputMode bool
}

var storeChoices = []string{"json", "memory", "postgres"}
var unitChoices = []string{"percent", "bps"}

func initialWizard() wizardModel {
	return wizardModel{
		step:    stepStore,
		choices: storeChoices,
	}
}

func (m wizardModel) Init() tea.Cmd { return nil }

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.result.Cancelled = true
			return m, tea.Quit

		case "up", "k":
			if !m.inputMode && m.cursor > 0 {
				m.cursor--
				return m, nil
			}

		case "down", "j":
			if !m.inputMode && m.cursor < len(m.choices)-1 {
				m.cursor++
				return m, nil
			}

		case "enter":
			if m.inputMode {
				m.result.WalletName = strings.TrimSpace(m.input)
				m.inputMode = false
			} else {
				m.applyChoice()
			}
			m.cursor = 0
			m.advance()
			if m.step == stepDone {
				return m, tea.Quit
			}
			return m, nil

		case "backspace":
			if m.inputMode && len(m.input) > 0 {
				r := []rune(m.input)
				m.input = string(r[:len(r)-1])
			}
			return m, nil
		}
		if m.inputMode && msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

func (m *wizardModel) advance() {
	m.step++
	switch m.step {
	case stepUnit:
		m.choices = unitChoices
	case stepWallet:
		m.choices = nil
		m.inputMode = true
		m.input = ""
	}
}

func (m *wizardModel) applyChoice() {
	if m.cursor >= len(m.choices) {
		return
	}
	switch m.step {
	case stepStore:
		m.result.Store = m.choices[m.cursor]
	case stepUnit:
		m.result.PercentUnit = m.choices[m.cursor]
	}
}

func (m wizardModel) View() string {
	var s string

	switch m.step {
	case stepStore:
		s = renderMenu("Where should issuances be stored?", m.choices, m.cursor)
	case stepUnit:
		s = renderMenu("How do you want to enter shares?", m.choices, m.cursor)
	case stepWallet:
		s = StyleTitle.Render("Create a signing wallet (optional)") + "\n\n"
		s += StyleMeta.Render("Enter a wallet name (or press Enter to skip):") + "\n"
		s += "> " + StyleAddress.Render(m.input) + "█\n"
	case stepDone:
		s = Success("Setup complete!") + "\n"
	}

	return StyleBorder.Render(s) + "\n"
}

func renderMenu(title string, items []string, cursor int) string {
	s := StyleTitle.Render(title) + "\n\n"
	for i, item := range items {
		icon := "  "
		style := lipgloss.NewStyle().Foreground(ColorValue)
		if i == cursor {
			icon = "▸ "
			style = StyleSelected
		}
		s += icon + style.Render(item) + "\n"
	}
	s += "\n" + StyleMeta.Render("↑/↓ navigate · Enter select · esc quit")
	return s
}

// RunWizard launches the interactive setup wizard and returns the result.
func RunWizard() (*WizardResult, error) {
	p := tea.NewProgram(initialWizard())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard error: %w", err)
	}
	result := final.(wizardModel).result
	return &result, nil
}
