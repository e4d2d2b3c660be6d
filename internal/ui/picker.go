package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// IssuanceItem is one row of the issuance picker.
type IssuanceItem struct {
	Symbol string
	ID     string
	Status string // presale state, or "token" for plain issuances
}

// settled reports whether the issuance has nothing left to drive.
func (it IssuanceItem) settled() bool {
	return it.Status == "Finalized" || it.Status == "Refunding"
}

// pickerModel lists issuances. Pressing "o" hides settled sales.
type pickerModel struct {
	title    string
	items    []IssuanceItem
	openOnly bool
	cursor   int
	selected *IssuanceItem
	quitting bool
}

func (m pickerModel) visible() []IssuanceItem {
	if !m.openOnly {
		return m.items
	}
	out := make([]IssuanceItem, 0, len(m.items))
	for _, it := range m.items {
		if !it.settled() {
			out = append(out, it)
		}
	}
	return out
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	rows := m.visible()
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "o":
		m.openOnly = !m.openOnly
		m.cursor = 0
	case "enter", " ":
		if len(rows) > 0 {
			it := rows[m.cursor]
			m.selected = &it
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.title) + "\n\n")

	rows := m.visible()
	if len(rows) == 0 {
		sb.WriteString(StyleMeta.Render("    no open issuances") + "\n")
	}
	for i, it := range rows {
		prefix := "    "
		if i == m.cursor {
			prefix = "  ▸ "
		}
		line := fmt.Sprintf("%s%-8s %s  %s", prefix, Symbol(it.Symbol), Meta(TruncateAddr(it.ID)), State(it.Status))
		if i == m.cursor {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	filter := "[ o ] open only"
	if m.openOnly {
		filter = "[ o ] show all"
	}
	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Enter ] select   "+filter+"   [ q ] cancel") + "\n")
	return sb.String()
}

// PickIssuance lets the user choose an issuance and returns its id, or ""
// when cancelled.
func PickIssuance(title string, items []IssuanceItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no issuances to pick from")
	}

	p := tea.NewProgram(pickerModel{title: title, items: items}, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	return final.(pickerModel).choice(), nil
}

func (m pickerModel) choice() string {
	if m.quitting || m.selected == nil {
		return ""
	}
	return m.selected.ID
}
