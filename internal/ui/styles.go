package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // finalized, success
	ColorWarning   = lipgloss.Color("#FFB800") // closed, warning
	ColorError     = lipgloss.Color("#FF4444") // refunding, error
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses, ids
	ColorValue     = lipgloss.Color("#FFFFFF") // amounts
	ColorMeta      = lipgloss.Color("#555555") // timestamps, metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // UI chrome
	ColorToken     = lipgloss.Color("#9B5DE5") // token symbols
	ColorHighlight = lipgloss.Color("#F15BB5") // selected rows
	ColorInfo      = lipgloss.Color("#4EA8DE") // info, active sales
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleToken   = lipgloss.NewStyle().Foreground(ColorToken).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorToken).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Banner returns the tokenhub banner.
func Banner(version string) string {
	art := `
  ▀█▀ █▀█ █▄▀ █▀▀ █▄ █ █ █ █ █ █▄▄
   █  █▄█ █ █ ██▄ █ ▀█ █▀█ █▄█ █▄█`

	tagline := StyleMeta.Render("  Token issuance, presales and vesting  ·  v" + version)
	return StyleToken.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggestion for the next command.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// Symbol formats a token symbol.
func Symbol(s string) string { return StyleToken.Render(s) }

// Amount formats a value followed by its unit.
func Amount(v, unit string) string { return Val(v) + " " + Meta(unit) }

// State colors a presale state or status word.
func State(s string) string {
	switch s {
	case "Finalized":
		return StyleSuccess.Render(s)
	case "Refunding":
		return StyleError.Render(s)
	case "Closed":
		return StyleWarning.Render(s)
	case "Active":
		return StyleInfo.Render(s)
	}
	return StyleMeta.Render(s)
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
