package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green: success, happiness
	ColorWarning   = lipgloss.Color("#FFB800") // yellow: pending, hunger
	ColorError     = lipgloss.Color("#FF4444") // red: errors
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan: addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold: stats
	ColorMeta      = lipgloss.Color("#555555") // dim gray: timestamps, metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue: UI chrome
	ColorChain     = lipgloss.Color("#9B5DE5") // purple: chain names
	ColorHighlight = lipgloss.Color("#F15BB5") // pink: selected rows
	ColorInfo      = lipgloss.Color("#4CC9F0")

	ColorFire  = lipgloss.Color("#FF6B35")
	ColorWater = lipgloss.Color("#4361EE")
	ColorGrass = lipgloss.Color("#2DC653")
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)
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
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Banner returns the cryptopet banner.
func Banner() string {
	art := `
   ▄▄·▄▄▄   ▄· ▄▌ ▄▄▄·▄▄▄▄▄      ▄▄▄·▄▄▄ .▄▄▄▄▄
  ▐█ ▌▀▄ █·▐█▪██▌▐█ ▄█•██  ▪    ▐█ ▄█▀▄.▀·•██
  ██ ▄▐▀▀▄ ▐█▌▐█▪ ██▀· ▐█.▪ ▄█▀▄ ██▀·▐▀▀▪▄ ▐█.▪
  ▐███▐█•█▌ ▐█▀·.▐█▪·• ▐█▌·▐█▌.▐▌▐█▪·•▐█▄▄▌ ▐█▌·
  ·▀▀▀.▀  ▀  ▀ • .▀    ▀▀▀  ▀█▄▀▪.▀    ▀▀▀  ▀▀▀`

	tagline := StyleMeta.Render("     Virtual pets on-chain  🐾  feed · play · battle")
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggestion for what to do next.
func Hint(msg string) string { return StyleMeta.Render("💡 " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a chain name.
func ChainName(c string) string { return StyleChain.Render(c) }

// TypeStyle returns the color style for a pet type.
func TypeStyle(t pets.Type) lipgloss.Style {
	switch t {
	case pets.Water:
		return lipgloss.NewStyle().Foreground(ColorWater).Bold(true)
	case pets.Grass:
		return lipgloss.NewStyle().Foreground(ColorGrass).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(ColorFire).Bold(true)
	}
}

// TypeBadge renders the pet type name in its color.
func TypeBadge(t pets.Type) string {
	return TypeStyle(t).Render(t.String())
}

// Bar renders value (0..100) as a fixed-width meter.
func Bar(value, width int, style lipgloss.Style) string {
	value = min(max(value, 0), 100)
	filled := value * width / 100
	return style.Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", width-filled)) +
		StyleMeta.Render(fmt.Sprintf(" %3d", value))
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

func padL(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return strings.Repeat(" ", n-w) + s
	}
	return s
}
