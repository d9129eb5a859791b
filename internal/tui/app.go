// internal/tui/app.go
//
// Shared look-and-feel for the medimint dashboards. Both dashboards are
// bubbletea models following The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lafiyatech/medimint/internal/fault"
	"github.com/lafiyatech/medimint/internal/logbook"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			MarginTop(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4CAF50"))
)

// kindStyles maps each fault kind to the color the status line uses for
// it. Cancelled operations are routine, not alarming.
var kindStyles = map[fault.Kind]lipgloss.Style{
	fault.Validation:        lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
	fault.Network:           lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	fault.RemoteRejection:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	fault.UserCancelled:     lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")),
	fault.ExecutionReverted: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
}

func renderBanner(subtitle string) string {
	return bannerStyle.Render(fmt.Sprintf("⬡ MEDIMINT · %s", subtitle))
}

// renderStatus renders the footer line. Errors are colored by their
// fault kind so a validation nudge never looks like an outage.
func renderStatus(msg string, err error) string {
	if err != nil {
		style, ok := kindStyles[fault.KindOf(err)]
		if !ok {
			style = kindStyles[fault.Network]
		}
		return style.MarginTop(1).Render(fmt.Sprintf("⚠ %s", err.Error()))
	}
	if strings.TrimSpace(msg) == "" {
		return ""
	}
	return mutedStyle.MarginTop(1).Render(msg)
}

func renderLogPanel(lb *logbook.Logbook) string {
	if lb == nil {
		return ""
	}
	lines, _ := lb.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(lb.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := panelTitleStyle.Render(fmt.Sprintf("LOG · %s", fileName))
	body := hintStyle.MarginTop(0).Render(strings.Join(lines, "\n"))
	return panelStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func renderPanel(title, body string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render(title), body)
	return panelStyle.Width(max(24, width)).Render(content)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
