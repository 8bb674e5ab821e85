package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/mirrordock/internal/config"
	"github.com/1broseidon/mirrordock/internal/dock"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(11)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	sectionStyle = lipgloss.NewStyle().
			MarginTop(1)
)

// View implements tea.Model.
func (m model) View() string {
	status := m.session.Status()

	sections := []string{
		renderHeader(status.State, m.width),
		sectionStyle.Render(renderSurfaces(m.selected, m.session.Layout(), status.PrimaryFound, status.SecondaryFound)),
		sectionStyle.Render(renderScale(m.session.Scale(), m.session.NextScale(), m.session.RestartRequired())),
		sectionStyle.Render(renderPresets(m.session.PresetNames(), m.lastPreset)),
	}

	if m.naming {
		sections = append(sections, sectionStyle.Render(m.nameInput.View()))
	}
	if m.notice != "" {
		style := okStyle
		if m.noticeErr {
			style = errorStyle
		}
		sections = append(sections, sectionStyle.Render(style.Render(m.notice)))
	}
	sections = append(sections, sectionStyle.Render(renderHelp(m.width)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderHeader(state string, width int) string {
	dot := okStyle.Render("●")
	if state != dock.Docked.String() {
		dot = warnStyle.Render("●")
	}
	header := titleStyle.Render("mirrordock") + " " + dot + " " + state
	if width > 0 {
		return lipgloss.NewStyle().MaxWidth(width).Render(header)
	}
	return header
}

func renderSurfaces(selected dock.SurfaceIndex, l config.Layout, primaryFound, secondaryFound bool) string {
	rows := []string{
		surfaceRow(dock.Primary, selected, l.PrimaryX, l.PrimaryY, primaryFound),
		surfaceRow(dock.Secondary, selected, l.SecondaryX, l.SecondaryY, secondaryFound),
	}
	return strings.Join(rows, "\n")
}

func surfaceRow(which, selected dock.SurfaceIndex, x, y int, found bool) string {
	marker := "  "
	name := which.String()
	if which == selected {
		marker = selectedStyle.Render("> ")
		name = selectedStyle.Render(name)
	}
	presence := okStyle.Render("found")
	if !found {
		presence = dimStyle.Render("waiting")
	}
	return fmt.Sprintf("%s%s x=%-5d y=%-5d %s", marker, labelStyle.Render(name), x, y, presence)
}

func renderScale(running, next float64, restart bool) string {
	line := labelStyle.Render("scale") + fmt.Sprintf("%.2f", running)
	if restart {
		line += warnStyle.Render(fmt.Sprintf("  -> %.2f on restart", next))
	}
	return line
}

func renderPresets(names []string, last string) string {
	if len(names) == 0 {
		return labelStyle.Render("presets") + dimStyle.Render("none saved")
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("presets"))
	for i, name := range names {
		slot := " "
		if i < maxSlots {
			slot = fmt.Sprintf("%d", i+1)
		}
		entry := slot + ":" + name
		if name == last {
			entry = selectedStyle.Render(entry)
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(entry)
	}
	return b.String()
}

func renderHelp(width int) string {
	help := "d: dock/undock  tab: select  arrows: move 10px  shift+arrows: 1px  r: reset  " +
		"1-9: apply preset  s: save  x: delete  f: focus  p: screenshot  +/-: scale  q: quit"
	style := dimStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(help)
}
