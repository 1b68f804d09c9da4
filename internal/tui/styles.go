package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title, header, headerSorted lipgloss.Style
	cell, cursor, selected      lipgloss.Style
	action, bulk                lipgloss.Style
	footer, pageCurrent, gap    lipgloss.Style
	message, errText            lipgloss.Style
	status, prompt, detail      lipgloss.Style
	badges                      map[string]lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	badge := base.Copy().Bold(true)

	return styles{
		title:        base.Copy().Bold(true).Padding(0, 1),
		header:       base.Copy().Bold(true).Underline(true),
		headerSorted: base.Copy().Bold(true).Underline(true).Foreground(lipgloss.Color("6")),
		cell:         base,
		cursor:       base.Copy().Reverse(true),
		selected:     base.Copy().Foreground(lipgloss.Color("3")),
		action:       base.Copy().Faint(true),
		bulk:         base.Copy().Foreground(lipgloss.Color("5")),
		footer:       base.Copy().Faint(true),
		pageCurrent:  base.Copy().Bold(true).Reverse(true),
		gap:          base.Copy().Faint(true),
		message:      base.Copy().Italic(true).Padding(1, 2),
		errText:      base.Copy().Foreground(lipgloss.Color("1")).Padding(1, 2),
		status:       base.Copy().Padding(0, 1),
		prompt:       base.Copy().Bold(true),
		detail:       base.Copy().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		badges: map[string]lipgloss.Style{
			"success":   badge.Copy().Foreground(lipgloss.Color("2")),
			"danger":    badge.Copy().Foreground(lipgloss.Color("1")),
			"warning":   badge.Copy().Foreground(lipgloss.Color("3")),
			"info":      badge.Copy().Foreground(lipgloss.Color("6")),
			"primary":   badge.Copy().Foreground(lipgloss.Color("4")),
			"secondary": badge.Copy().Foreground(lipgloss.Color("8")),
		},
	}
}

func (s styles) badge(category string) lipgloss.Style {
	if st, ok := s.badges[category]; ok {
		return st
	}
	return s.badges["secondary"]
}
