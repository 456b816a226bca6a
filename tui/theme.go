package tui

import (
	"github.com/charmbracelet/lipgloss"

	"siteboard/domain"
)

// Theme defines the color palette of the board.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color
	HoverBackground    lipgloss.Color

	PriorityColors [4]lipgloss.Color

	Overdue   lipgloss.Color
	DueSoon   lipgloss.Color
	Completed lipgloss.Color

	HeaderForeground lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color
	StaleBackground  lipgloss.Color
}

// DefaultTheme targets 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),
	HoverBackground:    lipgloss.Color("24"),

	PriorityColors: [4]lipgloss.Color{
		lipgloss.Color("245"), // low
		lipgloss.Color("75"),  // medium
		lipgloss.Color("208"), // high
		lipgloss.Color("196"), // critical
	},

	Overdue:   lipgloss.Color("196"),
	DueSoon:   lipgloss.Color("220"),
	Completed: lipgloss.Color("114"),

	HeaderForeground: lipgloss.Color("255"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("203"),
	StaleBackground:  lipgloss.Color("52"),
}

func (theme Theme) PriorityColor(p domain.Priority) lipgloss.Color {
	if int(p) < 0 || int(p) >= len(theme.PriorityColors) {
		return theme.NormalText
	}
	return theme.PriorityColors[p]
}

// UrgencyColor returns the accent for u, or FaintText for normal items.
func (theme Theme) UrgencyColor(u domain.Urgency) lipgloss.Color {
	switch u {
	case domain.UrgencyOverdue:
		return theme.Overdue
	case domain.UrgencyDueSoon:
		return theme.DueSoon
	case domain.UrgencyCompleted:
		return theme.Completed
	default:
		return theme.FaintText
	}
}
