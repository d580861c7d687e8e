package main

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	SubtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	IDStyle      = lipgloss.NewStyle().Bold(true)
)
