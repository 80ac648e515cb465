package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/shortlinks/internal/config"
)

// StyleManager encapsulates all TUI styles and provides methods for style operations
type StyleManager struct {
	// List view styles
	Path     lipgloss.Style
	URL      lipgloss.Style
	Title    lipgloss.Style
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Dim      lipgloss.Style

	// Form styles
	Heading lipgloss.Style
	Label   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style

	// Chrome styles
	Divider lipgloss.Style

	// Colors for direct access
	SelectedBg lipgloss.Color
}

// DefaultStyles returns a StyleManager with default styles
func DefaultStyles() *StyleManager {
	return &StyleManager{
		Path:       lipgloss.NewStyle().Bold(true),
		URL:        lipgloss.NewStyle(),
		Title:      lipgloss.NewStyle(),
		Selected:   lipgloss.NewStyle().Background(lipgloss.Color("236")),
		Cursor:     lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Heading:    lipgloss.NewStyle().Bold(true),
		Label:      lipgloss.NewStyle().Bold(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Success:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Divider:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		SelectedBg: lipgloss.Color("236"),
	}
}

// LoadFromConfig updates styles based on configuration
func (s *StyleManager) LoadFromConfig() {
	pathColor := parseANSIColor(config.GetColorPath())
	urlColor := parseANSIColor(config.GetColorURL())
	titleColor := parseANSIColor(config.GetColorTitle())
	cursorColor := lipgloss.Color(config.GetColorCursor())
	errorColor := lipgloss.Color(config.GetColorError())
	dimColor := lipgloss.Color(config.GetColorDim())

	s.Path = lipgloss.NewStyle().Bold(true).Foreground(pathColor)
	s.URL = lipgloss.NewStyle().Foreground(urlColor)
	s.Title = lipgloss.NewStyle().Foreground(titleColor)
	s.Cursor = lipgloss.NewStyle().Foreground(cursorColor)
	s.Dim = lipgloss.NewStyle().Foreground(dimColor)
	s.Label = lipgloss.NewStyle().Bold(true).Foreground(pathColor)
	s.Error = lipgloss.NewStyle().Foreground(errorColor)
}

// WithSelection returns a copy of the given style with the selected background applied
func (s *StyleManager) WithSelection(style lipgloss.Style) lipgloss.Style {
	return style.Background(s.SelectedBg)
}

// parseANSIColor converts ANSI color codes to lipgloss colors
func parseANSIColor(code string) lipgloss.Color {
	ansiToLipgloss := map[string]string{
		"30": "0", "31": "1", "32": "2", "33": "3",
		"34": "4", "35": "5", "36": "6", "37": "7",
		"90": "8", "91": "9", "92": "10", "93": "11",
		"94": "12", "95": "13", "96": "14", "97": "15",
	}
	if mapped, ok := ansiToLipgloss[code]; ok {
		return lipgloss.Color(mapped)
	}
	return lipgloss.Color(code)
}

// Global style manager instance
var styles = DefaultStyles()

// RefreshStyles updates the global styles from config
func RefreshStyles() {
	styles.LoadFromConfig()
}
