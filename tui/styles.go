package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})

	panelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"})

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#888888"})

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"})

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F0C040"})

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})

	plotBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#444444"})
)

var seriesColors = []lipgloss.AdaptiveColor{
	{Light: "#0277BD", Dark: "#4FC3F7"},
	{Light: "#D84315", Dark: "#FF8A65"},
	{Light: "#558B2F", Dark: "#AED581"},
	{Light: "#6A1B9A", Dark: "#BA68C8"},
	{Light: "#F9A825", Dark: "#FFD54F"},
	{Light: "#00695C", Dark: "#4DB6AC"},
}

func seriesStyle(series int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(seriesColors[series%len(seriesColors)])
}
