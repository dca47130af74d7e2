package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor   = lipgloss.Color("#B4A7D6")
	successColor   = lipgloss.Color("#A8E6CF")
	errorColor     = lipgloss.Color("#FFB3BA")
	warningColor   = lipgloss.Color("#FFE5B4")
	mutedColor     = lipgloss.Color("#C5C6C8")
	highlightColor = lipgloss.Color("#B3D9FF")
	tipColor       = lipgloss.Color("#FFD4A3")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	TipStyle = lipgloss.NewStyle().
			Foreground(tipColor)

	// SecretStyle renders revealed values inside a box so they stand out.
	SecretStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warningColor).
			Padding(0, 1)

	PromptStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	ListItemStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			PaddingLeft(2)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders rows under headers with the tool's border style.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primaryColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

func divider(width int) string {
	if width < 1 {
		width = 41
	}
	return lipgloss.NewStyle().Foreground(primaryColor).Render(strings.Repeat("─", width))
}

// PrintError writes an error line to stderr, for use outside a Console.
func PrintError(icon, message string) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render(fmt.Sprintf("%s %s", icon, message)))
}
