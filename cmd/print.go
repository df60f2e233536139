package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/track-analysis/internal/output"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(output.Primary)
	stepStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(output.Primary)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd75f"))
	errorStyle   = lipgloss.NewStyle().Foreground(output.Alert)
	infoStyle    = lipgloss.NewStyle().Foreground(output.Dim)
)

func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

func printHeader(title, subject string) {
	fmt.Printf("%s: %s\n", render(headerStyle, title), subject)
	fmt.Printf("%s\n\n", render(headerStyle, strings.Repeat("═", 80)))
}

func printStep(num int, title string) {
	fmt.Printf("%s %s\n", render(stepStyle, fmt.Sprintf("%d", num)), title)
}

func printSectionHeader(title string) {
	fmt.Println(render(stepStyle, title))
}

func printSuccess(format string, args ...any) {
	fmt.Printf("   %s %s\n", render(successStyle, "✓"), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("   %s %s\n", render(warningStyle, "⚠"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Printf("   %s %s\n", render(errorStyle, "✗"), fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("   %s %s\n", render(infoStyle, "•"), fmt.Sprintf(format, args...))
}
