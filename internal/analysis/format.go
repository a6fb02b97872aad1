package analysis

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)

	goodMark = color.New(color.FgGreen).Sprint("✓")
	fairMark = color.New(color.FgYellow).Sprint("~")
	poorMark = color.New(color.FgRed).Sprint("✗")
)

// TierMark returns the colored indicator for an accuracy percentage.
func TierMark(accuracy float64) string {
	switch TierFor(accuracy) {
	case TierGood:
		return goodMark
	case TierFair:
		return fairMark
	default:
		return poorMark
	}
}

// FormatStatsTable renders a stats listing as an aligned table with tier
// indicators.
func FormatStatsTable(title string, stats []TagStat) string {
	tagWidth := len("tag")
	for _, stat := range stats {
		if len(stat.Tag) > tagWidth {
			tagWidth = len(stat.Tag)
		}
	}

	var builder strings.Builder
	builder.WriteString(titleStyle.Render(title))
	builder.WriteString("\n")
	builder.WriteString(headerStyle.Render(fmt.Sprintf("%-*s  %6s  %6s  %6s  %9s", tagWidth, "tag", "total", "right", "wrong", "accuracy")))
	builder.WriteString("\n")

	if len(stats) == 0 {
		builder.WriteString("(no tags)\n")
		return builder.String()
	}

	for _, stat := range stats {
		builder.WriteString(fmt.Sprintf("%-*s  %6d  %6d  %6d  %8.1f%% %s\n",
			tagWidth, stat.Tag, stat.Total(), stat.Right, stat.Wrong, stat.Accuracy(), TierMark(stat.Accuracy())))
	}
	return builder.String()
}

// FormatOverview renders the whole-log summary box.
func FormatOverview(o Overview) string {
	body := fmt.Sprintf("records: %d\ntags: %d\noverall accuracy: %.1f%% (%d right / %d wrong)",
		o.Records, o.Tags, o.Accuracy(), o.Right, o.Wrong)
	return boxStyle.Render(body)
}
