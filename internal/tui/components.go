package tui

import (
	"fmt"
	"math"
	"strings"

	"portfolio-advisor/internal/domain"
)

// FormatSectorRow renders one sector's averaged stats as a single line.
func FormatSectorRow(name string, stats domain.SectorStats) string {
	perfStyle := TrendFlatStyle
	if stats.Performance > 0 {
		perfStyle = TrendUpStyle
	} else if stats.Performance < 0 {
		perfStyle = TrendDownStyle
	}

	sign := ""
	if stats.Performance > 0 {
		sign = "+"
	}

	return fmt.Sprintf("%-30s %s  %-8s vol %5.2f",
		name,
		perfStyle.Render(fmt.Sprintf("%s%6.2f%%", sign, stats.Performance)),
		stats.Trend,
		stats.Volatility,
	)
}

// FormatRegulatoryEvent renders one classified headline as a single line.
func FormatRegulatoryEvent(e domain.RegulatoryEvent) string {
	impactStyle := ImpactModerateStyle
	switch e.Impact {
	case "positive":
		impactStyle = ImpactPositiveStyle
	case "negative":
		impactStyle = ImpactNegativeStyle
	}

	title := e.Event
	if len(title) > 90 {
		title = title[:87] + "..."
	}

	return fmt.Sprintf("%s %s", impactStyle.Render(fmt.Sprintf("[%-8s]", e.Impact)), title)
}

// RenderAllocationBar renders an ASCII bar for one allocation percentage.
func RenderAllocationBar(label string, pct float64, barWidth int) string {
	if barWidth <= 0 {
		barWidth = 20
	}
	filled := int(math.Round(pct / 100 * float64(barWidth)))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	bar := BarFillStyle.Render(strings.Repeat("█", filled)) + SubtextStyle.Render(strings.Repeat("░", empty))
	return fmt.Sprintf("%-28s %s %5.1f%%", label, bar, pct)
}

// FormatSentiment renders the aggregate news sentiment score with its label.
func FormatSentiment(score float64) string {
	style := TrendFlatStyle
	label := "neutral"
	if score > 0.05 {
		style = TrendUpStyle
		label = "positive"
	} else if score < -0.05 {
		style = TrendDownStyle
		label = "negative"
	}
	return style.Render(fmt.Sprintf("%.3f (%s)", score, label))
}

func formatOptionalFloat(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
