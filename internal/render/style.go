package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/diligentia/internal/model"
)

var (
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D29922"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

func riskStyle(level model.RiskLevel) lipgloss.Style {
	switch level {
	case model.RiskLow:
		return passStyle
	case model.RiskMedium:
		return warnStyle
	default:
		return alertStyle
	}
}

func verdictStyle(s model.Synthesis) lipgloss.Style {
	switch {
	case s.ShouldDisengage:
		return alertStyle
	case s.Verdict == model.RecommendInsufficientData:
		return mutedStyle
	default:
		return riskStyle(s.OverallRisk)
	}
}
