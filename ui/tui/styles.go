package tui

import (
	"math"
	"strings"

	"signal-monitor/core/models"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title      lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	label      lipgloss.Style
	dim        lipgloss.Style
	enabled    lipgloss.Style
	disabled   lipgloss.Style
	modal      lipgloss.Style
	modalTitle lipgloss.Style
	graphTrain lipgloss.Style
	graphVal   lipgloss.Style
	levels     map[models.LogLevel]lipgloss.Style
	badges     map[models.UIState]lipgloss.Style
}

func defaultStyles() styles {
	brand := lipgloss.AdaptiveColor{Light: "26", Dark: "81"}
	subtle := lipgloss.AdaptiveColor{Light: "245", Dark: "244"}
	border := lipgloss.AdaptiveColor{Light: "250", Dark: "238"}
	badge := func(bg string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color(bg))
	}
	return styles{
		title:      lipgloss.NewStyle().Bold(true).Foreground(brand),
		panel:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Bold(true).Foreground(brand),
		label:      lipgloss.NewStyle().Foreground(subtle).Width(17),
		dim:        lipgloss.NewStyle().Foreground(subtle),
		enabled:    lipgloss.NewStyle().Bold(true).Foreground(brand),
		disabled:   lipgloss.NewStyle().Foreground(subtle).Strikethrough(true),
		modal:      lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(brand).Padding(1, 3),
		modalTitle: lipgloss.NewStyle().Bold(true).Foreground(brand),
		graphTrain: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		graphVal:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		levels: map[models.LogLevel]lipgloss.Style{
			models.LogInfo:    lipgloss.NewStyle().Foreground(subtle),
			models.LogSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
			models.LogWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
			models.LogError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
		badges: map[models.UIState]lipgloss.Style{
			models.UIStatePreparing: badge("61"),
			models.UIStateTraining:  badge("33"),
			models.UIStatePaused:    badge("172"),
			models.UIStateCompleted: badge("28"),
			models.UIStateStopped:   badge("240"),
			models.UIStateFailed:    badge("160"),
		},
	}
}

func (s styles) level(l models.LogLevel) lipgloss.Style {
	if st, ok := s.levels[l]; ok {
		return st
	}
	return s.levels[models.LogInfo]
}

// stateLabels are the badge texts of each UI state
var stateLabels = map[models.UIState]string{
	models.UIStatePreparing: "Preparing",
	models.UIStateTraining:  "Training",
	models.UIStatePaused:    "Paused",
	models.UIStateCompleted: "Completed",
	models.UIStateStopped:   "Stopped",
	models.UIStateFailed:    "Failed",
}

func (s styles) badge(state models.UIState) string {
	label, ok := stateLabels[state]
	if !ok {
		label = string(state)
	}
	st, ok := s.badges[state]
	if !ok {
		st = s.badges[models.UIStatePreparing]
	}
	return st.Render(label)
}

func sparkline(series []float64, width int) string {
	if width < 4 {
		width = 4
	}
	if len(series) == 0 {
		return strings.Repeat(".", width)
	}
	sampled := make([]float64, 0, width)
	if len(series) <= width {
		sampled = append(sampled, series...)
	} else {
		step := float64(len(series)-1) / float64(width-1)
		for i := 0; i < width; i++ {
			idx := int(math.Round(float64(i) * step))
			idx = max(0, min(idx, len(series)-1))
			sampled = append(sampled, series[idx])
		}
	}
	minV, maxV := seriesRange(sampled)
	chars := []rune("▁▂▃▄▅▆▇█")
	if maxV == minV {
		return strings.Repeat(string(chars[len(chars)-2]), len(sampled)) +
			strings.Repeat(" ", width-len(sampled))
	}
	var b strings.Builder
	b.Grow(width)
	for _, v := range sampled {
		r := (v - minV) / (maxV - minV)
		pos := int(math.Round(r * float64(len(chars)-1)))
		b.WriteRune(chars[max(0, min(pos, len(chars)-1))])
	}
	b.WriteString(strings.Repeat(" ", width-len(sampled)))
	return b.String()
}

func seriesRange(series []float64) (float64, float64) {
	if len(series) == 0 {
		return 0, 0
	}
	minV, maxV := series[0], series[0]
	for _, v := range series[1:] {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	return minV, maxV
}
