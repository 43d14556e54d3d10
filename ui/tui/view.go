package tui

import (
	"fmt"
	"strings"

	"signal-monitor/core/monitoring"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	if m.confirm != nil {
		return m.place(m.viewConfirm())
	}
	if modal, ok := m.topModal(); ok {
		return m.place(m.viewModal(modal))
	}

	contentW := max(60, m.width-2)
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.title.Render("Training monitor"), "  ",
		m.styles.badge(m.state), "  ",
		m.styles.dim.Render("job "+m.jobID))

	var body string
	if contentW < 100 {
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.panel("Metrics", m.metricLines(), contentW),
			m.panel("Loss", m.chartLines(contentW-8), contentW))
	} else {
		leftW := contentW / 2
		rightW := contentW - leftW - 1
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.panel("Metrics", m.metricLines(), leftW), " ",
			m.panel("Loss", m.chartLines(rightW-8), rightW))
	}

	parts := []string{header, "", body, m.viewControls()}
	if m.notice != nil {
		parts = append(parts, m.styles.level(m.notice.level).Render(m.notice.text))
	}
	parts = append(parts, m.panel("Activity", []string{m.logView.View()}, contentW))
	if m.finished {
		parts = append(parts, m.styles.dim.Render("Polling stopped."))
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) place(card string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func (m Model) panel(title string, lines []string, w int) string {
	return m.styles.panel.Width(max(8, w-4)).Render(m.styles.panelTitle.Render(title) + "\n" + strings.Join(lines, "\n"))
}

func (m Model) metricLines() []string {
	mt := m.metrics
	name := mt.TrainingSetName
	if name == "" {
		name = "--"
	}
	total := mt.TotalEpochs
	if total == "" {
		total = "--"
	}
	row := func(label, value string) string {
		if value == "" {
			value = "--"
		}
		return m.styles.label.Render(label) + value
	}
	lines := []string{
		row("Training set", name),
		row("Epoch", fmt.Sprintf("%s/%s", orDefault(mt.CurrentEpoch, "0"), total)),
		row("Training loss", mt.TrainingLoss),
		row("Validation loss", mt.ValidationLoss),
		row("MSE", mt.MSEMetric),
		row("Learning rate", mt.LearningRate),
		row("ETA", mt.ETA),
	}
	if mt.HasProgress {
		lines = append(lines, "", m.progress.View()+" "+mt.ProgressText)
	}
	return lines
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (m Model) chartLines(w int) []string {
	w = max(10, w)
	line := func(label string, st lipgloss.Style, points []monitoring.Point) []string {
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		out := []string{m.styles.label.Render(label) + st.Render(sparkline(values, w-17))}
		if len(points) > 0 {
			lo, hi := seriesRange(values)
			out = append(out, m.styles.dim.Render(fmt.Sprintf("%17sepochs %d-%d  min %.4f  max %.4f",
				"", points[0].Epoch, points[len(points)-1].Epoch, lo, hi)))
		}
		return out
	}
	lines := line("Training loss", m.styles.graphTrain, m.train)
	return append(lines, line("Validation loss", m.styles.graphVal, m.val)...)
}

var controlKeys = []struct {
	control monitoring.Control
	label   string
}{
	{monitoring.ControlPause, "[p] pause"},
	{monitoring.ControlResume, "[r] resume"},
	{monitoring.ControlStop, "[s] stop"},
	{monitoring.ControlSave, "[v] save model"},
	{monitoring.ControlPredict, "[e] evaluate"},
}

func (m Model) viewControls() string {
	items := make([]string, 0, len(controlKeys))
	for _, ck := range controlKeys {
		if m.controls[ck.control] {
			items = append(items, m.styles.enabled.Render(ck.label))
		} else {
			items = append(items, m.styles.disabled.Render(ck.label))
		}
	}
	if m.predicting {
		items = append(items, m.spin.View()+" evaluating")
	}
	return strings.Join(items, "  ")
}

func (m *Model) refreshLog() {
	lines := make([]string, len(m.entries))
	for i, e := range m.entries {
		lines[i] = m.styles.dim.Render(e.At.Format("15:04:05")) + " " + m.styles.level(e.Level).Render(e.Message)
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) viewConfirm() string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		m.styles.modalTitle.Render("Confirm"),
		"",
		m.confirm.prompt,
		"",
		m.styles.dim.Render("[y] yes  [N] no"))
	return m.styles.modal.Render(body)
}

func (m Model) viewModal(modal monitoring.Modal) string {
	var lines []string
	switch modal {
	case monitoring.ModalPrep:
		lines = []string{
			m.styles.modalTitle.Render(m.spin.View() + " Preparing training"),
			"",
			"Waiting for job " + m.jobID + " to start its first epoch.",
		}
	case monitoring.ModalDataLoading:
		lines = []string{
			m.styles.modalTitle.Render(m.spin.View() + " Loading training data"),
			"",
			"The training set is being loaded.",
		}
	case monitoring.ModalCompletion:
		lines = []string{
			m.styles.modalTitle.Render("Training completed"),
			"",
			fmt.Sprintf("Epochs:          %s/%s", orDefault(m.metrics.CurrentEpoch, "0"), orDefault(m.metrics.TotalEpochs, "--")),
			"Training loss:   " + orDefault(m.metrics.TrainingLoss, "--"),
			"Validation loss: " + orDefault(m.metrics.ValidationLoss, "--"),
		}
	default:
		lines = []string{string(modal)}
	}

	hints := []string{"[d] dismiss"}
	if m.controls[monitoring.ControlSave] {
		hints = append([]string{"[v] save model"}, hints...)
	}
	if m.controls[monitoring.ControlStop] {
		hints = append([]string{"[s] stop"}, hints...)
	}
	lines = append(lines, "", m.styles.dim.Render(strings.Join(hints, "  ")))
	return m.styles.modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
