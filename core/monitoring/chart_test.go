package monitoring

import (
	"testing"

	"signal-monitor/core/models"
)

func TestChartSeries_Apply(t *testing.T) {
	s := NewChartSeries(3)
	s.Apply(1, 0.9)
	s.Apply(2, 0.8)
	s.Apply(2, 0.7)

	pts := s.Points()
	if len(pts) != 2 {
		t.Fatalf("Len = %d, want 2", len(pts))
	}
	if pts[1] != (Point{Epoch: 2, Value: 0.7}) {
		t.Errorf("repeated epoch not updated in place: %+v", pts[1])
	}
}

func TestChartSeries_EvictsOldest(t *testing.T) {
	s := NewChartSeries(100)
	for epoch := 1; epoch <= 150; epoch++ {
		s.Apply(epoch, float64(epoch))
	}

	pts := s.Points()
	if len(pts) != 100 {
		t.Fatalf("Len = %d, want 100", len(pts))
	}
	if pts[0].Epoch != 51 || pts[99].Epoch != 150 {
		t.Errorf("retained epochs %d..%d, want 51..150", pts[0].Epoch, pts[99].Epoch)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Epoch <= pts[i-1].Epoch {
			t.Fatalf("points out of order at %d", i)
		}
	}
}

func TestChartSeries_DefaultCap(t *testing.T) {
	if got := NewChartSeries(0).Cap(); got != DefaultChartCap {
		t.Errorf("Cap = %d, want %d", got, DefaultChartCap)
	}
}

func TestLossChart_Update(t *testing.T) {
	view := newRecordingView()
	c := NewLossChart(10, view)

	if c.Update(models.JobStatus{Status: models.ServerStatusTraining, CurrentEpoch: intp(0), TrainingLoss: floatp(1)}) {
		t.Error("epoch 0 should be ignored")
	}
	if c.Update(models.JobStatus{Status: models.ServerStatusTraining, CurrentEpoch: intp(1)}) {
		t.Error("tick without training loss should be ignored")
	}

	s := status(models.ServerStatusTraining, 1, 10)
	s.TrainingLoss = floatp(0.5)
	if !c.Update(s) {
		t.Fatal("valid tick ignored")
	}
	if c.Validation().Len() != 0 {
		t.Error("validation series should stay empty without a validation loss")
	}

	s.ValidationLoss = floatp(0.6)
	c.Update(s)
	if c.Training().Len() != 1 || c.Validation().Len() != 1 {
		t.Errorf("Len = %d/%d, want 1/1", c.Training().Len(), c.Validation().Len())
	}
	if got := view.redraws[SeriesValidationLoss]; len(got) != 1 || got[0].Value != 0.6 {
		t.Errorf("validation redraw = %+v", got)
	}
}
