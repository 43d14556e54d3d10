package monitoring

import (
	"testing"

	"signal-monitor/core/models"
)

func TestModalCoordinator_ShowsOncePerEntry(t *testing.T) {
	view := newRecordingView()
	c := NewModalCoordinator(view)

	for i := 0; i < 5; i++ {
		c.OnStateEnter(models.UIStateCompleted)
	}
	if n := view.shownCount(ModalCompletion); n != 1 {
		t.Errorf("completion shown %d times, want 1", n)
	}
}

func TestModalCoordinator_DismissedStaysClosed(t *testing.T) {
	view := newRecordingView()
	c := NewModalCoordinator(view)

	c.OnStateEnter(models.UIStatePreparing)
	if !c.IsOpen(ModalPrep) || !c.IsOpen(ModalDataLoading) {
		t.Fatal("preparation modals should be open")
	}
	c.Dismiss(ModalPrep)
	c.OnStateEnter(models.UIStatePreparing)
	if c.IsOpen(ModalPrep) {
		t.Error("dismissed modal reopened on a repeated state")
	}
}

func TestModalCoordinator_LeavingStateHides(t *testing.T) {
	view := newRecordingView()
	c := NewModalCoordinator(view)

	c.OnStateEnter(models.UIStatePreparing)
	c.OnStateEnter(models.UIStateTraining)
	if c.IsOpen(ModalPrep) || c.IsOpen(ModalDataLoading) {
		t.Error("preparation modals still open while training")
	}

	c.OnStateEnter(models.UIStatePreparing)
	if view.shownCount(ModalPrep) != 2 {
		t.Errorf("prep shown %d times, want 2 after re-entry", view.shownCount(ModalPrep))
	}
}
