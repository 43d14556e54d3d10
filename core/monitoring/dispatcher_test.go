package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-monitor/api/client"
	"signal-monitor/core/models"

	"go.uber.org/zap"
)

func newTestDispatcher(sender CommandSender, confirm Confirmer, view *recordingView) (*ActionDispatcher, *ControlPanel, *ActivityLog) {
	controls := NewControlPanel(view)
	log := NewActivityLog(0, view)
	d := NewActionDispatcher(DispatcherConfig{
		JobID:     "job-1",
		Sender:    sender,
		Confirmer: confirm,
		Notifier:  view,
		Controls:  controls,
		Log:       log,
		Logger:    zap.NewNop(),
	})
	return d, controls, log
}

func TestActionDispatcher_PauseSwapsControls(t *testing.T) {
	view := newRecordingView()
	sender := &fakeSender{msg: "Training paused"}
	d, controls, log := newTestDispatcher(sender, nil, view)
	controls.ApplyServerStatus(models.ServerStatusTraining)

	res, err := d.Send(context.Background(), models.CommandPause)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Message != "Training paused" {
		t.Errorf("Message = %q", res.Message)
	}
	if controls.Enabled(ControlPause) || !controls.Enabled(ControlResume) {
		t.Error("pause should disable pause and enable resume")
	}
	if got := log.Entries()[0].Level; got != models.LogWarning {
		t.Errorf("log level = %q, want warning", got)
	}
}

func TestActionDispatcher_StopRequiresConfirmation(t *testing.T) {
	view := newRecordingView()
	sender := &fakeSender{}
	d, controls, _ := newTestDispatcher(sender, fixedConfirmer(false), view)
	controls.ApplyServerStatus(models.ServerStatusTraining)

	if _, err := d.Send(context.Background(), models.CommandStop); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("Send() error = %v, want ErrNotConfirmed", err)
	}
	if sender.count() != 0 {
		t.Error("declined stop reached the backend")
	}
	if !controls.Enabled(ControlStop) {
		t.Error("declined stop changed the controls")
	}
}

func TestActionDispatcher_StopConfirmed(t *testing.T) {
	view := newRecordingView()
	d, controls, _ := newTestDispatcher(&fakeSender{}, fixedConfirmer(true), view)
	controls.ApplyServerStatus(models.ServerStatusTraining)

	if _, err := d.Send(context.Background(), models.CommandStop); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	for _, c := range []Control{ControlPause, ControlResume, ControlStop} {
		if controls.Enabled(c) {
			t.Errorf("%s still enabled after stop", c)
		}
	}
}

func TestActionDispatcher_FailureRestoresControls(t *testing.T) {
	view := newRecordingView()
	sender := &fakeSender{err: &client.APIError{StatusCode: 400, Message: "Can only resume a paused job"}}
	d, controls, log := newTestDispatcher(sender, nil, view)
	controls.ApplyServerStatus(models.ServerStatusPaused)

	_, err := d.Send(context.Background(), models.CommandResume)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Send() error = %v, want *client.APIError", err)
	}
	if !controls.Enabled(ControlResume) || !controls.Enabled(ControlStop) {
		t.Error("controls not restored after failure")
	}
	entry := log.Entries()[0]
	if entry.Level != models.LogError || entry.Message != "Resume training failed: Can only resume a paused job" {
		t.Errorf("log entry = %+v", entry)
	}
	if len(view.notes) != 1 {
		t.Errorf("notifications = %d, want 1", len(view.notes))
	}
}

func TestActionDispatcher_RefusesDuplicateInFlight(t *testing.T) {
	view := newRecordingView()
	sender := &fakeSender{block: make(chan struct{})}
	d, controls, _ := newTestDispatcher(sender, nil, view)
	controls.ApplyServerStatus(models.ServerStatusTraining)

	done := make(chan error, 1)
	go func() {
		_, err := d.Send(context.Background(), models.CommandPause)
		done <- err
	}()
	waitFor(t, func() bool { return sender.count() == 1 })

	if controls.Enabled(ControlPause) {
		t.Error("pause enabled while its request is in flight")
	}
	if _, err := d.Send(context.Background(), models.CommandPause); !errors.Is(err, ErrInFlight) {
		t.Errorf("duplicate Send() error = %v, want ErrInFlight", err)
	}

	close(sender.block)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("first Send() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first Send() did not return")
	}
	if sender.count() != 1 {
		t.Errorf("backend saw %d requests, want 1", sender.count())
	}
}

func TestActionDispatcher_UnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(&fakeSender{}, nil, newRecordingView())
	if _, err := d.Send(context.Background(), models.Command("reboot")); err == nil {
		t.Error("Send() accepted an unknown command")
	}
}
