package monitoring

import "signal-monitor/core/models"

// Modal identifies a blocking dialog of the monitor
type Modal string

const (
	ModalPrep        Modal = "prep"
	ModalDataLoading Modal = "data-loading"
	ModalCompletion  Modal = "completion"
)

// ModalView shows and hides modals
type ModalView interface {
	ShowModal(m Modal)
	HideModal(m Modal)
}

// modalStates maps every modal to the UI state that opens it
var modalStates = map[Modal]models.UIState{
	ModalPrep:        models.UIStatePreparing,
	ModalDataLoading: models.UIStatePreparing,
	ModalCompletion:  models.UIStateCompleted,
}

// modalOrder fixes iteration order so views see a stable call sequence
var modalOrder = []Modal{ModalPrep, ModalDataLoading, ModalCompletion}

// ModalCoordinator opens each modal at most once per entry into its state
type ModalCoordinator struct {
	view    ModalView
	current models.UIState
	entered bool
	shown   map[Modal]bool
	open    map[Modal]bool
}

// NewModalCoordinator creates a coordinator driving view
func NewModalCoordinator(view ModalView) *ModalCoordinator {
	return &ModalCoordinator{
		view:  view,
		shown: make(map[Modal]bool),
		open:  make(map[Modal]bool),
	}
}

// OnStateEnter is called for every derived state.
// Repeating the current state is a no-op so a dismissed modal stays closed.
func (c *ModalCoordinator) OnStateEnter(state models.UIState) {
	if c.entered && state == c.current {
		return
	}
	c.entered = true
	c.current = state

	for _, m := range modalOrder {
		if modalStates[m] == state {
			if !c.shown[m] {
				c.shown[m] = true
				c.show(m)
			}
			continue
		}
		// leaving the modal's state re-arms it for the next entry
		c.shown[m] = false
		c.hide(m)
	}
}

// Dismiss closes a modal at the user's request
func (c *ModalCoordinator) Dismiss(m Modal) {
	c.hide(m)
}

// IsOpen reports whether m is currently displayed
func (c *ModalCoordinator) IsOpen(m Modal) bool {
	return c.open[m]
}

func (c *ModalCoordinator) show(m Modal) {
	c.open[m] = true
	if c.view != nil {
		c.view.ShowModal(m)
	}
}

func (c *ModalCoordinator) hide(m Modal) {
	if !c.open[m] {
		return
	}
	c.open[m] = false
	if c.view != nil {
		c.view.HideModal(m)
	}
}
