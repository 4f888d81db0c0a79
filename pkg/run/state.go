package run

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-netprobe/pkg/storage"
)

// ErrInvalidTransition is returned for a backwards or repeated status change.
var ErrInvalidTransition = errors.New("invalid run status transition")

// transitions lists the allowed next statuses. PARTIAL and FAILED are
// reachable from every in-progress status.
var transitions = map[storage.RunStatus][]storage.RunStatus{
	storage.StatusInitialized: {
		storage.StatusSamplingCompleted,
		storage.StatusPartial,
		storage.StatusFailed,
	},
	storage.StatusSamplingCompleted: {
		storage.StatusCompleted,
		storage.StatusPartial,
		storage.StatusFailed,
	},
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to storage.RunStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stateMachine tracks the status of one run.
type stateMachine struct {
	status storage.RunStatus
}

func newStateMachine() *stateMachine {
	return &stateMachine{status: storage.StatusInitialized}
}

func (m *stateMachine) Status() storage.RunStatus {
	return m.status
}

func (m *stateMachine) Transition(to storage.RunStatus) error {
	if !CanTransition(m.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.status, to)
	}
	m.status = to
	return nil
}
