package autofill

import (
	"errors"
	"fmt"
	"sync"
)

// State is the phase of an autofill run.
type State string

const (
	StateIdle          State = "idle"
	StateCollecting    State = "collecting"
	StateDeduplicating State = "deduplicating"
	StateBatching      State = "batching"
	StateRetrieving    State = "retrieving"
	StateApplying      State = "applying"
	StateCompleted     State = "completed"
	StateAbandoned     State = "abandoned"
)

// ErrInvalidTransition is returned when a run would move backwards or skip
// a phase.
var ErrInvalidTransition = errors.New("invalid state transition")

// transitions lists the states reachable from each state. Runs only move
// forward; completed and abandoned are terminal.
var transitions = map[State][]State{
	StateIdle:          {StateCollecting, StateAbandoned},
	StateCollecting:    {StateDeduplicating, StateCompleted, StateAbandoned},
	StateDeduplicating: {StateBatching, StateAbandoned},
	StateBatching:      {StateRetrieving, StateAbandoned},
	StateRetrieving:    {StateApplying, StateAbandoned},
	StateApplying:      {StateCompleted, StateAbandoned},
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

type machine struct {
	mu      sync.Mutex
	state   State
	history []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, history: []State{StateIdle}}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, next := range transitions[m.state] {
		if next == to {
			m.state = to
			m.history = append(m.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
}

func (m *machine) path() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}
