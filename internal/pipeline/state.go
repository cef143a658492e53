package pipeline

import "fmt"

// State names one stage of the generation state machine.
type State string

// Pipeline states. COMPLETED and FAILED are absorbing: once entered, no
// further transitions are legal.
const (
	StateFetching   State = "FETCHING"
	StateAnalyzing  State = "ANALYZING"
	StateRetrieving State = "RETRIEVING"
	StateGenerating State = "GENERATING"
	StateValidating State = "VALIDATING"
	StateSaving     State = "SAVING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// transitions is the legal successor table. FAILED is reachable from
// every non-terminal state and is therefore not listed per-row.
var transitions = map[State]State{
	StateFetching:   StateAnalyzing,
	StateAnalyzing:  StateRetrieving,
	StateRetrieving: StateGenerating,
	StateGenerating: StateValidating,
	StateValidating: StateSaving,
	StateSaving:     StateCompleted,
}

// machine tracks the current stage and enforces transition legality.
type machine struct {
	current State
}

func newMachine() *machine {
	return &machine{current: StateFetching}
}

// advance moves to the single legal successor of the current state.
func (m *machine) advance() error {
	next, ok := transitions[m.current]
	if !ok {
		return fmt.Errorf("no transition out of terminal state %s", m.current)
	}
	m.current = next
	return nil
}

// fail moves to FAILED from any non-terminal state.
func (m *machine) fail() error {
	if m.terminal() {
		return fmt.Errorf("cannot fail from terminal state %s", m.current)
	}
	m.current = StateFailed
	return nil
}

func (m *machine) terminal() bool {
	return m.current == StateCompleted || m.current == StateFailed
}
