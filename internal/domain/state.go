package domain

// SectionState is the per-ledger assessment state machine. The only legal
// transitions are NotStarted -> InProgress (first attempt recorded) and
// InProgress -> Passed (first passing attempt); Passed is terminal.
type SectionState string

const (
	StateNotStarted SectionState = "not_started"
	StateInProgress SectionState = "in_progress"
	StatePassed     SectionState = "passed"
)

// CanAdvanceTo reports whether moving from s to next is a legal transition.
func (s SectionState) CanAdvanceTo(next SectionState) bool {
	switch s {
	case StateNotStarted:
		return next == StateInProgress
	case StateInProgress:
		return next == StatePassed
	default:
		return false
	}
}

// Passed reports whether the terminal state has been reached.
func (s SectionState) Passed() bool {
	return s == StatePassed
}

// Valid reports whether s is one of the known states. The empty string is
// treated as NotStarted by Normalize.
func (s SectionState) Valid() bool {
	switch s {
	case StateNotStarted, StateInProgress, StatePassed:
		return true
	}
	return false
}

// Normalize maps the zero value to NotStarted so stores can round-trip
// ledgers that predate explicit states.
func (s SectionState) Normalize() SectionState {
	if s == "" {
		return StateNotStarted
	}
	return s
}
