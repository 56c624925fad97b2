package route

import "fmt"

// ComparisonStatus represents the lifecycle stage of one comparison.
type ComparisonStatus string

const (
	StatusIdle      ComparisonStatus = "idle"
	StatusResolving ComparisonStatus = "resolving"
	StatusFetching  ComparisonStatus = "fetching"
	StatusDone      ComparisonStatus = "done"
	StatusFailed    ComparisonStatus = "failed"
)

// validTransitions defines the state machine for comparison status transitions.
var validTransitions = map[ComparisonStatus][]ComparisonStatus{
	StatusIdle:      {StatusResolving},
	StatusResolving: {StatusFetching, StatusFailed},
	StatusFetching:  {StatusDone, StatusFailed},
	StatusDone:      {},
	StatusFailed:    {},
}

// IsValid returns true if the status is a recognized comparison status.
func (s ComparisonStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s ComparisonStatus) CanTransitionTo(target ComparisonStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s ComparisonStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// String returns the string representation of the status.
func (s ComparisonStatus) String() string {
	return string(s)
}

// ParseComparisonStatus converts a string to a ComparisonStatus, returning an error if invalid.
func ParseComparisonStatus(s string) (ComparisonStatus, error) {
	status := ComparisonStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid comparison status: %s", s)
	}
	return status, nil
}

// Tracker walks a single comparison through the state machine.
type Tracker struct {
	status ComparisonStatus
}

// NewTracker returns a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{status: StatusIdle}
}

// Status returns the current status.
func (t *Tracker) Status() ComparisonStatus { return t.status }

// Advance moves the tracker to the target status if the transition is allowed.
func (t *Tracker) Advance(target ComparisonStatus) error {
	if !t.status.CanTransitionTo(target) {
		return fmt.Errorf("invalid comparison status transition: %s -> %s", t.status, target)
	}
	t.status = target
	return nil
}
