package pipeline

import "fmt"

// StallKind is the state of the Decode stage's stall state machine.
type StallKind int

const (
	// StateNormal means Decode issues the instruction in IF/ID.
	StateNormal StallKind = iota
	// StateStalled means Decode holds the instruction in IF/ID and issues
	// bubbles until the producer it depends on has made its result
	// available.
	StateStalled
	// StateBranchBubble means a control transfer was issued last cycle. The
	// instruction fetched behind it is discarded and a bubble is issued.
	StateBranchBubble
)

// String returns the name of the state.
func (k StallKind) String() string {
	switch k {
	case StateStalled:
		return "stalled"
	case StateBranchBubble:
		return "branch-bubble"
	default:
		return "normal"
	}
}

// StallState is the control state of the Decode stage. It is only
// transitioned by Decode, with the single exception of Writeback releasing
// a stall whose producer has retired.
type StallState struct {
	Kind StallKind

	// Remaining is the number of bubbles still to be issued.
	Remaining int

	// Producer is the instruction the stall waits on.
	Producer Producer
}

// String returns a short description of the state.
func (s StallState) String() string {
	if s.Kind != StateStalled {
		return s.Kind.String()
	}
	return fmt.Sprintf("stalled(%d, seq=%d x%d)", s.Remaining, s.Producer.Seq, s.Producer.Rd)
}

// Stall enters the stalled state. The cycle in which the hazard is found
// issues the first bubble, so Remaining starts one lower than cycles.
func (s *StallState) Stall(cycles int, producer Producer) {
	*s = StallState{
		Kind:      StateStalled,
		Remaining: max(cycles-1, 0),
		Producer:  producer,
	}
}

// BranchBubble schedules a bubble for the next cycle.
func (s *StallState) BranchBubble() {
	*s = StallState{Kind: StateBranchBubble}
}

// Release returns to the normal state.
func (s *StallState) Release() {
	*s = StallState{}
}

// Countdown consumes one stall cycle. It returns true if the stall is over
// and the held instruction may be decoded this cycle.
func (s *StallState) Countdown() bool {
	if s.Kind != StateStalled {
		return true
	}

	if s.Remaining == 0 {
		s.Release()
		return true
	}

	s.Remaining--
	return false
}

// Wait consumes one stall cycle without ending the stall. Stalls taken
// without forwarding only end when the producer retires.
func (s *StallState) Wait() {
	if s.Remaining > 0 {
		s.Remaining--
	}
}

// Retire releases the stall if seq is the producer it waits on. It returns
// true if the stall was released.
func (s *StallState) Retire(seq uint64) bool {
	if s.Kind != StateStalled || s.Producer.Seq != seq {
		return false
	}
	s.Release()
	return true
}
