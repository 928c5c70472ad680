package tender

import "time"

// Phase is the derived lifecycle stage of a tender. Only the closed flag
// is stored; everything else is a pure function of the clock and the two
// deadlines, so the API and the protocol can never disagree on phase.
type Phase int

const (
	PhaseBidding Phase = iota
	PhaseReveal
	PhaseAwaitingClosure
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseBidding:
		return "bidding"
	case PhaseReveal:
		return "reveal"
	case PhaseAwaitingClosure:
		return "awaiting_closure"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the phase as its string form
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// PhaseOf derives the phase of a tender at the given instant.
// Closed is sticky and overrides time entirely.
func PhaseOf(now time.Time, t *Tender) Phase {
	if t.Closed {
		return PhaseClosed
	}
	if now.Before(t.BiddingDeadline) {
		return PhaseBidding
	}
	if now.Before(t.RevealDeadline) {
		return PhaseReveal
	}
	return PhaseAwaitingClosure
}
