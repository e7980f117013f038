// Package quorum decides the outcome of a proposal from its vote tally.
//
// The decision is a pure function of the current tally and the number of
// members eligible to vote at the moment of the vote. The eligible count is
// not frozen at proposal creation, so the required majority follows the
// live membership.
package quorum

import "fmt"

// Tally is the approve/reject count of one voting epoch.
type Tally struct {
	Approve uint64 `json:"approve"`
	Reject  uint64 `json:"reject"`
}

// Total is the number of votes cast so far.
func (t Tally) Total() uint64 {
	return t.Approve + t.Reject
}

type Decision uint8

const (
	Unchanged Decision = iota
	Accepted
	Rejected
	DraftReset
)

func (d Decision) String() string {
	switch d {
	case Unchanged:
		return "unchanged"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case DraftReset:
		return "draft_reset"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// Target is the strict-majority threshold over n eligible voters.
func Target(n uint64) uint64 {
	return n/2 + 1
}

// HasQuorum reports whether q votes reach the threshold for n voters.
func HasQuorum(n, q uint64) bool {
	return q >= Target(n)
}

// Decide maps a tally to a decision. A tie only resets the proposal once
// every eligible voter has voted; before that it stays open.
func Decide(t Tally, eligible uint64) Decision {
	q := t.Total()
	if !HasQuorum(eligible, q) {
		return Unchanged
	}
	switch {
	case t.Approve > t.Reject:
		return Accepted
	case t.Approve < t.Reject:
		return Rejected
	case q == eligible:
		return DraftReset
	default:
		return Unchanged
	}
}
