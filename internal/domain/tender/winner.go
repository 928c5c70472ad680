package tender

import (
	"sort"

	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

// SelectWinner applies the procurement rule over accepted reveals: the
// lowest responsive bid wins. Ties break by earliest reveal time, then
// by lexicographically smallest bidder identity, giving a total order so
// repeated evaluation of the same reveal set is always identical.
// Returns nil when no reveal is at or above the minimum.
func SelectWinner(reveals []*Reveal, minBid values.Amount) *Reveal {
	eligible := make([]*Reveal, 0, len(reveals))
	for _, r := range reveals {
		if !r.Amount.LessThan(minBid) {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if cmp := a.Amount.Compare(b.Amount); cmp != 0 {
			return cmp < 0
		}
		if !a.RevealedAt.Equal(b.RevealedAt) {
			return a.RevealedAt.Before(b.RevealedAt)
		}
		return a.Bidder < b.Bidder
	})
	return eligible[0]
}
