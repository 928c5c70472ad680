package rest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
)

// TenderResponse is the public view of a tender.
type TenderResponse struct {
	ID               uuid.UUID       `json:"id"`
	Creator          string          `json:"creator"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	DocRef           string          `json:"doc_ref,omitempty"`
	MinBid           int64           `json:"min_bid"`
	BiddingDeadline  time.Time       `json:"bidding_deadline"`
	RevealDeadline   time.Time       `json:"reveal_deadline"`
	Phase            string          `json:"phase"`
	SecondsRemaining int64           `json:"seconds_remaining"`
	BidderCount      int             `json:"bidder_count"`
	RevealCount      int             `json:"reveal_count"`
	CreatedAt        time.Time       `json:"created_at"`
	Winner           *WinnerResponse `json:"winner,omitempty"`
}

// WinnerResponse reports the selected winner of a closed tender.
type WinnerResponse struct {
	Bidder     string    `json:"bidder"`
	Amount     int64     `json:"amount"`
	SelectedAt time.Time `json:"selected_at"`
}

// CommitmentResponse is the public view of a sealed bid. The ciphertext
// is returned as submitted; it reveals nothing about the amount.
type CommitmentResponse struct {
	Bidder      string    `json:"bidder"`
	Ciphertext  string    `json:"ciphertext"`
	SubmittedAt time.Time `json:"submitted_at"`
	Revealed    bool      `json:"revealed"`
}

// SealedBidResponse carries a freshly sealed bid and its one-time key.
// The key is returned once and never stored server side.
type SealedBidResponse struct {
	Ciphertext string          `json:"ciphertext"`
	Key        string          `json:"key"`
	Packet     json.RawMessage `json:"packet"`
	Filename   string          `json:"filename"`
}

// UnsealedBidResponse reports the amount recovered from a ciphertext.
type UnsealedBidResponse struct {
	Amount int64 `json:"amount"`
}

func toTenderResponse(t *tender.Tender, now time.Time) *TenderResponse {
	phase := t.Phase(now)

	var remaining int64
	switch phase {
	case tender.PhaseBidding:
		remaining = int64(t.BiddingDeadline.Sub(now).Seconds())
	case tender.PhaseReveal:
		remaining = int64(t.RevealDeadline.Sub(now).Seconds())
	}
	if remaining < 0 {
		remaining = 0
	}

	resp := &TenderResponse{
		ID:               t.ID,
		Creator:          t.Creator,
		Title:            t.Title,
		Description:      t.Description,
		DocRef:           t.DocRef,
		MinBid:           t.MinBid.Units(),
		BiddingDeadline:  t.BiddingDeadline,
		RevealDeadline:   t.RevealDeadline,
		Phase:            phase.String(),
		SecondsRemaining: remaining,
		BidderCount:      len(t.Commitments),
		RevealCount:      len(t.Reveals),
		CreatedAt:        t.CreatedAt,
	}
	if t.Winner != nil {
		resp.Winner = toWinnerResponse(t.Winner)
	}
	return resp
}

func toWinnerResponse(w *tender.Winner) *WinnerResponse {
	return &WinnerResponse{
		Bidder:     w.Bidder,
		Amount:     w.Amount.Units(),
		SelectedAt: w.SelectedAt,
	}
}
