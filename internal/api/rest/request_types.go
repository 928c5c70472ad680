package rest

import "time"

// CreateTenderRequest creates a new tender with its phase schedule.
type CreateTenderRequest struct {
	Title           string    `json:"title" validate:"required,min=1,max=200"`
	Description     string    `json:"description" validate:"max=2000"`
	DocRef          string    `json:"doc_ref" validate:"max=200"`
	MinBid          int64     `json:"min_bid" validate:"required,gt=0"`
	BiddingDeadline time.Time `json:"bidding_deadline" validate:"required"`
	RevealDeadline  time.Time `json:"reveal_deadline" validate:"required,gtfield=BiddingDeadline"`
}

// CommitBidRequest records a sealed bid during the bidding phase.
type CommitBidRequest struct {
	Ciphertext string `json:"ciphertext" validate:"required,base64"`
}

// RevealBidRequest discloses a bid amount with its decryption key.
type RevealBidRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Key    string `json:"key" validate:"required,hexadecimal,len=64"`
}

// SealBidRequest seals an amount under a fresh one-time key.
type SealBidRequest struct {
	TenderID string `json:"tender_id" validate:"required,uuid"`
	Bidder   string `json:"bidder" validate:"required,bidder_id"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

// UnsealBidRequest opens a ciphertext with the supplied key.
type UnsealBidRequest struct {
	Ciphertext string `json:"ciphertext" validate:"required,base64"`
	Key        string `json:"key" validate:"required,hexadecimal,len=64"`
}
