package tendering

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

// Service exposes the tender protocol operations
type Service interface {
	// CreateTender validates the schedule and allocates a new open tender
	CreateTender(ctx context.Context, req *CreateTenderRequest) (*tender.Tender, error)

	// CommitBid appends a sealed bid during the bidding phase
	CommitBid(ctx context.Context, tenderID uuid.UUID, bidder, ciphertext string) error

	// RevealBid verifies and appends a disclosure during the reveal phase
	RevealBid(ctx context.Context, tenderID uuid.UUID, bidder string, amount values.Amount, key string) error

	// CloseTender freezes the tender and selects the winner, exactly once
	CloseTender(ctx context.Context, tenderID uuid.UUID, caller string) (*tender.Winner, error)

	// SealBid seals an amount under a fresh one-time key and bundles the
	// reveal packet the bidder must retain; nothing is persisted
	SealBid(ctx context.Context, tenderID uuid.UUID, bidder string, amount values.Amount) (*SealedBid, error)

	// UnsealBid opens a ciphertext with the supplied key, for bidder
	// self-checks before revealing
	UnsealBid(ctx context.Context, ciphertext, key string) (values.Amount, error)

	// Read accessors
	GetTender(ctx context.Context, tenderID uuid.UUID) (*tender.Tender, error)
	ListTenders(ctx context.Context) ([]*tender.Tender, error)
	GetBidders(ctx context.Context, tenderID uuid.UUID) ([]string, error)
	// GetCommitment returns one bidder's commitment and whether it has
	// been revealed, both read from the same tender snapshot
	GetCommitment(ctx context.Context, tenderID uuid.UUID, bidder string) (*tender.Commitment, bool, error)
	GetWinner(ctx context.Context, tenderID uuid.UUID) (*tender.Winner, error)
}

// TenderRepository is the persistence contract the service depends on.
// Mutate must run fn under per-tender isolation: the aggregate passed to
// fn is loaded, mutated and stored as one atomic step, and two
// concurrent Mutate calls for the same id never interleave. Cross-tender
// calls are independent.
type TenderRepository interface {
	Create(ctx context.Context, t *tender.Tender) error
	GetByID(ctx context.Context, id uuid.UUID) (*tender.Tender, error)
	List(ctx context.Context) ([]*tender.Tender, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(*tender.Tender) error) (*tender.Tender, error)
}

// CreateTenderRequest carries the creation parameters
type CreateTenderRequest struct {
	Creator         string
	Title           string
	Description     string
	DocRef          string
	BiddingDeadline time.Time
	RevealDeadline  time.Time
	MinBid          values.Amount
}

// SealedBid is the result of sealing an amount: the ciphertext to
// submit, the one-time key, and the downloadable reveal packet
type SealedBid struct {
	Ciphertext string `json:"ciphertext"`
	Key        string `json:"decryption_key"`
	Packet     []byte `json:"-"`
	Filename   string `json:"filename"`
}
