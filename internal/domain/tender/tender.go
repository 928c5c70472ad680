package tender

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

// Tender is the aggregate root of the sealed-bid protocol. It holds the
// commitment and reveal sets for one procurement and enforces every
// state-transition invariant; callers only ever mutate it through
// CommitBid, RevealBid and Close.
type Tender struct {
	ID              uuid.UUID     `json:"id"`
	Creator         string        `json:"creator"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DocRef          string        `json:"doc_ref,omitempty"`
	MinBid          values.Amount `json:"min_bid"`
	BiddingDeadline time.Time     `json:"bidding_deadline"`
	RevealDeadline  time.Time     `json:"reveal_deadline"`
	Closed          bool          `json:"closed"`
	CreatedAt       time.Time     `json:"created_at"`

	Commitments map[string]*Commitment `json:"-"`
	Reveals     map[string]*Reveal     `json:"-"`
	Winner      *Winner                `json:"winner,omitempty"`
}

// Commitment is a sealed bid: the ciphertext binds the bidder to an
// amount nobody can read until the matching key is revealed. Never
// mutated or deleted once accepted.
type Commitment struct {
	TenderID    uuid.UUID `json:"tender_id"`
	Bidder      string    `json:"bidder"`
	Ciphertext  string    `json:"ciphertext"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Reveal is an accepted disclosure of a committed bid. Only reveals that
// passed commitment verification and the minimum-bid check are stored.
type Reveal struct {
	TenderID   uuid.UUID     `json:"tender_id"`
	Bidder     string        `json:"bidder"`
	Amount     values.Amount `json:"amount"`
	RevealedAt time.Time     `json:"revealed_at"`
}

// Winner is the selected bid after closure, at most one per tender.
type Winner struct {
	TenderID   uuid.UUID     `json:"tender_id"`
	Bidder     string        `json:"bidder"`
	Amount     values.Amount `json:"amount"`
	SelectedAt time.Time     `json:"selected_at"`
}

// VerifyCommitment reports whether key opens ciphertext to exactly the
// claimed amount. Satisfied by the sealing cipher; injected so the
// aggregate stays free of crypto imports.
type VerifyCommitment func(ciphertext, key string, amount values.Amount) error

// NewTender validates the schedule and minimum bid and allocates a fresh
// open tender with empty commitment and reveal sets.
func NewTender(now time.Time, creator, title, description, docRef string,
	biddingDeadline, revealDeadline time.Time, minBid values.Amount) (*Tender, error) {

	if creator == "" {
		return nil, errors.NewValidationError("MISSING_CREATOR", "creator identity is required")
	}
	if title == "" {
		return nil, errors.NewValidationError("MISSING_TITLE", "title is required")
	}
	if !biddingDeadline.After(now) {
		return nil, errors.NewInvalidScheduleError("bidding deadline must be in the future")
	}
	if !revealDeadline.After(biddingDeadline) {
		return nil, errors.NewInvalidScheduleError("reveal deadline must be after the bidding deadline")
	}
	if !minBid.IsPositive() {
		return nil, errors.NewInvalidBidError("minimum bid must be positive")
	}

	return &Tender{
		ID:              uuid.New(),
		Creator:         creator,
		Title:           title,
		Description:     description,
		DocRef:          docRef,
		MinBid:          minBid,
		BiddingDeadline: biddingDeadline.UTC(),
		RevealDeadline:  revealDeadline.UTC(),
		Closed:          false,
		CreatedAt:       now.UTC(),
		Commitments:     make(map[string]*Commitment),
		Reveals:         make(map[string]*Reveal),
	}, nil
}

// Phase derives the tender's phase at the given instant
func (t *Tender) Phase(now time.Time) Phase {
	return PhaseOf(now, t)
}

// CommitBid appends a sealed bid. Legal only in the bidding phase and at
// most once per bidder; a prior commitment is never overwritten.
func (t *Tender) CommitBid(now time.Time, bidder, ciphertext string) error {
	if bidder == "" {
		return errors.NewValidationError("MISSING_BIDDER", "bidder identity is required")
	}
	if ciphertext == "" {
		return errors.NewInvalidBidError("ciphertext is required")
	}
	if phase := t.Phase(now); phase != PhaseBidding {
		return errors.NewWrongPhaseError("commit", phase.String())
	}
	if _, exists := t.Commitments[bidder]; exists {
		return errors.NewDuplicateBidError()
	}

	t.Commitments[bidder] = &Commitment{
		TenderID:    t.ID,
		Bidder:      bidder,
		Ciphertext:  ciphertext,
		SubmittedAt: now.UTC(),
	}
	return nil
}

// RevealBid accepts a disclosure after checking, in order: phase, that a
// commitment exists, single reveal, that the key reproduces the claimed
// amount from the stored ciphertext, and the tender minimum. The claimed
// amount is never trusted without verification.
func (t *Tender) RevealBid(now time.Time, bidder string, amount values.Amount, key string, verify VerifyCommitment) error {
	if phase := t.Phase(now); phase != PhaseReveal {
		return errors.NewWrongPhaseError("reveal", phase.String())
	}
	commitment, exists := t.Commitments[bidder]
	if !exists {
		return errors.NewNoSuchCommitmentError()
	}
	if _, revealed := t.Reveals[bidder]; revealed {
		return errors.NewDuplicateRevealError()
	}
	if err := verify(commitment.Ciphertext, key, amount); err != nil {
		if errors.IsCode(err, "MALFORMED_CIPHERTEXT") {
			return err
		}
		return errors.NewCommitmentMismatchError()
	}
	if amount.LessThan(t.MinBid) {
		return errors.NewBelowMinimumError()
	}

	t.Reveals[bidder] = &Reveal{
		TenderID:   t.ID,
		Bidder:     bidder,
		Amount:     amount,
		RevealedAt: now.UTC(),
	}
	return nil
}

// Close freezes the tender and selects the winner from accepted reveals.
// Legal only after the reveal deadline, exactly once, and only for the
// creator; operator allowance is decided by the caller before invoking
// Close and expressed through asOperator.
func (t *Tender) Close(now time.Time, caller string, asOperator bool) (*Winner, error) {
	if t.Closed {
		return nil, errors.NewAlreadyClosedError()
	}
	if phase := t.Phase(now); phase != PhaseAwaitingClosure {
		return nil, errors.NewWrongPhaseError("close", phase.String())
	}
	if caller != t.Creator && !asOperator {
		return nil, errors.NewUnauthorizedError("only the tender creator may close it")
	}

	t.Closed = true
	if best := SelectWinner(t.RevealList(), t.MinBid); best != nil {
		t.Winner = &Winner{
			TenderID:   t.ID,
			Bidder:     best.Bidder,
			Amount:     best.Amount,
			SelectedAt: now.UTC(),
		}
	}
	return t.Winner, nil
}

// Clone returns a deep copy so readers can hold a consistent snapshot
// while the aggregate keeps mutating under its lock
func (t *Tender) Clone() *Tender {
	clone := *t
	clone.Commitments = make(map[string]*Commitment, len(t.Commitments))
	for bidder, c := range t.Commitments {
		copied := *c
		clone.Commitments[bidder] = &copied
	}
	clone.Reveals = make(map[string]*Reveal, len(t.Reveals))
	for bidder, r := range t.Reveals {
		copied := *r
		clone.Reveals[bidder] = &copied
	}
	if t.Winner != nil {
		winner := *t.Winner
		clone.Winner = &winner
	}
	return &clone
}

// CommitmentOf returns the bidder's commitment, if any
func (t *Tender) CommitmentOf(bidder string) (*Commitment, bool) {
	c, ok := t.Commitments[bidder]
	return c, ok
}

// Bidders returns the identities that committed, sorted for stable output
func (t *Tender) Bidders() []string {
	bidders := make([]string, 0, len(t.Commitments))
	for bidder := range t.Commitments {
		bidders = append(bidders, bidder)
	}
	sort.Strings(bidders)
	return bidders
}

// RevealList returns the accepted reveals in unspecified order
func (t *Tender) RevealList() []*Reveal {
	reveals := make([]*Reveal, 0, len(t.Reveals))
	for _, r := range t.Reveals {
		reveals = append(reveals, r)
	}
	return reveals
}
