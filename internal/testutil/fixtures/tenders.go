package fixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opentender/sealed-tender-backend/internal/domain/sealing"
	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

// TenderBuilder builds test Tender aggregates
type TenderBuilder struct {
	now             time.Time
	creator         string
	title           string
	description     string
	docRef          string
	minBid          values.Amount
	biddingDeadline time.Time
	revealDeadline  time.Time
}

// NewTenderBuilder creates a TenderBuilder with defaults
func NewTenderBuilder() *TenderBuilder {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &TenderBuilder{
		now:             now,
		creator:         "GCREATOR",
		title:           "Road Construction",
		description:     "Resurfacing of the northern ring road",
		docRef:          "QmHash123",
		minBid:          values.MustNewAmount(100000),
		biddingDeadline: now.Add(24 * time.Hour),
		revealDeadline:  now.Add(48 * time.Hour),
	}
}

// WithNow sets the creation instant
func (b *TenderBuilder) WithNow(now time.Time) *TenderBuilder {
	b.now = now
	return b
}

// WithCreator sets the creator identity
func (b *TenderBuilder) WithCreator(creator string) *TenderBuilder {
	b.creator = creator
	return b
}

// WithTitle sets the title
func (b *TenderBuilder) WithTitle(title string) *TenderBuilder {
	b.title = title
	return b
}

// WithMinBid sets the minimum bid in units
func (b *TenderBuilder) WithMinBid(units int64) *TenderBuilder {
	b.minBid = values.MustNewAmount(units)
	return b
}

// WithSchedule sets both deadlines
func (b *TenderBuilder) WithSchedule(biddingDeadline, revealDeadline time.Time) *TenderBuilder {
	b.biddingDeadline = biddingDeadline
	b.revealDeadline = revealDeadline
	return b
}

// Build creates the tender, failing the test on invalid parameters
func (b *TenderBuilder) Build(t *testing.T) *tender.Tender {
	t.Helper()
	tn, err := tender.NewTender(b.now, b.creator, b.title, b.description, b.docRef,
		b.biddingDeadline, b.revealDeadline, b.minBid)
	require.NoError(t, err)
	return tn
}

// SealedBid is a ciphertext with the key that opens it, for commit and
// reveal test flows.
type SealedBid struct {
	Amount     values.Amount
	Ciphertext string
	Key        string
}

// NewSealedBid seals an amount under a fresh key
func NewSealedBid(t *testing.T, units int64) SealedBid {
	t.Helper()
	amount := values.MustNewAmount(units)
	key, err := sealing.GenerateKey()
	require.NoError(t, err)
	ciphertext, err := sealing.Encrypt(amount, key)
	require.NoError(t, err)
	return SealedBid{
		Amount:     amount,
		Ciphertext: ciphertext,
		Key:        key.String(),
	}
}
