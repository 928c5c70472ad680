package sealing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

// RevealPacket is the bidder-held bundle needed to reveal a sealed bid.
// It is exported once at commit time and never persisted server-side;
// losing it forfeits participation, which later surfaces as an ordinary
// NO_SUCH_COMMITMENT or mismatch failure, not a system fault.
type RevealPacket struct {
	TenderID      uuid.UUID     `json:"tender_id"`
	Bidder        string        `json:"bidder"`
	DecryptionKey string        `json:"decryption_key"`
	BidAmount     values.Amount `json:"bid_amount"`
	ExportedAt    time.Time     `json:"timestamp"`
}

// Export serializes a reveal packet to its self-contained, human-portable
// JSON form, including the export timestamp for audit.
func Export(tenderID uuid.UUID, bidder string, key Key, amount values.Amount, now time.Time) ([]byte, error) {
	packet := RevealPacket{
		TenderID:      tenderID,
		Bidder:        bidder,
		DecryptionKey: key.String(),
		BidAmount:     amount,
		ExportedAt:    now.UTC(),
	}
	return json.MarshalIndent(packet, "", "  ")
}

// Parse is the inverse of Export. Missing or unreadable fields fail with
// PARSE_ERROR; a present but non-positive amount fails with TYPE_ERROR.
func Parse(raw []byte) (*RevealPacket, error) {
	// bid_amount decodes through a pointer so an absent field is
	// distinguishable from an explicit zero
	var fields struct {
		TenderID      uuid.UUID      `json:"tender_id"`
		Bidder        string         `json:"bidder"`
		DecryptionKey string         `json:"decryption_key"`
		BidAmount     *values.Amount `json:"bid_amount"`
		ExportedAt    time.Time      `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.NewParseError("reveal packet is not valid JSON").WithCause(err)
	}
	if fields.TenderID == uuid.Nil {
		return nil, errors.NewParseError("reveal packet is missing tender_id")
	}
	if fields.Bidder == "" {
		return nil, errors.NewParseError("reveal packet is missing bidder")
	}
	if fields.DecryptionKey == "" {
		return nil, errors.NewParseError("reveal packet is missing decryption_key")
	}
	if fields.BidAmount == nil {
		return nil, errors.NewParseError("reveal packet is missing bid_amount")
	}
	if !fields.BidAmount.IsPositive() {
		return nil, errors.NewValidationError("TYPE_ERROR", "bid_amount must be a positive integer")
	}
	return &RevealPacket{
		TenderID:      fields.TenderID,
		Bidder:        fields.Bidder,
		DecryptionKey: fields.DecryptionKey,
		BidAmount:     *fields.BidAmount,
		ExportedAt:    fields.ExportedAt,
	}, nil
}

// Filename is the conventional download name for a packet
func (p *RevealPacket) Filename() string {
	return fmt.Sprintf("tender-%s-reveal-packet.json", p.TenderID)
}
