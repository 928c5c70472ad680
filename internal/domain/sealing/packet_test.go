package sealing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/sealing"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

func TestPacket_ExportParse(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)

	tenderID := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	raw, err := sealing.Export(tenderID, "GBIDDER1", key, values.MustNewAmount(150000), now)
	require.NoError(t, err)

	packet, err := sealing.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, tenderID, packet.TenderID)
	assert.Equal(t, "GBIDDER1", packet.Bidder)
	assert.Equal(t, key.String(), packet.DecryptionKey)
	assert.Equal(t, int64(150000), packet.BidAmount.Units())
	assert.Equal(t, now, packet.ExportedAt)
}

func TestPacket_ParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{
			name:     "not json",
			raw:      "not json at all",
			wantCode: "PARSE_ERROR",
		},
		{
			name:     "missing tender id",
			raw:      `{"bidder":"GB","decryption_key":"ab","bid_amount":100,"timestamp":"2025-06-01T12:00:00Z"}`,
			wantCode: "PARSE_ERROR",
		},
		{
			name:     "missing bidder",
			raw:      `{"tender_id":"5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa","decryption_key":"ab","bid_amount":100}`,
			wantCode: "PARSE_ERROR",
		},
		{
			name:     "missing key",
			raw:      `{"tender_id":"5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa","bidder":"GB","bid_amount":100}`,
			wantCode: "PARSE_ERROR",
		},
		{
			name:     "missing amount",
			raw:      `{"tender_id":"5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa","bidder":"GB","decryption_key":"ab"}`,
			wantCode: "PARSE_ERROR",
		},
		{
			name:     "null amount",
			raw:      `{"tender_id":"5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa","bidder":"GB","decryption_key":"ab","bid_amount":null}`,
			wantCode: "PARSE_ERROR",
		},
		{
			name:     "zero amount",
			raw:      `{"tender_id":"5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa","bidder":"GB","decryption_key":"ab","bid_amount":0}`,
			wantCode: "TYPE_ERROR",
		},
		{
			name:     "negative amount",
			raw:      `{"tender_id":"5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa","bidder":"GB","decryption_key":"ab","bid_amount":-5}`,
			wantCode: "PARSE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sealing.Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestPacket_Filename(t *testing.T) {
	id := uuid.MustParse("5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa")
	p := &sealing.RevealPacket{TenderID: id}
	assert.Equal(t, "tender-5e0db4bc-6e1c-4d8e-9a59-0c0f13f9e0aa-reveal-packet.json", p.Filename())
}
