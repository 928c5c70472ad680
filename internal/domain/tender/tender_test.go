package tender_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/sealing"
	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
	"github.com/opentender/sealed-tender-backend/internal/testutil/fixtures"
)

func seal(t *testing.T, units int64) (ciphertext, key string) {
	t.Helper()
	sb := fixtures.NewSealedBid(t, units)
	return sb.Ciphertext, sb.Key
}

func TestNewTender(t *testing.T) {
	minBid := values.MustNewAmount(100000)

	tests := []struct {
		name            string
		creator         string
		title           string
		biddingDeadline time.Time
		revealDeadline  time.Time
		minBid          values.Amount
		wantCode        string
	}{
		{
			name: "valid schedule", creator: "GCREATOR", title: "Road Construction",
			biddingDeadline: d1, revealDeadline: d2, minBid: minBid,
		},
		{
			name: "bidding deadline in the past", creator: "GCREATOR", title: "t",
			biddingDeadline: t0.Add(-time.Hour), revealDeadline: d2, minBid: minBid,
			wantCode: "INVALID_SCHEDULE",
		},
		{
			name: "bidding deadline equals now", creator: "GCREATOR", title: "t",
			biddingDeadline: t0, revealDeadline: d2, minBid: minBid,
			wantCode: "INVALID_SCHEDULE",
		},
		{
			name: "reveal deadline before bidding deadline", creator: "GCREATOR", title: "t",
			biddingDeadline: d2, revealDeadline: d1, minBid: minBid,
			wantCode: "INVALID_SCHEDULE",
		},
		{
			name: "reveal deadline equals bidding deadline", creator: "GCREATOR", title: "t",
			biddingDeadline: d1, revealDeadline: d1, minBid: minBid,
			wantCode: "INVALID_SCHEDULE",
		},
		{
			name: "zero minimum bid", creator: "GCREATOR", title: "t",
			biddingDeadline: d1, revealDeadline: d2, minBid: values.Zero(),
			wantCode: "INVALID_BID",
		},
		{
			name: "missing creator", title: "t",
			biddingDeadline: d1, revealDeadline: d2, minBid: minBid,
			wantCode: "MISSING_CREATOR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tn, err := tender.NewTender(t0, tt.creator, tt.title, "desc", "QmHash123",
				tt.biddingDeadline, tt.revealDeadline, tt.minBid)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.False(t, tn.Closed)
			assert.Empty(t, tn.Commitments)
			assert.Empty(t, tn.Reveals)
			assert.Nil(t, tn.Winner)
			assert.Equal(t, tender.PhaseBidding, tn.Phase(t0))
		})
	}
}

func TestTender_CommitBid(t *testing.T) {
	t.Run("accepts during bidding phase", func(t *testing.T) {
		tn := newOpenTender(t)
		ct, _ := seal(t, 150000)

		require.NoError(t, tn.CommitBid(d1.Add(-10*time.Second), "GBIDDERX", ct))

		c, ok := tn.CommitmentOf("GBIDDERX")
		require.True(t, ok)
		assert.Equal(t, ct, c.Ciphertext)
		assert.Equal(t, tn.ID, c.TenderID)
	})

	t.Run("second commit by same bidder never overwrites", func(t *testing.T) {
		tn := newOpenTender(t)
		first, _ := seal(t, 150000)
		second, _ := seal(t, 90000)

		require.NoError(t, tn.CommitBid(t0.Add(time.Hour), "GBIDDERX", first))
		err := tn.CommitBid(t0.Add(2*time.Hour), "GBIDDERX", second)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "DUPLICATE_BID"))

		c, _ := tn.CommitmentOf("GBIDDERX")
		assert.Equal(t, first, c.Ciphertext)
	})

	t.Run("rejected at and after bidding deadline", func(t *testing.T) {
		tn := newOpenTender(t)
		ct, _ := seal(t, 150000)

		for _, now := range []time.Time{d1, d1.Add(time.Hour), d2.Add(time.Hour)} {
			err := tn.CommitBid(now, "GBIDDERX", ct)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, "WRONG_PHASE"))
		}
	})

	t.Run("independent bidders all accepted", func(t *testing.T) {
		tn := newOpenTender(t)
		for _, bidder := range []string{"GBIDDERA", "GBIDDERB", "GBIDDERC"} {
			ct, _ := seal(t, 150000)
			require.NoError(t, tn.CommitBid(t0.Add(time.Hour), bidder, ct))
		}
		assert.Equal(t, []string{"GBIDDERA", "GBIDDERB", "GBIDDERC"}, tn.Bidders())
	})
}

func TestTender_RevealBid(t *testing.T) {
	commit := func(t *testing.T, tn *tender.Tender, bidder string, units int64) string {
		ct, key := seal(t, units)
		require.NoError(t, tn.CommitBid(t0.Add(time.Hour), bidder, ct))
		return key
	}

	t.Run("valid reveal accepted", func(t *testing.T) {
		tn := newOpenTender(t)
		key := commit(t, tn, "GBIDDERX", 150000)

		err := tn.RevealBid(d1.Add(5*time.Second), "GBIDDERX",
			values.MustNewAmount(150000), key, sealing.Verify)
		require.NoError(t, err)

		r := tn.Reveals["GBIDDERX"]
		require.NotNil(t, r)
		assert.Equal(t, int64(150000), r.Amount.Units())
	})

	t.Run("reveal before bidding deadline fails wrong phase", func(t *testing.T) {
		tn := newOpenTender(t)
		key := commit(t, tn, "GBIDDERX", 150000)

		err := tn.RevealBid(d1.Add(-time.Second), "GBIDDERX",
			values.MustNewAmount(150000), key, sealing.Verify)
		assert.True(t, errors.IsCode(err, "WRONG_PHASE"))
	})

	t.Run("reveal after reveal deadline fails wrong phase", func(t *testing.T) {
		tn := newOpenTender(t)
		key := commit(t, tn, "GBIDDERX", 150000)

		err := tn.RevealBid(d2.Add(time.Second), "GBIDDERX",
			values.MustNewAmount(150000), key, sealing.Verify)
		assert.True(t, errors.IsCode(err, "WRONG_PHASE"))
	})

	t.Run("reveal without commitment", func(t *testing.T) {
		tn := newOpenTender(t)
		_, key := seal(t, 150000)

		err := tn.RevealBid(d1.Add(time.Second), "GNOBODY",
			values.MustNewAmount(150000), key, sealing.Verify)
		assert.True(t, errors.IsCode(err, "NO_SUCH_COMMITMENT"))
	})

	t.Run("claimed amount differing from sealed amount", func(t *testing.T) {
		tn := newOpenTender(t)
		key := commit(t, tn, "GBIDDERX", 150000)

		err := tn.RevealBid(d1.Add(time.Second), "GBIDDERX",
			values.MustNewAmount(140000), key, sealing.Verify)
		assert.True(t, errors.IsCode(err, "COMMITMENT_MISMATCH"))
		assert.Empty(t, tn.Reveals)
	})

	t.Run("wrong key is a mismatch, not an acceptance", func(t *testing.T) {
		tn := newOpenTender(t)
		commit(t, tn, "GBIDDERX", 150000)
		otherKey, err := sealing.GenerateKey()
		require.NoError(t, err)

		err = tn.RevealBid(d1.Add(time.Second), "GBIDDERX",
			values.MustNewAmount(150000), otherKey.String(), sealing.Verify)
		assert.True(t, errors.IsCode(err, "COMMITMENT_MISMATCH"))
	})

	t.Run("below minimum rejected after verification", func(t *testing.T) {
		tn := newOpenTender(t)
		key := commit(t, tn, "GBIDDERY", 80000)

		err := tn.RevealBid(d1.Add(5*time.Second), "GBIDDERY",
			values.MustNewAmount(80000), key, sealing.Verify)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "BELOW_MINIMUM"))
		assert.Empty(t, tn.Reveals)
	})

	t.Run("double reveal rejected", func(t *testing.T) {
		tn := newOpenTender(t)
		key := commit(t, tn, "GBIDDERX", 150000)

		require.NoError(t, tn.RevealBid(d1.Add(time.Second), "GBIDDERX",
			values.MustNewAmount(150000), key, sealing.Verify))
		err := tn.RevealBid(d1.Add(2*time.Second), "GBIDDERX",
			values.MustNewAmount(150000), key, sealing.Verify)
		assert.True(t, errors.IsCode(err, "DUPLICATE_REVEAL"))
	})
}

func TestTender_Close(t *testing.T) {
	setup := func(t *testing.T) (*tender.Tender, string) {
		tn := newOpenTender(t)
		ct, key := seal(t, 150000)
		require.NoError(t, tn.CommitBid(t0.Add(time.Hour), "GBIDDERX", ct))
		require.NoError(t, tn.RevealBid(d1.Add(5*time.Second), "GBIDDERX",
			values.MustNewAmount(150000), key, sealing.Verify))
		return tn, "GBIDDERX"
	}

	t.Run("creator closes after reveal deadline", func(t *testing.T) {
		tn, bidder := setup(t)

		winner, err := tn.Close(d2.Add(time.Second), "GCREATOR", false)
		require.NoError(t, err)
		require.NotNil(t, winner)
		assert.Equal(t, bidder, winner.Bidder)
		assert.Equal(t, int64(150000), winner.Amount.Units())
		assert.True(t, tn.Closed)
		assert.Equal(t, tender.PhaseClosed, tn.Phase(d2.Add(time.Minute)))
	})

	t.Run("close before reveal deadline fails wrong phase", func(t *testing.T) {
		tn, _ := setup(t)
		_, err := tn.Close(d2.Add(-time.Second), "GCREATOR", false)
		assert.True(t, errors.IsCode(err, "WRONG_PHASE"))
		assert.False(t, tn.Closed)
	})

	t.Run("non-creator is unauthorized", func(t *testing.T) {
		tn, _ := setup(t)
		_, err := tn.Close(d2.Add(time.Second), "GSOMEONE", false)
		assert.True(t, errors.IsCode(err, "UNAUTHORIZED"))
		assert.False(t, tn.Closed)
	})

	t.Run("operator may close", func(t *testing.T) {
		tn, _ := setup(t)
		winner, err := tn.Close(d2.Add(time.Second), "GOPERATOR", true)
		require.NoError(t, err)
		assert.NotNil(t, winner)
	})

	t.Run("second close fails already closed", func(t *testing.T) {
		tn, _ := setup(t)
		_, err := tn.Close(d2.Add(time.Second), "GCREATOR", false)
		require.NoError(t, err)

		_, err = tn.Close(d2.Add(2*time.Second), "GCREATOR", false)
		assert.True(t, errors.IsCode(err, "ALREADY_CLOSED"))
	})

	t.Run("no reveals closes with no winner", func(t *testing.T) {
		tn := newOpenTender(t)
		ct, _ := seal(t, 150000)
		require.NoError(t, tn.CommitBid(t0.Add(time.Hour), "GBIDDERZ", ct))

		// GBIDDERZ never reveals; closure raises no error for the silence
		winner, err := tn.Close(d2.Add(time.Second), "GCREATOR", false)
		require.NoError(t, err)
		assert.Nil(t, winner)
		assert.True(t, tn.Closed)
		assert.Nil(t, tn.Winner)
	})
}

// Scenario coverage: X commits 150000 and reveals it, Y reveals 80000
// below the 100000 minimum, Z commits and stays silent. Close selects X.
func TestTender_FullProtocolRun(t *testing.T) {
	tn := newOpenTender(t)

	ctX, keyX := seal(t, 150000)
	ctY, keyY := seal(t, 80000)
	ctZ, _ := seal(t, 120000)

	require.NoError(t, tn.CommitBid(d1.Add(-10*time.Second), "GBIDDERX", ctX))
	require.NoError(t, tn.CommitBid(d1.Add(-9*time.Second), "GBIDDERY", ctY))
	require.NoError(t, tn.CommitBid(d1.Add(-8*time.Second), "GBIDDERZ", ctZ))

	require.NoError(t, tn.RevealBid(d1.Add(5*time.Second), "GBIDDERX",
		values.MustNewAmount(150000), keyX, sealing.Verify))

	err := tn.RevealBid(d1.Add(5*time.Second), "GBIDDERY",
		values.MustNewAmount(80000), keyY, sealing.Verify)
	assert.True(t, errors.IsCode(err, "BELOW_MINIMUM"))

	winner, err := tn.Close(d2.Add(time.Second), "GCREATOR", false)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "GBIDDERX", winner.Bidder)
	assert.Equal(t, int64(150000), winner.Amount.Units())
}
