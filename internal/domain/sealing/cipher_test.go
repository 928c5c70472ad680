package sealing_test

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/sealing"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	amounts := []int64{1, 100, 80000, 150000, 1 << 40, math.MaxInt64}

	for _, units := range amounts {
		amount := values.MustNewAmount(units)

		key, err := sealing.GenerateKey()
		require.NoError(t, err)

		ciphertext, err := sealing.Encrypt(amount, key)
		require.NoError(t, err)

		decrypted, err := sealing.Decrypt(ciphertext, key)
		require.NoError(t, err)
		assert.Equal(t, units, decrypted.Units())
	}
}

func TestEncrypt_CiphertextLengthIsAmountIndependent(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)

	small, err := sealing.Encrypt(values.MustNewAmount(1), key)
	require.NoError(t, err)
	large, err := sealing.Encrypt(values.MustNewAmount(math.MaxInt64), key)
	require.NoError(t, err)

	assert.Equal(t, len(small), len(large))
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)
	amount := values.MustNewAmount(150000)

	first, err := sealing.Encrypt(amount, key)
	require.NoError(t, err)
	second, err := sealing.Encrypt(amount, key)
	require.NoError(t, err)

	// fresh nonce per call
	assert.NotEqual(t, first, second)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	amount := values.MustNewAmount(150000)

	// Many independent key pairs to bound the false-accept rate
	for i := 0; i < 200; i++ {
		key, err := sealing.GenerateKey()
		require.NoError(t, err)
		otherKey, err := sealing.GenerateKey()
		require.NoError(t, err)
		require.NotEqual(t, key.String(), otherKey.String())

		ciphertext, err := sealing.Encrypt(amount, key)
		require.NoError(t, err)

		_, err = sealing.Decrypt(ciphertext, otherKey)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "INVALID_KEY"))
	}
}

func TestDecrypt_MalformedCiphertext(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)

	sealed, err := sealing.Encrypt(values.MustNewAmount(150000), key)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
	}{
		{name: "not base64", ciphertext: "%%%not-base64%%%"},
		{name: "empty", ciphertext: ""},
		{name: "too short", ciphertext: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "truncated by one byte", ciphertext: base64.StdEncoding.EncodeToString(raw[:len(raw)-1])},
		{name: "missing the tag", ciphertext: base64.StdEncoding.EncodeToString(raw[:len(raw)-16])},
		{name: "trailing garbage", ciphertext: base64.StdEncoding.EncodeToString(append(append([]byte{}, raw...), 0x00))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sealing.Decrypt(tt.ciphertext, key)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, "MALFORMED_CIPHERTEXT"))
		})
	}
}

func TestDecrypt_TamperedCiphertextFails(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)

	ciphertext, err := sealing.Encrypt(values.MustNewAmount(150000), key)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	_, err = sealing.Decrypt(base64.StdEncoding.EncodeToString(raw), key)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, "INVALID_KEY"))
}

func TestVerifyCommitment(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)

	amount := values.MustNewAmount(150000)
	ciphertext, err := sealing.Encrypt(amount, key)
	require.NoError(t, err)

	t.Run("matching amount verifies", func(t *testing.T) {
		assert.NoError(t, sealing.VerifyCommitment(ciphertext, key, amount))
	})

	t.Run("different amount is a mismatch", func(t *testing.T) {
		err := sealing.VerifyCommitment(ciphertext, key, values.MustNewAmount(150001))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "COMMITMENT_MISMATCH"))
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		otherKey, err := sealing.GenerateKey()
		require.NoError(t, err)
		err = sealing.VerifyCommitment(ciphertext, otherKey, amount)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "INVALID_KEY"))
	})
}

func TestParseKey(t *testing.T) {
	key, err := sealing.GenerateKey()
	require.NoError(t, err)

	t.Run("round-trips through hex", func(t *testing.T) {
		parsed, err := sealing.ParseKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := sealing.ParseKey("zzzz")
		assert.True(t, errors.IsCode(err, "INVALID_KEY"))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := sealing.ParseKey("deadbeef")
		assert.True(t, errors.IsCode(err, "INVALID_KEY"))
	})
}
