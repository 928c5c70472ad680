// Package sealing implements the commit-reveal scheme that keeps bid
// amounts unreadable during the bidding window. A bid is sealed with
// AES-256-GCM under a fresh one-time key held only by the bidder; the
// server stores the ciphertext and the reveal later proves the amount by
// handing over the key. Hiding is as strong as key secrecy; binding
// relies on GCM authentication rejecting any ciphertext/key pair that
// does not reproduce the original plaintext.
package sealing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

const (
	// KeySize is the AES-256 key length in bytes
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes
	NonceSize = 12
	// plaintextSize is the fixed-width amount encoding. Every sealed
	// amount encrypts to the same length, so ciphertext size leaks
	// nothing about magnitude.
	plaintextSize = 16
	// tagSize is the GCM authentication tag length in bytes
	tagSize = 16

	// sealedSize is the only length a well-formed sealed amount can
	// have: nonce, fixed-width plaintext, GCM tag.
	sealedSize = NonceSize + plaintextSize + tagSize
)

// Key is a one-time symmetric sealing key. Transported as hex.
type Key []byte

// GenerateKey produces a fresh 32-byte key from crypto/rand
func GenerateKey() (Key, error) {
	key := make(Key, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	return key, nil
}

// ParseKey decodes a hex-encoded key and validates its length
func ParseKey(s string) (Key, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.NewInvalidKeyError().WithCause(err)
	}
	if len(raw) != KeySize {
		return nil, errors.NewInvalidKeyError()
	}
	return Key(raw), nil
}

// String returns the hex transport form of the key
func (k Key) String() string {
	return hex.EncodeToString(k)
}

// Encrypt seals an amount under the given key. The amount is encoded as
// a fixed 16-byte little-endian integer, a random 12-byte nonce is drawn
// per call, and the result is base64(nonce || ciphertext).
func Encrypt(amount values.Amount, key Key) (string, error) {
	if len(key) != KeySize {
		return "", errors.NewInvalidKeyError()
	}

	plaintext := make([]byte, plaintextSize)
	binary.LittleEndian.PutUint64(plaintext, uint64(amount.Units()))

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed amount. Fails with MALFORMED_CIPHERTEXT when
// the ciphertext cannot be parsed and INVALID_KEY when GCM
// authentication rejects the key/ciphertext pair.
func Decrypt(ciphertext string, key Key) (values.Amount, error) {
	if len(key) != KeySize {
		return values.Amount{}, errors.NewInvalidKeyError()
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return values.Amount{}, errors.NewMalformedCiphertextError().WithCause(err)
	}
	if len(sealed) != sealedSize {
		return values.Amount{}, errors.NewMalformedCiphertextError()
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return values.Amount{}, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return values.Amount{}, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesgcm.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return values.Amount{}, errors.NewInvalidKeyError()
	}
	if len(plaintext) != plaintextSize {
		return values.Amount{}, errors.NewMalformedCiphertextError()
	}

	low := binary.LittleEndian.Uint64(plaintext[:8])
	high := binary.LittleEndian.Uint64(plaintext[8:])
	if high != 0 || low > math.MaxInt64 {
		return values.Amount{}, errors.NewMalformedCiphertextError()
	}

	amount, err := values.NewAmount(int64(low))
	if err != nil {
		return values.Amount{}, errors.NewMalformedCiphertextError().WithCause(err)
	}
	return amount, nil
}

// VerifyCommitment decrypts and compares against the claimed amount, so
// a reveal is never accepted on the claimed value alone.
func VerifyCommitment(ciphertext string, key Key, claimed values.Amount) error {
	actual, err := Decrypt(ciphertext, key)
	if err != nil {
		return err
	}
	if !actual.Equal(claimed) {
		return errors.NewCommitmentMismatchError()
	}
	return nil
}

// Verify is the string-keyed form used by the tender aggregate
func Verify(ciphertext, key string, claimed values.Amount) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	return VerifyCommitment(ciphertext, k, claimed)
}
