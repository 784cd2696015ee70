package service

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

// CardFingerprinter derives a stable keyed digest of a PAN so repeat cards
// can be correlated without storing the PAN.
type CardFingerprinter struct {
	key []byte
}

// NewCardFingerprinter requires a key of 1 to 64 bytes.
func NewCardFingerprinter(key string) (*CardFingerprinter, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, errors.New("card fingerprint key must be 1 to 64 bytes")
	}
	return &CardFingerprinter{key: []byte(key)}, nil
}

// Fingerprint returns the hex BLAKE2b-256 MAC of pan.
func (f *CardFingerprinter) Fingerprint(pan models.Secret) string {
	h, err := blake2b.New256(f.key)
	if err != nil {
		// key length is validated in NewCardFingerprinter
		panic(err)
	}
	h.Write([]byte(pan.Reveal()))
	return hex.EncodeToString(h.Sum(nil))
}
