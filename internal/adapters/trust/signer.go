package trust

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/eleven-am/meshview/internal/domain"
)

// Signer derives time-windowed symmetric keys from the shared secret and
// produces message digests and signatures. Two instances holding the same
// shared key and a clock skew smaller than one key interval derive the same
// key independently, with no key exchange round-trip.
//
// Signing and verification never fail on malformed input; only a missing
// shared key is fatal, at construction.
type Signer struct {
	sharedKey   []byte
	keyInterval time.Duration
}

func NewSigner(config domain.TrustConfig) (*Signer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	interval := config.KeyInterval
	if interval <= 0 {
		interval = domain.DefaultTrustConfig().KeyInterval
	}
	if interval < time.Second {
		interval = time.Second
	}

	return &Signer{
		sharedKey:   []byte(config.SharedKey),
		keyInterval: interval,
	}, nil
}

// CurrentWindow returns the key window index for now: the number of whole
// key intervals since the unix epoch.
func (s *Signer) CurrentWindow(now time.Time) int64 {
	return now.Unix() / int64(s.keyInterval/time.Second)
}

// DeriveKey deterministically derives the symmetric key for a window as a
// keyed hash of the shared secret and the window index.
func (s *Signer) DeriveKey(window int64) []byte {
	mac := hmac.New(sha256.New, s.sharedKey)
	mac.Write([]byte(strconv.FormatInt(window, 10)))
	return mac.Sum(nil)
}

// Sign computes the hex HMAC-SHA256 of context under key.
func (s *Signer) Sign(key []byte, context string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(context))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches Sign(key, context), in constant
// time.
func (s *Signer) Verify(key []byte, context, signature string) bool {
	expected := s.Sign(key, context)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Digest returns the hex SHA-256 content hash of payload. It serves both as
// the integrity check and as signing input, independent of encryption.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
