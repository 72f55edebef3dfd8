package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// StateSigner issues and checks OAuth state values. A state is a random nonce followed by
// its HMAC-SHA256, so the callback can reject states this server never issued.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer keyed by secret
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// NewState returns a fresh signed state
func (s *StateSigner) NewState() string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	return nonce + "." + s.sign(nonce)
}

// Valid reports whether state was produced by NewState with the same secret
func (s *StateSigner) Valid(state string) bool {
	nonce, mac, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || mac == "" {
		return false
	}
	return hmac.Equal([]byte(s.sign(nonce)), []byte(mac))
}

func (s *StateSigner) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
