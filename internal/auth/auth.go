// Package auth validates the API keys presented with requests.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/tjfontaine/bare-gateway/internal/core/domain"
)

// KeySet is an immutable set of accepted API keys.
// Keys are held as SHA-256 hashes and compared in constant time.
// A nil or empty KeySet disables authentication.
type KeySet struct {
	hashes map[string]struct{}
}

// NewKeySet builds a KeySet from plaintext keys. Returns nil when keys is nil
// so an absent configuration stays distinguishable from an empty one.
func NewKeySet(keys []string) *KeySet {
	if keys == nil {
		return nil
	}
	ks := &KeySet{hashes: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		ks.hashes[HashAPIKey(k)] = struct{}{}
	}
	return ks
}

// Len returns the number of distinct keys.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.hashes)
}

// Enabled reports whether requests must present a key.
func (ks *KeySet) Enabled() bool {
	return ks.Len() > 0
}

// Contains reports whether key is a member of the set. Every stored hash is
// compared in constant time, with no early exit, so timing does not reveal
// which key matched.
func (ks *KeySet) Contains(key string) bool {
	if ks == nil {
		return false
	}
	keyHash := []byte(HashAPIKey(key))
	found := 0
	for h := range ks.hashes {
		found |= subtle.ConstantTimeCompare(keyHash, []byte(h))
	}
	return found == 1
}

// Authenticate reports whether req may proceed: with an empty set every
// request passes, otherwise the request must carry a member key.
func (ks *KeySet) Authenticate(req *domain.Request) bool {
	if !ks.Enabled() {
		return true
	}
	if !req.HasAPIKey() {
		return false
	}
	return ks.Contains(*req.APIKey)
}

// ExtractAPIKey extracts the API key from the Authorization header.
// It returns nil when no header is present.
func ExtractAPIKey(r *http.Request) (*string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return nil, nil
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("unsupported authorization scheme")
	}

	key := parts[1]
	return &key, nil
}

// HashAPIKey creates a SHA-256 hash of an API key
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
