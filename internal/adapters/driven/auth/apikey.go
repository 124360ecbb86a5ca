// Package auth provides the allow/deny gates in front of the batch surfaces.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure the authorisers implement the interface.
var (
	_ driven.Authorizer = (*APIKeyAuthorizer)(nil)
	_ driven.Authorizer = (*NullAuthorizer)(nil)
)

// keyPrefix marks generated API keys.
const keyPrefix = "lm_"

// APIKeyAuthorizer accepts bearer keys matching one of a set of bcrypt hashes.
type APIKeyAuthorizer struct {
	hashes [][]byte

	// accepted remembers SHA-256 digests of keys that already passed a
	// bcrypt comparison.
	mu       sync.RWMutex
	accepted map[[sha256.Size]byte]struct{}
}

// NewAPIKeyAuthorizer validates the hashes and creates the gate.
func NewAPIKeyAuthorizer(hashes []string) (*APIKeyAuthorizer, error) {
	a := &APIKeyAuthorizer{accepted: make(map[[sha256.Size]byte]struct{})}
	for i, h := range hashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("api key hash %d: %w", i+1, err)
		}
		a.hashes = append(a.hashes, []byte(h))
	}
	return a, nil
}

// Authorize checks a bearer key.
func (a *APIKeyAuthorizer) Authorize(_ context.Context, credential string) error {
	if credential == "" {
		return domain.ErrAuthRequired
	}
	digest := sha256.Sum256([]byte(credential))

	a.mu.RLock()
	_, ok := a.accepted[digest]
	a.mu.RUnlock()
	if ok {
		return nil
	}

	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(credential)) == nil {
			a.mu.Lock()
			a.accepted[digest] = struct{}{}
			a.mu.Unlock()
			return nil
		}
	}
	return domain.ErrAuthInvalid
}

// NullAuthorizer accepts every caller. It guards local surfaces such as
// the CLI and the stdio MCP server, where the user is already trusted.
type NullAuthorizer struct{}

// NewNullAuthorizer creates an allow-all gate.
func NewNullAuthorizer() *NullAuthorizer {
	return &NullAuthorizer{}
}

// Authorize always succeeds.
func (NullAuthorizer) Authorize(context.Context, string) error {
	return nil
}

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashKey returns the bcrypt hash stored in settings for a key.
func HashKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(h), nil
}
