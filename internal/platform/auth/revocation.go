package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RevocationStore tracks tokens invalidated before their natural expiry.
// Single tokens are revoked by ID at logout; every token of a user issued
// before a cut-off is revoked when the account is deactivated.
type RevocationStore struct {
	mu      sync.RWMutex
	tokens  map[string]time.Time // jti -> token expiry
	cutoffs map[string]time.Time // user id -> tokens issued before are void
	now     func() time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *RevocationStore) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = expiresAt
	s.pruneLocked()
}

// RevokeUser voids every token issued to userID up to now.
func (s *RevocationStore) RevokeUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs[userID] = s.now()
}

// IsRevoked reports whether a token with the given ID, subject and issue
// time has been revoked.
func (s *RevocationStore) IsRevoked(jti, userID string, issuedAt *jwt.NumericDate) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tokens[jti]; ok && jti != "" {
		return true
	}
	cut, ok := s.cutoffs[userID]
	if !ok {
		return false
	}
	if issuedAt == nil {
		return true
	}
	return !issuedAt.Time.After(cut)
}

func (s *RevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// pruneLocked drops entries for tokens that have expired anyway.
func (s *RevocationStore) pruneLocked() {
	now := s.now()
	for jti, exp := range s.tokens {
		if now.After(exp) {
			delete(s.tokens, jti)
		}
	}
}
