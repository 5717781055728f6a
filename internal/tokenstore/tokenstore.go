package tokenstore

import (
	"sync"
	"time"
)

// Store holds short-lived delegated-access tokens in two disjoint keyspaces:
// refresh-token-id -> owning user, and user id -> ThingsBoard bearer token.
// It is constructed once at startup and passed to its consumers; entries are
// only visible while unexpired, and reads delete expired entries lazily.
type Store struct {
	mu             sync.RWMutex
	refreshTokens  map[string]refreshEntry
	platformTokens map[string]platformEntry
}

type refreshEntry struct {
	UserID    string
	ExpiresAt time.Time
}

type platformEntry struct {
	Token     string
	ExpiresAt time.Time
}

func New() *Store {
	return &Store{
		refreshTokens:  make(map[string]refreshEntry),
		platformTokens: make(map[string]platformEntry),
	}
}

func (s *Store) SaveRefreshToken(tokenID, userID string, expiresAt time.Time) {
	if tokenID == "" || userID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[tokenID] = refreshEntry{UserID: userID, ExpiresAt: expiresAt}
}

// FindRefreshToken returns the owning user id. An expired entry is deleted on
// read and reported as missing.
func (s *Store) FindRefreshToken(tokenID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.refreshTokens[tokenID]
	if !ok {
		return "", false
	}

	if !entry.ExpiresAt.After(time.Now()) {
		delete(s.refreshTokens, tokenID)
		return "", false
	}

	return entry.UserID, true
}

func (s *Store) DeleteRefreshToken(tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refreshTokens, tokenID)
}

// RevokeUserTokens removes every refresh token owned by userID. Used on logout
// and explicit revocation.
func (s *Store) RevokeUserTokens(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tokenID, entry := range s.refreshTokens {
		if entry.UserID == userID {
			delete(s.refreshTokens, tokenID)
		}
	}
}

func (s *Store) SavePlatformToken(userID, token string, expiresAt time.Time) {
	if userID == "" || token == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.platformTokens[userID] = platformEntry{Token: token, ExpiresAt: expiresAt}
}

func (s *Store) FindPlatformToken(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.platformTokens[userID]
	if !ok {
		return "", false
	}

	if !entry.ExpiresAt.After(time.Now()) {
		delete(s.platformTokens, userID)
		return "", false
	}

	return entry.Token, true
}

func (s *Store) DeletePlatformToken(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.platformTokens, userID)
}

// ClearExpired sweeps both keyspaces. Called opportunistically before
// login/refresh/logout to bound memory growth.
func (s *Store) ClearExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for tokenID, entry := range s.refreshTokens {
		if !entry.ExpiresAt.After(now) {
			delete(s.refreshTokens, tokenID)
		}
	}

	for userID, entry := range s.platformTokens {
		if !entry.ExpiresAt.After(now) {
			delete(s.platformTokens, userID)
		}
	}
}
