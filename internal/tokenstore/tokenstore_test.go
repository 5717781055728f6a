package tokenstore

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestFindRefreshToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenID   string
		userID    string
		expiresAt time.Time
		findID    string
		wantOK    bool
	}{
		{
			name:      "valid unexpired token",
			tokenID:   "token-1",
			userID:    "user-1",
			expiresAt: time.Now().Add(1 * time.Hour),
			findID:    "token-1",
			wantOK:    true,
		},
		{
			name:      "expired token",
			tokenID:   "token-2",
			userID:    "user-2",
			expiresAt: time.Now().Add(-1 * time.Second),
			findID:    "token-2",
			wantOK:    false,
		},
		{
			name:      "unknown token",
			tokenID:   "token-3",
			userID:    "user-3",
			expiresAt: time.Now().Add(1 * time.Hour),
			findID:    "other-token",
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New()
			store.SaveRefreshToken(tt.tokenID, tt.userID, tt.expiresAt)

			userID, ok := store.FindRefreshToken(tt.findID)
			if ok != tt.wantOK {
				t.Errorf("FindRefreshToken() ok = %v, want %v", ok, tt.wantOK)
				return
			}

			if ok && userID != tt.userID {
				t.Errorf("FindRefreshToken() userID = %v, want %v", userID, tt.userID)
			}
		})
	}
}

func TestLazyExpiryDeletesEntry(t *testing.T) {
	store := New()
	store.SaveRefreshToken("lazy-token", "user-1", time.Now().Add(-1*time.Minute))

	// First read reports missing and removes the entry.
	if _, ok := store.FindRefreshToken("lazy-token"); ok {
		t.Fatal("FindRefreshToken() returned expired entry")
	}

	store.mu.RLock()
	_, stillThere := store.refreshTokens["lazy-token"]
	store.mu.RUnlock()

	if stillThere {
		t.Error("expired entry was not deleted on read")
	}
}

func TestSaveIgnoresEmptyKeys(t *testing.T) {
	store := New()

	store.SaveRefreshToken("", "user-1", time.Now().Add(time.Hour))
	store.SaveRefreshToken("token-1", "", time.Now().Add(time.Hour))
	store.SavePlatformToken("", "tb-token", time.Now().Add(time.Hour))
	store.SavePlatformToken("user-1", "", time.Now().Add(time.Hour))

	if len(store.refreshTokens) != 0 {
		t.Errorf("refresh keyspace size = %d, want 0", len(store.refreshTokens))
	}
	if len(store.platformTokens) != 0 {
		t.Errorf("platform keyspace size = %d, want 0", len(store.platformTokens))
	}
}

func TestRevokeUserTokensIsolation(t *testing.T) {
	store := New()
	expiry := time.Now().Add(1 * time.Hour)

	store.SaveRefreshToken("token-a1", "user-a", expiry)
	store.SaveRefreshToken("token-a2", "user-a", expiry)
	store.SaveRefreshToken("token-b1", "user-b", expiry)

	store.RevokeUserTokens("user-a")

	if _, ok := store.FindRefreshToken("token-a1"); ok {
		t.Error("token-a1 survived revocation")
	}
	if _, ok := store.FindRefreshToken("token-a2"); ok {
		t.Error("token-a2 survived revocation")
	}

	userID, ok := store.FindRefreshToken("token-b1")
	if !ok || userID != "user-b" {
		t.Errorf("token-b1 = (%v, %v), want (user-b, true)", userID, ok)
	}
}

func TestPlatformTokenLifecycle(t *testing.T) {
	store := New()

	store.SavePlatformToken("user-1", "tb-token-1", time.Now().Add(1*time.Hour))

	token, ok := store.FindPlatformToken("user-1")
	if !ok || token != "tb-token-1" {
		t.Fatalf("FindPlatformToken() = (%v, %v), want (tb-token-1, true)", token, ok)
	}

	// Re-login overwrites.
	store.SavePlatformToken("user-1", "tb-token-2", time.Now().Add(1*time.Hour))
	token, _ = store.FindPlatformToken("user-1")
	if token != "tb-token-2" {
		t.Errorf("FindPlatformToken() after overwrite = %v, want tb-token-2", token)
	}

	store.DeletePlatformToken("user-1")
	if _, ok := store.FindPlatformToken("user-1"); ok {
		t.Error("FindPlatformToken() returned deleted entry")
	}
}

func TestPlatformTokenLazyExpiry(t *testing.T) {
	store := New()
	store.SavePlatformToken("user-1", "tb-token", time.Now().Add(-1*time.Second))

	if _, ok := store.FindPlatformToken("user-1"); ok {
		t.Error("FindPlatformToken() returned expired entry without a sweep")
	}
}

func TestClearExpired(t *testing.T) {
	store := New()
	now := time.Now()

	store.SaveRefreshToken("live-token", "user-1", now.Add(1*time.Hour))
	store.SaveRefreshToken("dead-token", "user-2", now.Add(-1*time.Minute))
	store.SavePlatformToken("live-user", "tb-1", now.Add(1*time.Hour))
	store.SavePlatformToken("dead-user", "tb-2", now.Add(-1*time.Minute))

	store.ClearExpired()

	if len(store.refreshTokens) != 1 {
		t.Errorf("refresh keyspace size = %d, want 1", len(store.refreshTokens))
	}
	if len(store.platformTokens) != 1 {
		t.Errorf("platform keyspace size = %d, want 1", len(store.platformTokens))
	}

	if _, ok := store.FindRefreshToken("live-token"); !ok {
		t.Error("unexpired refresh token removed by sweep")
	}
	if _, ok := store.FindPlatformToken("live-user"); !ok {
		t.Error("unexpired platform token removed by sweep")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := New()
	expiry := time.Now().Add(1 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tokenID := fmt.Sprintf("token-%d", n)
			userID := fmt.Sprintf("user-%d", n%5)
			store.SaveRefreshToken(tokenID, userID, expiry)
			store.FindRefreshToken(tokenID)
			store.SavePlatformToken(userID, "tb-"+tokenID, expiry)
			store.FindPlatformToken(userID)
			store.ClearExpired()
		}(i)
	}
	wg.Wait()
}
