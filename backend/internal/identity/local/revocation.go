package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/logger"
)

type revokedToken struct {
	ExpiresAt domain.Timestamp `json:"expiresAt"`
}

// RevocationList remembers signed-out token ids until the tokens expire.
// Revocations are persisted so every instance sharing the document store
// picks them up on its next Update.
type RevocationList struct {
	store docstore.Store
	now   func() time.Time

	mu             sync.RWMutex
	revoked        map[string]time.Time // jti -> token expiry
	lastUpdateTime time.Time
}

func NewRevocationList(store docstore.Store) *RevocationList {
	return &RevocationList{
		store:   store,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (rl *RevocationList) Revoke(ctx context.Context, jti string, expires time.Time) error {
	if err := rl.store.Set(ctx, domain.RevokedTokensCollection, jti, revokedToken{ExpiresAt: domain.NewTimestamp(expires)}); err != nil {
		return fmt.Errorf("failed to persist revocation: %w", err)
	}
	rl.mu.Lock()
	rl.revoked[jti] = expires
	rl.mu.Unlock()
	return nil
}

func (rl *RevocationList) IsRevoked(jti string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	_, ok := rl.revoked[jti]
	return ok
}

// Update reloads the unexpired revocations from the store and swaps the
// in-memory set. Unexpired local entries missing from the result are kept.
func (rl *RevocationList) Update(ctx context.Context) error {
	docs, err := rl.store.Query(ctx, docstore.Collection(domain.RevokedTokensCollection))
	if err != nil {
		return fmt.Errorf("failed to load revocations: %w", err)
	}

	now := rl.now()
	fresh := make(map[string]time.Time, len(docs))
	for _, doc := range docs {
		r, err := docstore.Decode[revokedToken](doc)
		if err != nil {
			logger.Log.Warn("skipping malformed revocation", "jti", doc.ID, "error", err)
			continue
		}
		if r.ExpiresAt.After(now) {
			fresh[doc.ID] = r.ExpiresAt.Time
		}
	}

	rl.mu.Lock()
	// keep revocations made locally while the query was in flight
	for jti, expires := range rl.revoked {
		if _, ok := fresh[jti]; !ok && expires.After(now) {
			fresh[jti] = expires
		}
	}
	rl.revoked = fresh
	rl.lastUpdateTime = now
	rl.mu.Unlock()

	logger.Log.Debug("revocation list updated", "component", "revocation_list", "entries", len(fresh))
	return nil
}

func (rl *RevocationList) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.revoked)
}

// StartBackgroundUpdate refreshes the list every interval until ctx is done.
func (rl *RevocationList) StartBackgroundUpdate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started revocation list background updates",
		"component", "revocation_list",
		"interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rl.Update(ctx); err != nil {
					logger.Log.Error("revocation list update failed",
						"component", "revocation_list",
						"error", err)
				}
			case <-ctx.Done():
				logger.Log.Info("revocation list shutting down", "component", "revocation_list")
				return
			}
		}
	}()
}
