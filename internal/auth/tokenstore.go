package auth

import (
	"sync"

	"pasarku-client/internal/logger"
	"pasarku-client/internal/storage"

	"go.uber.org/zap"
)

// Fixed keys the credential pair is mirrored under so it survives restarts.
const (
	accessTokenKey  = "auth.access_token"
	refreshTokenKey = "auth.refresh_token"
)

// TokenStore is the only owner of the credential pair. The in-memory copy is
// authoritative for the process lifetime; persistence is best-effort and a
// write failure never fails the caller.
type TokenStore struct {
	mu    sync.Mutex
	store storage.Store
	cred  *Credential
}

func NewTokenStore(store storage.Store) *TokenStore {
	ts := &TokenStore{store: store}

	access, errA := store.Get(accessTokenKey)
	refresh, errR := store.Get(refreshTokenKey)
	if errA == nil && errR == nil && len(access) > 0 {
		ts.cred = &Credential{
			AccessToken:  string(access),
			RefreshToken: string(refresh),
		}
	}

	return ts
}

func (ts *TokenStore) Get() (Credential, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cred == nil {
		return Credential{}, false
	}
	return *ts.cred, true
}

func (ts *TokenStore) Set(cred Credential) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.cred = &cred

	if err := ts.store.Set(accessTokenKey, []byte(cred.AccessToken)); err != nil {
		logger.L().Warn("failed to persist access token", zap.Error(err))
	}
	if err := ts.store.Set(refreshTokenKey, []byte(cred.RefreshToken)); err != nil {
		logger.L().Warn("failed to persist refresh token", zap.Error(err))
	}
}

func (ts *TokenStore) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.cred = nil

	if err := ts.store.Delete(accessTokenKey); err != nil {
		logger.L().Warn("failed to clear access token", zap.Error(err))
	}
	if err := ts.store.Delete(refreshTokenKey); err != nil {
		logger.L().Warn("failed to clear refresh token", zap.Error(err))
	}
}
