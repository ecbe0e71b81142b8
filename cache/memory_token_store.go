package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// MemoryTokenStore implements domain.TokenStore using ttlcache. Entries fall
// out automatically at their refresh-token expiry; callers still evaluate
// access-token expiry at read time.
type MemoryTokenStore struct {
	byAccess  *ttlcache.Cache[string, *domain.GrantedToken]
	byRefresh *ttlcache.Cache[string, *domain.GrantedToken]
}

// NewMemoryTokenStore creates a new in-memory token store with automatic
// cleanup.
func NewMemoryTokenStore() *MemoryTokenStore {
	byAccess := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.GrantedToken](),
	)
	byRefresh := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.GrantedToken](),
	)

	go byAccess.Start()
	go byRefresh.Start()

	return &MemoryTokenStore{byAccess: byAccess, byRefresh: byRefresh}
}

// AddToken implements domain.TokenStore.
func (s *MemoryTokenStore) AddToken(_ context.Context, token *domain.GrantedToken) error {
	// The entry stays retrievable for the whole refresh window so refresh
	// grants keep working after the access token lapses.
	ttl := time.Until(token.RefreshExpiresAt())
	if ttl <= 0 {
		ttl = time.Second
	}

	s.byAccess.Set(HashToken(token.AccessToken), token, ttl)
	if token.RefreshToken != "" {
		s.byRefresh.Set(HashToken(token.RefreshToken), token, ttl)
	}
	return nil
}

// GetAccessToken implements domain.TokenStore.
func (s *MemoryTokenStore) GetAccessToken(_ context.Context, accessToken string) (*domain.GrantedToken, error) {
	item := s.byAccess.Get(HashToken(accessToken))
	if item == nil {
		return nil, serrors.ErrNotFound
	}
	return item.Value(), nil
}

// GetRefreshToken implements domain.TokenStore.
func (s *MemoryTokenStore) GetRefreshToken(_ context.Context, refreshToken string) (*domain.GrantedToken, error) {
	item := s.byRefresh.Get(HashToken(refreshToken))
	if item == nil {
		return nil, serrors.ErrNotFound
	}
	return item.Value(), nil
}

// RemoveToken implements domain.TokenStore.
func (s *MemoryTokenStore) RemoveToken(_ context.Context, accessToken string) error {
	item := s.byAccess.Get(HashToken(accessToken))
	if item != nil {
		if rt := item.Value().RefreshToken; rt != "" {
			s.byRefresh.Delete(HashToken(rt))
		}
	}
	s.byAccess.Delete(HashToken(accessToken))
	return nil
}

// Clean implements domain.TokenStore. It flushes every token; key rotation
// relies on this to invalidate tokens signed with retired keys.
func (s *MemoryTokenStore) Clean(_ context.Context) error {
	s.byAccess.DeleteAll()
	s.byRefresh.DeleteAll()
	return nil
}

// Count counts stored access tokens.
func (s *MemoryTokenStore) Count(_ context.Context) int {
	return s.byAccess.Len()
}

// Close stops the cleanup goroutines.
func (s *MemoryTokenStore) Close() error {
	s.byAccess.Stop()
	s.byRefresh.Stop()
	return nil
}
