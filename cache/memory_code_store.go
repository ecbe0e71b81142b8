package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// MemoryConfirmationCodeStore implements domain.ConfirmationCodeStore using
// ttlcache. Add fails on an existing value so the generator can detect a
// collision and retry with a fresh code.
type MemoryConfirmationCodeStore struct {
	cache *ttlcache.Cache[string, *domain.ConfirmationCode]
}

// NewMemoryConfirmationCodeStore creates a new in-memory confirmation code
// store.
func NewMemoryConfirmationCodeStore() *MemoryConfirmationCodeStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.ConfirmationCode](),
	)
	go cache.Start()

	return &MemoryConfirmationCodeStore{cache: cache}
}

// Add implements domain.ConfirmationCodeStore.
func (s *MemoryConfirmationCodeStore) Add(_ context.Context, code *domain.ConfirmationCode) error {
	ttl := time.Duration(code.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Second
	}
	if _, exists := s.cache.GetOrSet(code.Value, code, ttlcache.WithTTL[string, *domain.ConfirmationCode](ttl)); exists {
		return serrors.ErrDuplicateKey
	}
	return nil
}

// Get implements domain.ConfirmationCodeStore.
func (s *MemoryConfirmationCodeStore) Get(_ context.Context, value string) (*domain.ConfirmationCode, error) {
	item := s.cache.Get(value)
	if item == nil {
		return nil, serrors.ErrNotFound
	}
	return item.Value(), nil
}

// Remove implements domain.ConfirmationCodeStore.
func (s *MemoryConfirmationCodeStore) Remove(_ context.Context, value string) error {
	s.cache.Delete(value)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryConfirmationCodeStore) Close() error {
	s.cache.Stop()
	return nil
}

// MemoryAuthorizationCodeStore implements domain.AuthorizationCodeStore using
// ttlcache.
type MemoryAuthorizationCodeStore struct {
	cache *ttlcache.Cache[string, *domain.AuthorizationCode]
}

// NewMemoryAuthorizationCodeStore creates a new in-memory authorization code
// store.
func NewMemoryAuthorizationCodeStore() *MemoryAuthorizationCodeStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.AuthorizationCode](),
	)
	go cache.Start()

	return &MemoryAuthorizationCodeStore{cache: cache}
}

// Add implements domain.AuthorizationCodeStore.
func (s *MemoryAuthorizationCodeStore) Add(_ context.Context, code *domain.AuthorizationCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if _, exists := s.cache.GetOrSet(code.Code, code, ttlcache.WithTTL[string, *domain.AuthorizationCode](ttl)); exists {
		return serrors.ErrDuplicateKey
	}
	return nil
}

// Get implements domain.AuthorizationCodeStore.
func (s *MemoryAuthorizationCodeStore) Get(_ context.Context, code string) (*domain.AuthorizationCode, error) {
	item := s.cache.Get(code)
	if item == nil {
		return nil, serrors.ErrNotFound
	}
	return item.Value(), nil
}

// MarkUsed implements domain.AuthorizationCodeStore.
func (s *MemoryAuthorizationCodeStore) MarkUsed(_ context.Context, code string) error {
	item := s.cache.Get(code)
	if item == nil {
		return serrors.ErrNotFound
	}
	item.Value().Used = true
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryAuthorizationCodeStore) Close() error {
	s.cache.Stop()
	return nil
}
