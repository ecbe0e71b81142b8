package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// MemoryTicketStore implements domain.TicketStore using ttlcache. Insertion
// is at-most-once per ticket ID.
type MemoryTicketStore struct {
	cache *ttlcache.Cache[string, *domain.Ticket]
}

// NewMemoryTicketStore creates a new in-memory ticket store.
func NewMemoryTicketStore() *MemoryTicketStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.Ticket](),
	)
	go cache.Start()

	return &MemoryTicketStore{cache: cache}
}

// Add implements domain.TicketStore. Adding a ticket under an existing ID
// fails with ErrDuplicateKey.
func (s *MemoryTicketStore) Add(_ context.Context, ticket *domain.Ticket) error {
	ttl := time.Until(ticket.Expires)
	if ttl <= 0 {
		ttl = time.Second
	}
	if _, exists := s.cache.GetOrSet(ticket.ID, ticket, ttlcache.WithTTL[string, *domain.Ticket](ttl)); exists {
		return serrors.ErrDuplicateKey
	}
	return nil
}

// Get implements domain.TicketStore.
func (s *MemoryTicketStore) Get(_ context.Context, id string) (*domain.Ticket, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, serrors.ErrNotFound
	}
	return item.Value(), nil
}

// Remove implements domain.TicketStore.
func (s *MemoryTicketStore) Remove(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryTicketStore) Close() error {
	s.cache.Stop()
	return nil
}
