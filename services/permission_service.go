package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
	"github.com/halcyon-auth/halcyon/events"
)

// ticketIDAttempts bounds the regeneration loop on ticket ID collision.
const ticketIDAttempts = 3

// PermissionService creates UMA permission tickets: the step a resource
// server takes before a requesting party can attempt a uma_ticket token
// exchange.
type PermissionService struct {
	resourceSets domain.ResourceSetRepository
	tickets      domain.TicketStore
	signer       *TokenSigner
	publisher    events.Publisher

	ticketLifetime time.Duration
	now            func() time.Time
}

// NewPermissionService creates the permission service.
func NewPermissionService(
	resourceSets domain.ResourceSetRepository,
	tickets domain.TicketStore,
	signer *TokenSigner,
	publisher events.Publisher,
	ticketLifetime time.Duration,
) *PermissionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PermissionService{
		resourceSets:   resourceSets,
		tickets:        tickets,
		signer:         signer,
		publisher:      publisher,
		ticketLifetime: ticketLifetime,
		now:            time.Now,
	}
}

// RequestPermission validates a batch of permission requests and issues one
// ticket aggregating all lines. Validation is fail-fast: the first violation
// wins and no ticket is created.
func (s *PermissionService) RequestPermission(ctx context.Context, owner, clientID string, requests []dto.PermissionRequest) (*domain.Ticket, *serrors.OAuth2Error) {
	if len(requests) == 0 {
		return nil, serrors.NewInvalidRequest("no permission was requested")
	}

	// All requests in one call must reference the same (or no) identity
	// token; two distinct identities in one exchange is ambiguous.
	idToken := ""
	for _, req := range requests {
		if req.IDToken == "" {
			continue
		}
		if idToken != "" && req.IDToken != idToken {
			return nil, serrors.NewAmbiguousRequestor()
		}
		idToken = req.IDToken
	}

	lines := make([]domain.TicketLine, 0, len(requests))
	for _, req := range requests {
		if req.ResourceSetID == "" {
			return nil, serrors.NewInvalidRequest("the parameter resource_set_id is missing")
		}
		if len(req.Scopes) == 0 {
			return nil, serrors.NewInvalidRequest("the parameter scopes is missing")
		}

		resourceSet, err := s.resourceSets.GetByOwner(ctx, owner, req.ResourceSetID)
		if err != nil {
			if isNotFound(err) {
				return nil, serrors.NewInvalidResourceSetID(req.ResourceSetID)
			}
			return nil, serrors.NewInternalError(err)
		}
		if !resourceSet.HasScopes(req.Scopes) {
			return nil, serrors.NewInvalidScope("one or more requested scopes are not declared on the resource set")
		}

		lines = append(lines, domain.TicketLine{
			ID:            uuid.NewString(),
			ResourceSetID: req.ResourceSetID,
			Scopes:        req.Scopes,
		})
	}

	var requester domain.Claims
	if idToken != "" {
		claims, err := s.signer.Verify(idToken)
		if err != nil {
			return nil, serrors.NewInvalidRequest("the id_token is not a valid identity token")
		}
		requester = openIDClaimsFromMap(claims)
	}

	now := s.now()
	ticket := &domain.Ticket{
		ClientID:      clientID,
		ResourceOwner: owner,
		Requester:     requester,
		Created:       now,
		Expires:       now.Add(s.ticketLifetime),
		Lines:         lines,
	}

	// Ticket IDs are generated locally and retried on collision; the store
	// guarantees at-most-once insertion per ID, not global locking.
	var insertErr error
	for attempt := 0; attempt < ticketIDAttempts; attempt++ {
		ticket.ID = uuid.NewString()
		insertErr = s.tickets.Add(ctx, ticket)
		if insertErr == nil {
			break
		}
		if !errors.Is(insertErr, serrors.ErrDuplicateKey) {
			return nil, serrors.NewInternalError(insertErr)
		}
		log.Warn().Str("ticket_id", ticket.ID).Msg("ticket id collision, regenerating")
	}
	if insertErr != nil {
		return nil, serrors.NewInternalError(insertErr)
	}

	s.publisher.Publish(events.New(events.TicketCreated, clientID, owner, map[string]string{
		"ticket_id": ticket.ID,
	}))

	return ticket, nil
}
