package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
	"github.com/halcyon-auth/halcyon/events"
)

func newTestTicket(lines ...domain.TicketLine) *domain.Ticket {
	now := time.Now()
	return &domain.Ticket{
		ID:            "ticket-1",
		ClientID:      "c1",
		ResourceOwner: "owner-1",
		Created:       now,
		Expires:       now.Add(time.Hour),
		Lines:         lines,
	}
}

func TestPolicyService_NoPolicyMeansOpen(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{}, nil)

	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)

	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})
	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, Authorized, result.Status)
}

func TestPolicyService_ExpiredTicketFailsBeforeRules(t *testing.T) {
	policies := new(MockPolicyRepository)
	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)

	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})
	ticket.Expires = time.Now().Add(-time.Minute)

	_, oerr := svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidTicket, oerr.Code)
	// No policy lookup must have happened.
	policies.AssertNotCalled(t, "GetByResourceSet", mock.Anything, mock.Anything)
}

func TestPolicyService_ClaimsAbsentEntirelyIsNeedInfo(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{{
		ID: "p1",
		Rules: []domain.PolicyRule{{
			ID:     "r1",
			Claims: domain.Claims{{Type: "email", Value: "alice@example.com"}},
		}},
	}}, nil)

	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)

	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})
	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", domain.Claims{
		{Type: "sub", Value: "bob"},
	})
	require.Nil(t, oerr)
	assert.Equal(t, NeedInfo, result.Status)
}

func TestPolicyService_ClaimPresentButMismatchedIsNotAuthorized(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{{
		ID: "p1",
		Rules: []domain.PolicyRule{{
			ID:     "r1",
			Claims: domain.Claims{{Type: "email", Value: "alice@example.com"}},
		}},
	}}, nil)

	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)

	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})
	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", domain.Claims{
		{Type: "email", Value: "mallory@example.com"},
	})
	require.Nil(t, oerr)
	assert.Equal(t, NotAuthorized, result.Status)
}

func TestPolicyService_ClientAllowList(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{{
		ID: "p1",
		Rules: []domain.PolicyRule{{
			ID:               "r1",
			ClientIDsAllowed: []string{"trusted"},
		}},
	}}, nil)

	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)
	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})

	result, oerr := svc.Evaluate(context.Background(), ticket, "trusted", nil)
	require.Nil(t, oerr)
	assert.Equal(t, Authorized, result.Status)

	result, oerr = svc.Evaluate(context.Background(), ticket, "untrusted", nil)
	require.Nil(t, oerr)
	assert.Equal(t, NotAuthorized, result.Status)
}

func TestPolicyService_ScopeGrant(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{{
		ID: "p1",
		Rules: []domain.PolicyRule{{
			ID:     "r1",
			Scopes: []string{"read"},
		}},
	}}, nil)

	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)

	granted := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})
	result, oerr := svc.Evaluate(context.Background(), granted, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, Authorized, result.Status)

	denied := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read", "write"}})
	result, oerr = svc.Evaluate(context.Background(), denied, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, NotAuthorized, result.Status)
}

func TestPolicyService_AllLinesMustAuthorize(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "open").Return([]domain.Policy{}, nil)
	policies.On("GetByResourceSet", mock.Anything, "closed").Return([]domain.Policy{{
		ID:    "p1",
		Rules: []domain.PolicyRule{{ID: "r1", ClientIDsAllowed: []string{"someone-else"}}},
	}}, nil)

	publisher := &recordingPublisher{}
	svc := NewPolicyService(policies, new(MockConsentRepository), nil, publisher)

	ticket := newTestTicket(
		domain.TicketLine{ID: "l1", ResourceSetID: "open", Scopes: []string{"read"}},
		domain.TicketLine{ID: "l2", ResourceSetID: "closed", Scopes: []string{"read"}},
	)
	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, NotAuthorized, result.Status)
	assert.Contains(t, publisher.names(), events.PolicyDenied)
}

func TestPolicyService_NeedInfoDominatesNotAuthorized(t *testing.T) {
	policies := new(MockPolicyRepository)
	// First line denies outright, the second only lacks claims. The overall
	// verdict must be NeedInfo regardless of line order, so the client can
	// still gather claims and retry.
	policies.On("GetByResourceSet", mock.Anything, "denied").Return([]domain.Policy{{
		ID:    "p1",
		Rules: []domain.PolicyRule{{ID: "r1", ClientIDsAllowed: []string{"someone-else"}}},
	}}, nil)
	policies.On("GetByResourceSet", mock.Anything, "claims").Return([]domain.Policy{{
		ID: "p2",
		Rules: []domain.PolicyRule{{
			ID:     "r2",
			Claims: domain.Claims{{Type: "role", Value: "admin"}},
		}},
	}}, nil)

	svc := NewPolicyService(policies, new(MockConsentRepository), nil, nil)

	ticket := newTestTicket(
		domain.TicketLine{ID: "l1", ResourceSetID: "denied", Scopes: []string{"read"}},
		domain.TicketLine{ID: "l2", ResourceSetID: "claims", Scopes: []string{"read"}},
	)
	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, NeedInfo, result.Status)
}

func TestPolicyService_ConsentRequired(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{{
		ID:    "p1",
		Rules: []domain.PolicyRule{{ID: "r1", ConsentNeeded: true}},
	}}, nil)

	consents := new(MockConsentRepository)
	consents.On("Get", mock.Anything, "owner-1", "c1", "rs1").
		Return(nil, serrors.ErrNotFound).Once()

	svc := NewPolicyService(policies, consents, nil, nil)
	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})

	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, NotAuthorized, result.Status)

	consents.On("Get", mock.Anything, "owner-1", "c1", "rs1").
		Return(&domain.Consent{ID: "con-1"}, nil)

	result, oerr = svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, Authorized, result.Status)
}

func TestPolicyService_ScriptRule(t *testing.T) {
	policies := new(MockPolicyRepository)
	policies.On("GetByResourceSet", mock.Anything, "rs1").Return([]domain.Policy{{
		ID:    "p1",
		Rules: []domain.PolicyRule{{ID: "r1", Script: "return requester.role == 'admin'"}},
	}}, nil)

	scripts := new(MockScriptRunner)
	scripts.On("Run", mock.Anything, "return requester.role == 'admin'", mock.Anything).
		Return(true, nil).Once()

	svc := NewPolicyService(policies, new(MockConsentRepository), scripts, nil)
	ticket := newTestTicket(domain.TicketLine{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}})

	result, oerr := svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.Nil(t, oerr)
	assert.Equal(t, Authorized, result.Status)

	scripts.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(false, assert.AnError)

	_, oerr = svc.Evaluate(context.Background(), ticket, "c1", nil)
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.UnhandledException, oerr.Code)
}
