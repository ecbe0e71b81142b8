package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/events"
)

// --- Mock ClientStore ---

type MockClientStore struct{ mock.Mock }

func (m *MockClientStore) GetByID(ctx context.Context, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

// --- Mock ScopeRepository ---

type MockScopeRepository struct{ mock.Mock }

func (m *MockScopeRepository) GetAll(ctx context.Context) ([]domain.Scope, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Scope), args.Error(1)
}

func (m *MockScopeRepository) SearchByNames(ctx context.Context, names []string) ([]domain.Scope, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Scope), args.Error(1)
}

// --- Mock ResourceOwnerRepository ---

type MockResourceOwnerRepository struct{ mock.Mock }

func (m *MockResourceOwnerRepository) Get(ctx context.Context, login, password string) (*domain.ResourceOwner, error) {
	args := m.Called(ctx, login, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourceOwner), args.Error(1)
}

func (m *MockResourceOwnerRepository) GetByClaim(ctx context.Context, claimType, value string) (*domain.ResourceOwner, error) {
	args := m.Called(ctx, claimType, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourceOwner), args.Error(1)
}

// --- Mock TokenStore ---

type MockTokenStore struct{ mock.Mock }

func (m *MockTokenStore) AddToken(ctx context.Context, token *domain.GrantedToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) GetAccessToken(ctx context.Context, accessToken string) (*domain.GrantedToken, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GrantedToken), args.Error(1)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, refreshToken string) (*domain.GrantedToken, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GrantedToken), args.Error(1)
}

func (m *MockTokenStore) RemoveToken(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockTokenStore) Clean(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock ResourceSetRepository ---

type MockResourceSetRepository struct{ mock.Mock }

func (m *MockResourceSetRepository) Get(ctx context.Context, id string) (*domain.ResourceSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourceSet), args.Error(1)
}

func (m *MockResourceSetRepository) GetByOwner(ctx context.Context, owner, id string) (*domain.ResourceSet, error) {
	args := m.Called(ctx, owner, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourceSet), args.Error(1)
}

func (m *MockResourceSetRepository) Insert(ctx context.Context, rs *domain.ResourceSet) error {
	args := m.Called(ctx, rs)
	return args.Error(0)
}

func (m *MockResourceSetRepository) Update(ctx context.Context, rs *domain.ResourceSet) error {
	args := m.Called(ctx, rs)
	return args.Error(0)
}

func (m *MockResourceSetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock PolicyRepository ---

type MockPolicyRepository struct{ mock.Mock }

func (m *MockPolicyRepository) Get(ctx context.Context, id string) (*domain.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Policy), args.Error(1)
}

func (m *MockPolicyRepository) GetByResourceSet(ctx context.Context, resourceSetID string) ([]domain.Policy, error) {
	args := m.Called(ctx, resourceSetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Policy), args.Error(1)
}

func (m *MockPolicyRepository) Insert(ctx context.Context, policy *domain.Policy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) Update(ctx context.Context, policy *domain.Policy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock ConsentRepository ---

type MockConsentRepository struct{ mock.Mock }

func (m *MockConsentRepository) Get(ctx context.Context, owner, clientID, resourceSetID string) (*domain.Consent, error) {
	args := m.Called(ctx, owner, clientID, resourceSetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Consent), args.Error(1)
}

func (m *MockConsentRepository) Insert(ctx context.Context, consent *domain.Consent) error {
	args := m.Called(ctx, consent)
	return args.Error(0)
}

// --- Mock KeyRepository ---

type MockKeyRepository struct{ mock.Mock }

func (m *MockKeyRepository) GetAll(ctx context.Context) ([]domain.JSONWebKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JSONWebKey), args.Error(1)
}

func (m *MockKeyRepository) Upsert(ctx context.Context, key *domain.JSONWebKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// --- Mock SMSSender ---

type MockSMSSender struct{ mock.Mock }

func (m *MockSMSSender) Send(ctx context.Context, phoneNumber, message string) error {
	args := m.Called(ctx, phoneNumber, message)
	return args.Error(0)
}

// --- Mock ScriptRunner ---

type MockScriptRunner struct{ mock.Mock }

func (m *MockScriptRunner) Run(ctx context.Context, script string, claims domain.Claims) (bool, error) {
	args := m.Called(ctx, script, claims)
	return args.Bool(0), args.Error(1)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name)
	}
	return names
}
