package domain

import "context"

// ClientStore is the read model for registered OAuth clients.
type ClientStore interface {
	// GetByID retrieves a client by its client_id.
	GetByID(ctx context.Context, clientID string) (*Client, error)
}

// ScopeRepository is the read model for registered scopes.
type ScopeRepository interface {
	GetAll(ctx context.Context) ([]Scope, error)
	SearchByNames(ctx context.Context, names []string) ([]Scope, error)
}

// ResourceOwnerRepository looks up resource owners for authentication and
// claim resolution.
type ResourceOwnerRepository interface {
	// Get authenticates by login and plaintext password, returning the owner
	// on success.
	Get(ctx context.Context, login, password string) (*ResourceOwner, error)
	GetByClaim(ctx context.Context, claimType, value string) (*ResourceOwner, error)
}

// TokenStore holds issued tokens. Expiry is evaluated by callers at read
// time; the store is a passive key-value holder.
type TokenStore interface {
	AddToken(ctx context.Context, token *GrantedToken) error
	GetAccessToken(ctx context.Context, accessToken string) (*GrantedToken, error)
	GetRefreshToken(ctx context.Context, refreshToken string) (*GrantedToken, error)
	RemoveToken(ctx context.Context, accessToken string) error
	// Clean flushes the whole store. Invoked on key rotation, which
	// invalidates every previously issued token.
	Clean(ctx context.Context) error
}

// TicketStore holds UMA permission tickets keyed by ticket ID, with
// at-most-once insertion.
type TicketStore interface {
	Add(ctx context.Context, ticket *Ticket) error
	Get(ctx context.Context, id string) (*Ticket, error)
	Remove(ctx context.Context, id string) error
}

// ResourceSetRepository is the read/write model for UMA resource sets.
type ResourceSetRepository interface {
	Get(ctx context.Context, id string) (*ResourceSet, error)
	GetByOwner(ctx context.Context, owner, id string) (*ResourceSet, error)
	Insert(ctx context.Context, rs *ResourceSet) error
	Update(ctx context.Context, rs *ResourceSet) error
	Delete(ctx context.Context, id string) error
}

// PolicyRepository holds UMA authorization policies. Policies are mutated
// only through explicit updates.
type PolicyRepository interface {
	Get(ctx context.Context, id string) (*Policy, error)
	GetByResourceSet(ctx context.Context, resourceSetID string) ([]Policy, error)
	Insert(ctx context.Context, policy *Policy) error
	Update(ctx context.Context, policy *Policy) error
	Delete(ctx context.Context, id string) error
}

// ConsentRepository records explicit resource-owner consents, checked when a
// policy rule requires prior consent.
type ConsentRepository interface {
	Get(ctx context.Context, owner, clientID, resourceSetID string) (*Consent, error)
	Insert(ctx context.Context, consent *Consent) error
}

// ConfirmationCodeStore holds single-use confirmation codes keyed by value.
// Add must fail on an existing value so the generator can retry.
type ConfirmationCodeStore interface {
	Add(ctx context.Context, code *ConfirmationCode) error
	Get(ctx context.Context, value string) (*ConfirmationCode, error)
	Remove(ctx context.Context, value string) error
}

// AuthorizationCodeStore holds short-lived single-use authorization codes.
type AuthorizationCodeStore interface {
	Add(ctx context.Context, code *AuthorizationCode) error
	Get(ctx context.Context, code string) (*AuthorizationCode, error)
	MarkUsed(ctx context.Context, code string) error
}

// KeyRepository persists the server's JSON web keys. Rotation replaces
// SerializedKey in place for every stored key.
type KeyRepository interface {
	GetAll(ctx context.Context) ([]JSONWebKey, error)
	Upsert(ctx context.Context, key *JSONWebKey) error
}
