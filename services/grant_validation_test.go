package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-auth/halcyon/cache"
	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

type grantFixture struct {
	validator *GrantValidator
	clients   *MockClientStore
	owners    *MockResourceOwnerRepository
	authCodes domain.AuthorizationCodeStore
	tokens    domain.TokenStore
	tickets   domain.TicketStore
	signer    *TokenSigner
}

func newGrantFixture(t *testing.T) *grantFixture {
	t.Helper()
	f := &grantFixture{
		clients:   new(MockClientStore),
		owners:    new(MockResourceOwnerRepository),
		authCodes: cache.NewMemoryAuthorizationCodeStore(),
		tokens:    cache.NewMemoryTokenStore(),
		tickets:   cache.NewMemoryTicketStore(),
		signer:    newTestSigner(t),
	}
	f.validator = NewGrantValidator(f.clients, f.owners, f.authCodes, f.tokens, f.tickets, f.signer)
	return f
}

func confidentialClient() *domain.Client {
	return &domain.Client{
		ID:                "c1",
		Secrets:           []string{"secret-1", "secret-2"},
		AllowedScopes:     []string{"read", "write", "openid"},
		GrantTypes:        []domain.GrantType{domain.GrantAuthorizationCode, domain.GrantPassword, domain.GrantRefreshToken, domain.GrantClientCredentials, domain.GrantUMATicket},
		RedirectionURLs:   []string{"https://client.example.com/cb"},
		TokenEndpointAuth: domain.AuthMethodClientSecretPost,
	}
}

func TestAuthenticateClient(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	f.clients.On("GetByID", mock.Anything, "c1").Return(client, nil)
	f.clients.On("GetByID", mock.Anything, "nope").Return(nil, serrors.ErrNotFound)

	got, oerr := f.validator.AuthenticateClient(context.Background(), "c1", "secret-2")
	require.Nil(t, oerr)
	assert.Equal(t, client, got)

	_, oerr = f.validator.AuthenticateClient(context.Background(), "c1", "wrong")
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidClient, oerr.Code)

	_, oerr = f.validator.AuthenticateClient(context.Background(), "c1", "")
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidClient, oerr.Code)

	_, oerr = f.validator.AuthenticateClient(context.Background(), "nope", "secret-1")
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidClient, oerr.Code)

	_, oerr = f.validator.AuthenticateClient(context.Background(), "", "secret-1")
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidRequest, oerr.Code)
}

func TestAuthenticateClient_PublicClient(t *testing.T) {
	f := newGrantFixture(t)
	public := &domain.Client{ID: "spa", TokenEndpointAuth: domain.AuthMethodNone}
	f.clients.On("GetByID", mock.Anything, "spa").Return(public, nil)

	got, oerr := f.validator.AuthenticateClient(context.Background(), "spa", "")
	require.Nil(t, oerr)
	assert.Equal(t, public, got)
}

func storedAuthCode(f *grantFixture, t *testing.T, mutate func(*domain.AuthorizationCode)) *domain.AuthorizationCode {
	t.Helper()
	now := time.Now()
	code := &domain.AuthorizationCode{
		Code:        "code-1",
		ClientID:    "c1",
		Subject:     "user-1",
		RedirectURI: "https://client.example.com/cb",
		Scope:       "read openid",
		Nonce:       "n-1",
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
	if mutate != nil {
		mutate(code)
	}
	require.NoError(t, f.authCodes.Add(context.Background(), code))
	return code
}

func TestValidateAuthorizationCode(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	storedAuthCode(f, t, nil)
	f.owners.On("GetByClaim", mock.Anything, domain.ClaimSubject, "user-1").
		Return(&domain.ResourceOwner{ID: "user-1", Claims: domain.Claims{{Type: "email", Value: "u@example.com"}}}, nil)

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:   domain.GrantAuthorizationCode,
		Code:        "code-1",
		RedirectURI: "https://client.example.com/cb",
	})
	require.Nil(t, oerr)
	assert.Equal(t, "user-1", param.Subject)
	assert.Equal(t, []string{"read", "openid"}, param.RequestedScopes)
	assert.Equal(t, "n-1", param.Nonce)
	assert.True(t, param.OwnerClaims.Has("email"))

	// The code is single use.
	_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:   domain.GrantAuthorizationCode,
		Code:        "code-1",
		RedirectURI: "https://client.example.com/cb",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidGrant, oerr.Code)
	assert.ErrorIs(t, oerr, serrors.ErrTokenExpiredOrRevoked)
}

func TestValidateAuthorizationCode_OwnerStoreFailure(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	storedAuthCode(f, t, nil)
	f.owners.On("GetByClaim", mock.Anything, domain.ClaimSubject, "user-1").
		Return(nil, errors.New("mongo: connection refused")).Once()

	req := &dto.TokenRequest{
		GrantType:   domain.GrantAuthorizationCode,
		Code:        "code-1",
		RedirectURI: "https://client.example.com/cb",
	}

	_, oerr := f.validator.Validate(context.Background(), client, req)
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InternalError, oerr.Code)

	// The failure leaves the code unconsumed; a retry after the store
	// recovers succeeds.
	f.owners.On("GetByClaim", mock.Anything, domain.ClaimSubject, "user-1").
		Return(nil, serrors.ErrNotFound).Once()
	param, oerr := f.validator.Validate(context.Background(), client, req)
	require.Nil(t, oerr)
	assert.Equal(t, "user-1", param.Subject)
	assert.Empty(t, param.OwnerClaims)
}

func TestValidateAuthorizationCode_Failures(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()

	storedAuthCode(f, t, func(c *domain.AuthorizationCode) {
		c.Code = "expired"
		c.ExpiresAt = time.Now().Add(-time.Minute)
	})
	storedAuthCode(f, t, func(c *domain.AuthorizationCode) {
		c.Code = "other-client"
		c.ClientID = "c2"
	})
	storedAuthCode(f, t, func(c *domain.AuthorizationCode) {
		c.Code = "no-subject"
		c.Subject = ""
	})

	tests := []struct {
		name     string
		req      *dto.TokenRequest
		wantCode string
		wantDesc string
	}{
		{
			"unknown code",
			&dto.TokenRequest{GrantType: domain.GrantAuthorizationCode, Code: "missing", RedirectURI: "https://client.example.com/cb"},
			serrors.InvalidGrant, "",
		},
		{
			"missing code parameter",
			&dto.TokenRequest{GrantType: domain.GrantAuthorizationCode, RedirectURI: "https://client.example.com/cb"},
			serrors.InvalidRequest, "",
		},
		{
			"expired code",
			&dto.TokenRequest{GrantType: domain.GrantAuthorizationCode, Code: "expired", RedirectURI: "https://client.example.com/cb"},
			serrors.InvalidGrant, "",
		},
		{
			"code issued to another client",
			&dto.TokenRequest{GrantType: domain.GrantAuthorizationCode, Code: "other-client", RedirectURI: "https://client.example.com/cb"},
			serrors.InvalidGrant, "",
		},
		{
			"unauthenticated resource owner",
			&dto.TokenRequest{GrantType: domain.GrantAuthorizationCode, Code: "no-subject", RedirectURI: "https://client.example.com/cb"},
			serrors.InvalidRequest, "the resource owner needs to be authenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, oerr := f.validator.Validate(context.Background(), client, tt.req)
			require.NotNil(t, oerr)
			assert.Equal(t, tt.wantCode, oerr.Code)
			if tt.wantDesc != "" {
				assert.Equal(t, tt.wantDesc, oerr.Description)
			}
		})
	}
}

func TestValidateAuthorizationCode_RedirectMismatch(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	storedAuthCode(f, t, nil)

	_, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:   domain.GrantAuthorizationCode,
		Code:        "code-1",
		RedirectURI: "https://evil.example.com/cb",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidGrant, oerr.Code)
}

func TestValidatePKCE_S256(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	f.owners.On("GetByClaim", mock.Anything, mock.Anything, mock.Anything).Return(nil, serrors.ErrNotFound)

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	storedAuthCode(f, t, func(c *domain.AuthorizationCode) {
		c.CodeChallenge = challenge
		c.CodeChallengeMethod = CodeChallengeMethodS256
	})

	_, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		Code:         "code-1",
		RedirectURI:  "https://client.example.com/cb",
		CodeVerifier: "wrong-verifier",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidRequest, oerr.Code)

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		Code:         "code-1",
		RedirectURI:  "https://client.example.com/cb",
		CodeVerifier: verifier,
	})
	require.Nil(t, oerr)
	assert.Equal(t, "user-1", param.Subject)
}

func TestValidatePKCE_PlainAndRequired(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	client.RequirePKCE = true
	f.owners.On("GetByClaim", mock.Anything, mock.Anything, mock.Anything).Return(nil, serrors.ErrNotFound)

	storedAuthCode(f, t, func(c *domain.AuthorizationCode) {
		c.Code = "plain-code"
		c.CodeChallenge = "plain-value"
		c.CodeChallengeMethod = CodeChallengeMethodPlain
	})
	storedAuthCode(f, t, func(c *domain.AuthorizationCode) {
		c.Code = "bare-code"
	})

	// A client requiring PKCE rejects codes stored without a challenge.
	_, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:   domain.GrantAuthorizationCode,
		Code:        "bare-code",
		RedirectURI: "https://client.example.com/cb",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidRequest, oerr.Code)

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:    domain.GrantAuthorizationCode,
		Code:         "plain-code",
		RedirectURI:  "https://client.example.com/cb",
		CodeVerifier: "plain-value",
	})
	require.Nil(t, oerr)
	assert.Equal(t, "user-1", param.Subject)
}

func TestValidatePassword(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()
	f.owners.On("Get", mock.Anything, "alice", "pw").
		Return(&domain.ResourceOwner{ID: "user-1", Login: "alice"}, nil)
	f.owners.On("Get", mock.Anything, "alice", "bad").
		Return(nil, serrors.ErrInvalidCredentials)

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType: domain.GrantPassword,
		Username:  "alice",
		Password:  "pw",
		Scope:     "read",
	})
	require.Nil(t, oerr)
	assert.Equal(t, "user-1", param.Subject)
	assert.Equal(t, []string{"read"}, param.RequestedScopes)

	_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType: domain.GrantPassword,
		Username:  "alice",
		Password:  "bad",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidGrant, oerr.Code)

	_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType: domain.GrantPassword,
		Username:  "alice",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidRequest, oerr.Code)
}

func TestValidateRefreshToken(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()

	now := time.Now()
	require.NoError(t, f.tokens.AddToken(context.Background(), &domain.GrantedToken{
		ID:             "t1",
		AccessToken:    "at-1",
		RefreshToken:   "rt-1",
		ExpiresIn:      3600,
		RefreshExpires: 7200,
		Scope:          "read write",
		ClientID:       "c1",
		Subject:        "user-1",
		CreateDateTime: now,
	}))
	require.NoError(t, f.tokens.AddToken(context.Background(), &domain.GrantedToken{
		ID:             "t2",
		AccessToken:    "at-2",
		RefreshToken:   "rt-revoked",
		ExpiresIn:      3600,
		RefreshExpires: 7200,
		ClientID:       "c1",
		CreateDateTime: now,
		IsRevoked:      true,
	}))
	require.NoError(t, f.tokens.AddToken(context.Background(), &domain.GrantedToken{
		ID:             "t3",
		AccessToken:    "at-3",
		RefreshToken:   "rt-foreign",
		ExpiresIn:      3600,
		RefreshExpires: 7200,
		ClientID:       "c2",
		CreateDateTime: now,
	}))

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:    domain.GrantRefreshToken,
		RefreshToken: "rt-1",
	})
	require.Nil(t, oerr)
	assert.Equal(t, "user-1", param.Subject)
	assert.Equal(t, []string{"read", "write"}, param.RequestedScopes)

	for _, token := range []string{"rt-revoked", "rt-foreign", "rt-unknown"} {
		_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
			GrantType:    domain.GrantRefreshToken,
			RefreshToken: token,
		})
		require.NotNil(t, oerr, token)
		assert.Equal(t, serrors.InvalidGrant, oerr.Code, token)
	}

	// The revoked rejection carries the sentinel so callers can tell it
	// apart from other invalid_grant causes.
	_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:    domain.GrantRefreshToken,
		RefreshToken: "rt-revoked",
	})
	require.NotNil(t, oerr)
	assert.ErrorIs(t, oerr, serrors.ErrTokenExpiredOrRevoked)
}

func TestValidateUMATicket(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()

	now := time.Now()
	require.NoError(t, f.tickets.Add(context.Background(), &domain.Ticket{
		ID:            "ticket-1",
		ClientID:      "c1",
		ResourceOwner: "owner-1",
		Requester:     domain.Claims{{Type: "sub", Value: "party-1"}},
		Created:       now,
		Expires:       now.Add(time.Hour),
		Lines:         []domain.TicketLine{{ID: "l1", ResourceSetID: "rs1", Scopes: []string{"read"}}},
	}))
	require.NoError(t, f.tickets.Add(context.Background(), &domain.Ticket{
		ID:      "ticket-expired",
		Created: now.Add(-2 * time.Hour),
		Expires: now.Add(-time.Hour),
	}))

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType: domain.GrantUMATicket,
		Ticket:    "ticket-1",
	})
	require.Nil(t, oerr)
	assert.Equal(t, "owner-1", param.Subject)
	require.NotNil(t, param.Ticket)
	assert.Equal(t, "ticket-1", param.Ticket.ID)
	assert.True(t, param.RequesterClaims.Has("sub"))

	_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType: domain.GrantUMATicket,
		Ticket:    "ticket-expired",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidTicket, oerr.Code)

	_, oerr = f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType: domain.GrantUMATicket,
		Ticket:    "ticket-unknown",
	})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.InvalidTicket, oerr.Code)
}

func TestValidateUMATicket_ClaimTokenMerged(t *testing.T) {
	f := newGrantFixture(t)
	client := confidentialClient()

	now := time.Now()
	require.NoError(t, f.tickets.Add(context.Background(), &domain.Ticket{
		ID:            "ticket-1",
		ResourceOwner: "owner-1",
		Requester:     domain.Claims{{Type: "sub", Value: "old"}, {Type: "name", Value: "Old Name"}},
		Created:       now,
		Expires:       now.Add(time.Hour),
	}))

	claimToken := signTestIdentity(t, f.signer, map[string]interface{}{
		"sub":   "new",
		"email": "party@example.com",
	})

	param, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{
		GrantType:  domain.GrantUMATicket,
		Ticket:     "ticket-1",
		ClaimToken: claimToken,
	})
	require.Nil(t, oerr)

	sub, _ := param.RequesterClaims.Get("sub")
	assert.Equal(t, "new", sub)
	name, _ := param.RequesterClaims.Get("name")
	assert.Equal(t, "Old Name", name)
	assert.True(t, param.RequesterClaims.Has("email"))
}

func TestValidate_GrantNotDeclared(t *testing.T) {
	f := newGrantFixture(t)
	client := &domain.Client{ID: "c1", GrantTypes: []domain.GrantType{domain.GrantClientCredentials}}

	for _, gt := range []domain.GrantType{
		domain.GrantAuthorizationCode, domain.GrantPassword, domain.GrantRefreshToken, domain.GrantUMATicket,
	} {
		_, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{GrantType: gt})
		require.NotNil(t, oerr, gt)
		assert.Equal(t, serrors.UnauthorizedClient, oerr.Code, gt)
	}

	_, oerr := f.validator.Validate(context.Background(), client, &dto.TokenRequest{GrantType: "device_code"})
	require.NotNil(t, oerr)
	assert.Equal(t, serrors.UnsupportedGrantType, oerr.Code)
}
