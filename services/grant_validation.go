package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// PKCE code challenge methods.
const (
	CodeChallengeMethodPlain = "plain"
	CodeChallengeMethodS256  = "S256"
)

// GrantTypeParameter is the normalized output of grant validation: the
// authenticated client, the resolved subject and claims, and the raw
// requested scopes, ready for the issuance engine.
type GrantTypeParameter struct {
	Client          *domain.Client
	GrantType       domain.GrantType
	Subject         string
	OwnerClaims     domain.Claims
	RequestedScopes []string
	Nonce           string
	Ticket          *domain.Ticket
	RequesterClaims domain.Claims
}

// GrantValidator performs the per-grant-type parameter and client-capability
// checks that run before token issuance.
type GrantValidator struct {
	clients   domain.ClientStore
	owners    domain.ResourceOwnerRepository
	authCodes domain.AuthorizationCodeStore
	tokens    domain.TokenStore
	tickets   domain.TicketStore
	signer    *TokenSigner

	now func() time.Time
}

// NewGrantValidator creates a validator over the given stores.
func NewGrantValidator(
	clients domain.ClientStore,
	owners domain.ResourceOwnerRepository,
	authCodes domain.AuthorizationCodeStore,
	tokens domain.TokenStore,
	tickets domain.TicketStore,
	signer *TokenSigner,
) *GrantValidator {
	return &GrantValidator{
		clients:   clients,
		owners:    owners,
		authCodes: authCodes,
		tokens:    tokens,
		tickets:   tickets,
		signer:    signer,
		now:       time.Now,
	}
}

// AuthenticateClient resolves and authenticates the requesting client
// according to its registered token endpoint auth method.
func (v *GrantValidator) AuthenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Client, *serrors.OAuth2Error) {
	if clientID == "" {
		return nil, serrors.NewInvalidRequest("the parameter client_id is missing")
	}

	client, err := v.clients.GetByID(ctx, clientID)
	if err != nil {
		if isNotFound(err) {
			return nil, serrors.NewInvalidClient("the client does not exist")
		}
		return nil, serrors.NewInternalError(err)
	}

	if client.TokenEndpointAuth == domain.AuthMethodNone {
		return client, nil
	}

	if clientSecret == "" {
		return nil, serrors.NewInvalidClient("the client secret is missing")
	}
	if !client.MatchSecret(clientSecret) {
		return nil, serrors.NewInvalidClient("the client credentials are not valid")
	}
	return client, nil
}

// Validate dispatches to the validator for the request's grant type and
// returns the normalized grant parameter.
func (v *GrantValidator) Validate(ctx context.Context, client *domain.Client, req *dto.TokenRequest) (*GrantTypeParameter, *serrors.OAuth2Error) {
	switch req.GrantType {
	case domain.GrantAuthorizationCode:
		return v.validateAuthorizationCode(ctx, client, req)
	case domain.GrantPassword:
		return v.validatePassword(ctx, client, req)
	case domain.GrantClientCredentials:
		return v.validateClientCredentials(client, req)
	case domain.GrantRefreshToken:
		return v.validateRefreshToken(ctx, client, req)
	case domain.GrantUMATicket:
		return v.validateUMATicket(ctx, client, req)
	default:
		return nil, serrors.NewUnsupportedGrantType(string(req.GrantType))
	}
}

func (v *GrantValidator) validateAuthorizationCode(ctx context.Context, client *domain.Client, req *dto.TokenRequest) (*GrantTypeParameter, *serrors.OAuth2Error) {
	if !client.HasGrantType(domain.GrantAuthorizationCode) {
		return nil, serrors.NewUnauthorizedClient("the client is not allowed to use the authorization_code grant")
	}
	if req.Code == "" {
		return nil, serrors.NewInvalidRequest("the parameter code is missing")
	}

	code, err := v.authCodes.Get(ctx, req.Code)
	if err != nil {
		if isNotFound(err) {
			return nil, serrors.NewInvalidGrant("the authorization code is not valid")
		}
		return nil, serrors.NewInternalError(err)
	}

	if code.Used || !code.ExpiresAt.After(v.now()) {
		return nil, serrors.NewInvalidGrant("the authorization code is expired or has already been used").
			WithCause(serrors.ErrTokenExpiredOrRevoked)
	}
	if code.ClientID != client.ID {
		return nil, serrors.NewInvalidGrant("the authorization code was not issued to this client")
	}
	if code.Subject == "" {
		return nil, serrors.NewInvalidRequest("the resource owner needs to be authenticated")
	}
	if req.RedirectURI == "" || !client.HasRedirectURL(req.RedirectURI) || code.RedirectURI != req.RedirectURI {
		return nil, serrors.NewInvalidGrant("the redirect_uri does not match a registered url")
	}

	if oerr := validatePKCE(client, code, req.CodeVerifier); oerr != nil {
		return nil, oerr
	}

	var ownerClaims domain.Claims
	owner, err := v.owners.GetByClaim(ctx, domain.ClaimSubject, code.Subject)
	switch {
	case err == nil:
		ownerClaims = owner.Claims
	case isNotFound(err):
		// An owner without a stored claim record gets a bare id_token.
	default:
		return nil, serrors.NewInternalError(err)
	}

	if err := v.authCodes.MarkUsed(ctx, req.Code); err != nil {
		return nil, serrors.NewInternalError(err)
	}

	return &GrantTypeParameter{
		Client:          client,
		GrantType:       domain.GrantAuthorizationCode,
		Subject:         code.Subject,
		OwnerClaims:     ownerClaims,
		RequestedScopes: domain.SplitScopes(code.Scope),
		Nonce:           code.Nonce,
	}, nil
}

func validatePKCE(client *domain.Client, code *domain.AuthorizationCode, verifier string) *serrors.OAuth2Error {
	if code.CodeChallenge == "" {
		if client.RequirePKCE {
			return serrors.NewPKCERequired()
		}
		return nil
	}
	if verifier == "" {
		return serrors.NewInvalidPKCE("the parameter code_verifier is missing")
	}

	switch code.CodeChallengeMethod {
	case CodeChallengeMethodS256, "":
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(computed), []byte(code.CodeChallenge)) != 1 {
			return serrors.NewInvalidPKCE("the code_verifier does not match the code_challenge")
		}
	case CodeChallengeMethodPlain:
		if subtle.ConstantTimeCompare([]byte(verifier), []byte(code.CodeChallenge)) != 1 {
			return serrors.NewInvalidPKCE("the code_verifier does not match the code_challenge")
		}
	default:
		return serrors.NewInvalidPKCE("the code_challenge_method is not supported")
	}
	return nil
}

func (v *GrantValidator) validatePassword(ctx context.Context, client *domain.Client, req *dto.TokenRequest) (*GrantTypeParameter, *serrors.OAuth2Error) {
	if !client.HasGrantType(domain.GrantPassword) {
		return nil, serrors.NewUnauthorizedClient("the client is not allowed to use the password grant")
	}
	if req.Username == "" || req.Password == "" {
		return nil, serrors.NewInvalidRequest("the parameters username and password are required")
	}

	owner, err := v.owners.Get(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, serrors.ErrInvalidCredentials) || isNotFound(err) {
			return nil, serrors.NewInvalidGrant("the resource owner credentials are not valid")
		}
		return nil, serrors.NewInternalError(err)
	}

	return &GrantTypeParameter{
		Client:          client,
		GrantType:       domain.GrantPassword,
		Subject:         owner.ID,
		OwnerClaims:     owner.Claims,
		RequestedScopes: domain.SplitScopes(req.Scope),
	}, nil
}

func (v *GrantValidator) validateClientCredentials(client *domain.Client, req *dto.TokenRequest) (*GrantTypeParameter, *serrors.OAuth2Error) {
	if !client.HasGrantType(domain.GrantClientCredentials) {
		return nil, serrors.NewUnauthorizedClient("the client is not allowed to use the client_credentials grant")
	}

	return &GrantTypeParameter{
		Client:          client,
		GrantType:       domain.GrantClientCredentials,
		RequestedScopes: domain.SplitScopes(req.Scope),
	}, nil
}

func (v *GrantValidator) validateRefreshToken(ctx context.Context, client *domain.Client, req *dto.TokenRequest) (*GrantTypeParameter, *serrors.OAuth2Error) {
	if !client.HasGrantType(domain.GrantRefreshToken) {
		return nil, serrors.NewUnauthorizedClient("the client is not allowed to use the refresh_token grant")
	}
	if req.RefreshToken == "" {
		return nil, serrors.NewInvalidRequest("the parameter refresh_token is missing")
	}

	granted, err := v.tokens.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if isNotFound(err) {
			return nil, serrors.NewInvalidGrant("the refresh token is not valid")
		}
		return nil, serrors.NewInternalError(err)
	}

	if granted.IsRevoked || !granted.RefreshExpiresAt().After(v.now()) {
		return nil, serrors.NewInvalidGrant("the refresh token is expired or revoked").
			WithCause(serrors.ErrTokenExpiredOrRevoked)
	}
	if granted.ClientID != client.ID {
		return nil, serrors.NewInvalidGrant("the refresh token was not issued to this client")
	}

	return &GrantTypeParameter{
		Client:          client,
		GrantType:       domain.GrantRefreshToken,
		Subject:         granted.Subject,
		OwnerClaims:     granted.IDTokenPayload,
		RequestedScopes: domain.SplitScopes(granted.Scope),
	}, nil
}

func (v *GrantValidator) validateUMATicket(ctx context.Context, client *domain.Client, req *dto.TokenRequest) (*GrantTypeParameter, *serrors.OAuth2Error) {
	if !client.HasGrantType(domain.GrantUMATicket) {
		return nil, serrors.NewUnauthorizedClient("the client is not allowed to use the uma_ticket grant")
	}
	if req.Ticket == "" {
		return nil, serrors.NewInvalidRequest("the parameter ticket is missing")
	}

	ticket, err := v.tickets.Get(ctx, req.Ticket)
	if err != nil {
		if isNotFound(err) {
			return nil, serrors.NewInvalidTicket("the ticket does not exist")
		}
		return nil, serrors.NewInternalError(err)
	}
	if ticket.Expired(v.now()) {
		return nil, serrors.NewInvalidTicket("the ticket is expired")
	}

	requester := ticket.Requester
	if req.ClaimToken != "" {
		claims, verr := v.signer.Verify(req.ClaimToken)
		if verr != nil {
			return nil, serrors.NewInvalidRequest("the claim_token is not a valid identity token")
		}
		requester = mergeClaims(requester, openIDClaimsFromMap(claims))
	}

	return &GrantTypeParameter{
		Client:          client,
		GrantType:       domain.GrantUMATicket,
		Subject:         ticket.ResourceOwner,
		Ticket:          ticket,
		RequesterClaims: requester,
	}, nil
}

// mergeClaims overlays extra claims on top of base, replacing values for
// claim types already present.
func mergeClaims(base, extra domain.Claims) domain.Claims {
	merged := make(domain.Claims, 0, len(base)+len(extra))
	for _, c := range base {
		if !extra.Has(c.Type) {
			merged = append(merged, c)
		}
	}
	return append(merged, extra...)
}

func isNotFound(err error) bool {
	return errors.Is(err, serrors.ErrNotFound)
}
