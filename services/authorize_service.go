package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

const authCodeLength = 32 // bytes of entropy, base64url encoded

// AuthorizeService handles authorization requests once the resource owner
// has authenticated: it resolves the flow for the requested response types
// and produces a code, tokens, or both.
type AuthorizeService struct {
	flows     *FlowResolver
	clients   domain.ClientStore
	authCodes domain.AuthorizationCodeStore
	tokens    *TokenService

	authCodeTTL time.Duration
	now         func() time.Time
}

// NewAuthorizeService creates the authorization service.
func NewAuthorizeService(
	flows *FlowResolver,
	clients domain.ClientStore,
	authCodes domain.AuthorizationCodeStore,
	tokens *TokenService,
	authCodeTTL time.Duration,
) *AuthorizeService {
	return &AuthorizeService{
		flows:       flows,
		clients:     clients,
		authCodes:   authCodes,
		tokens:      tokens,
		authCodeTTL: authCodeTTL,
		now:         time.Now,
	}
}

// Authorize runs the authorization request for an authenticated resource
// owner. owner may be nil, which fails with invalid_request: every
// authorization flow requires an authenticated resource owner.
func (s *AuthorizeService) Authorize(ctx context.Context, param *dto.AuthorizationParameter, owner *domain.ResourceOwner) (*dto.AuthorizationResult, *serrors.OAuth2Error) {
	if owner == nil {
		return nil, serrors.NewInvalidRequest("the resource owner needs to be authenticated").WithState(param.State)
	}

	client, err := s.clients.GetByID(ctx, param.ClientID)
	if err != nil {
		if isNotFound(err) {
			return nil, serrors.NewInvalidClient("the client does not exist").WithState(param.State)
		}
		return nil, serrors.NewInternalError(err)
	}

	if param.RedirectURL == "" || !client.HasRedirectURL(param.RedirectURL) {
		return nil, serrors.NewInvalidRequest("the redirect_url does not match a registered url").WithState(param.State)
	}

	responseTypes := param.ResponseTypes()
	flow, oerr := s.flows.Resolve(responseTypes, param.State)
	if oerr != nil {
		return nil, oerr
	}

	for _, scope := range domain.SplitScopes(param.Scope) {
		if !client.HasScope(scope) {
			return nil, serrors.NewInvalidScope("the scope " + scope + " is not allowed for this client").WithState(param.State)
		}
	}

	result := &dto.AuthorizationResult{
		Flow:        flow,
		State:       param.State,
		RedirectURL: param.RedirectURL,
	}

	wantsCode := flow == domain.AuthorizationCodeFlow || flow == domain.HybridFlow
	wantsTokens := flow == domain.ImplicitFlow || flow == domain.HybridFlow

	if wantsCode {
		code, oerr := s.generateCode(ctx, param, owner)
		if oerr != nil {
			return nil, oerr
		}
		result.Code = code
	}

	if wantsTokens {
		granted, oerr := s.tokens.mint(ctx, &GrantTypeParameter{
			Client:      client,
			GrantType:   domain.GrantImplicit,
			Subject:     owner.ID,
			OwnerClaims: owner.Claims,
			Nonce:       param.Nonce,
		}, domain.SplitScopes(param.Scope))
		if oerr != nil {
			return nil, oerr
		}

		if hasResponseType(responseTypes, domain.ResponseTypeToken) {
			result.AccessToken = granted.AccessToken
			result.TokenType = granted.TokenType
			result.ExpiresIn = granted.ExpiresIn
		}
		if hasResponseType(responseTypes, domain.ResponseTypeIDToken) {
			result.IDToken = granted.IDToken
		}
	}

	return result, nil
}

// generateCode mints and stores a single-use authorization code bound to the
// request, including the PKCE challenge for later verification.
func (s *AuthorizeService) generateCode(ctx context.Context, param *dto.AuthorizationParameter, owner *domain.ResourceOwner) (string, *serrors.OAuth2Error) {
	raw := make([]byte, authCodeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", serrors.NewInternalError(err)
	}
	value := base64.RawURLEncoding.EncodeToString(raw)

	now := s.now()
	code := &domain.AuthorizationCode{
		Code:                value,
		ClientID:            param.ClientID,
		Subject:             owner.ID,
		RedirectURI:         param.RedirectURL,
		Scope:               param.Scope,
		Nonce:               param.Nonce,
		CodeChallenge:       param.CodeChallenge,
		CodeChallengeMethod: param.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.authCodeTTL),
	}

	if err := s.authCodes.Add(ctx, code); err != nil {
		return "", serrors.NewInternalError(err)
	}
	return value, nil
}

func hasResponseType(types []domain.ResponseType, want domain.ResponseType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
