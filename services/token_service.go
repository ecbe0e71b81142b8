package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/dto"
	serrors "github.com/halcyon-auth/halcyon/errors"
	"github.com/halcyon-auth/halcyon/events"
)

const (
	// ScopeOpenID selects identity token issuance.
	ScopeOpenID = "openid"

	refreshTokenLength = 32 // bytes of entropy, hex encoded
)

// TokenServiceConfig carries the issuance parameters.
type TokenServiceConfig struct {
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TokenService is the token issuance engine: one pass per request, fail-fast,
// atomic. A request either yields a complete GrantedToken or a structured
// error, never a half-populated record.
type TokenService struct {
	validator *GrantValidator
	scopes    domain.ScopeRepository
	tokens    domain.TokenStore
	signer    *TokenSigner
	policy    *PolicyService
	publisher events.Publisher
	cfg       TokenServiceConfig

	now func() time.Time
}

// NewTokenService creates the issuance engine.
func NewTokenService(
	validator *GrantValidator,
	scopes domain.ScopeRepository,
	tokens domain.TokenStore,
	signer *TokenSigner,
	policy *PolicyService,
	publisher events.Publisher,
	cfg TokenServiceConfig,
) *TokenService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TokenService{
		validator: validator,
		scopes:    scopes,
		tokens:    tokens,
		signer:    signer,
		policy:    policy,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Grant runs the issuance state machine for a token request.
func (s *TokenService) Grant(ctx context.Context, req *dto.TokenRequest) (*domain.GrantedToken, *serrors.OAuth2Error) {
	client, oerr := s.validator.AuthenticateClient(ctx, req.ClientID, req.ClientSecret)
	if oerr != nil {
		return nil, oerr
	}

	param, oerr := s.validator.Validate(ctx, client, req)
	if oerr != nil {
		return nil, oerr
	}

	scopes, oerr := s.narrowScopes(ctx, param)
	if oerr != nil {
		return nil, oerr
	}

	if param.GrantType == domain.GrantUMATicket {
		return s.grantForTicket(ctx, param)
	}

	token, oerr := s.mint(ctx, param, scopes)
	if oerr != nil {
		return nil, oerr
	}
	return token, nil
}

// narrowScopes reduces the requested scopes to the client-allowed subset. An
// explicitly requested scope the client does not own fails with
// invalid_scope; an empty request falls back to everything the client is
// allowed. Identity-only scopes are stripped for client_credentials grants,
// which have no resource owner to identify.
func (s *TokenService) narrowScopes(ctx context.Context, param *GrantTypeParameter) ([]string, *serrors.OAuth2Error) {
	if param.GrantType == domain.GrantUMATicket {
		return nil, nil
	}

	requested := param.RequestedScopes
	if len(requested) == 0 {
		requested = param.Client.AllowedScopes
	} else {
		for _, scope := range requested {
			if !param.Client.HasScope(scope) {
				return nil, serrors.NewInvalidScope("the scope " + scope + " is not allowed for this client")
			}
		}
	}

	if param.GrantType != domain.GrantClientCredentials || len(requested) == 0 {
		return requested, nil
	}

	registered, err := s.scopes.SearchByNames(ctx, requested)
	if err != nil {
		return nil, serrors.NewInternalError(err)
	}
	identityOnly := make(map[string]bool, len(registered))
	for _, scope := range registered {
		identityOnly[scope.Name] = scope.Type == domain.ScopeTypeIdentity || scope.IsOpenIDScope
	}

	var narrowed []string
	for _, scope := range requested {
		if !identityOnly[scope] {
			narrowed = append(narrowed, scope)
		}
	}
	return narrowed, nil
}

// grantForTicket drives the policy engine before issuance: every ticket line
// must authorize, a NeedInfo surfaces as a claims-gathering error, and a
// denial surfaces as request_denied.
func (s *TokenService) grantForTicket(ctx context.Context, param *GrantTypeParameter) (*domain.GrantedToken, *serrors.OAuth2Error) {
	result, oerr := s.policy.Evaluate(ctx, param.Ticket, param.Client.ID, param.RequesterClaims)
	if oerr != nil {
		return nil, oerr
	}

	switch result.Status {
	case NeedInfo:
		return nil, &serrors.OAuth2Error{
			Code:        serrors.NeedInfo,
			Description: "the requesting party must supply further claims",
			Status:      serrors.StatusUnauthorized,
		}
	case NotAuthorized:
		return nil, serrors.NewRequestDenied(result.ErrorDetails)
	}

	scopeSet := map[string]struct{}{}
	var scopes []string
	for _, line := range param.Ticket.Lines {
		for _, scope := range line.Scopes {
			if _, dup := scopeSet[scope]; dup {
				continue
			}
			scopeSet[scope] = struct{}{}
			scopes = append(scopes, scope)
		}
	}

	param.OwnerClaims = result.PrincipalClaims
	return s.mint(ctx, param, scopes)
}

// mint builds claims, signs the id_token when requested, mints the access
// and refresh tokens, and persists the granted token. This is the single
// commit point of the pipeline.
func (s *TokenService) mint(ctx context.Context, param *GrantTypeParameter, scopes []string) (*domain.GrantedToken, *serrors.OAuth2Error) {
	now := s.now()
	tokenID := uuid.NewString()
	scope := domain.JoinScopes(scopes)

	accessClaims := jwt.MapClaims{
		domain.ClaimIssuer:          s.cfg.Issuer,
		domain.ClaimSubject:         param.Subject,
		domain.ClaimAudience:        jwt.ClaimStrings{param.Client.ID},
		domain.ClaimAuthorizedParty: param.Client.ID,
		domain.ClaimIssuedAt:        jwt.NewNumericDate(now).Unix(),
		domain.ClaimExpiration:      jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)).Unix(),
		domain.ClaimJTI:             tokenID,
	}
	if scope != "" {
		accessClaims[domain.ClaimScope] = scope
	}
	if param.Ticket != nil {
		accessClaims["permissions"] = permissionClaims(param.Ticket)
	}

	accessToken, err := s.signer.Sign(accessClaims, "")
	if err != nil {
		return nil, serrors.NewInternalError(err)
	}

	granted := &domain.GrantedToken{
		ID:             tokenID,
		AccessToken:    accessToken,
		TokenType:      "Bearer",
		ExpiresIn:      int(s.cfg.AccessTokenTTL.Seconds()),
		Scope:          scope,
		ClientID:       param.Client.ID,
		Subject:        param.Subject,
		CreateDateTime: now,
	}

	if hasScope(scopes, ScopeOpenID) && param.Subject != "" {
		idToken, payload, oerr := s.buildIDToken(param, now)
		if oerr != nil {
			return nil, oerr
		}
		granted.IDToken = idToken
		granted.IDTokenPayload = payload
	}

	if grantPermitsRefresh(param.GrantType) {
		refreshToken, err := generateRandomToken(refreshTokenLength)
		if err != nil {
			return nil, serrors.NewInternalError(err)
		}
		granted.RefreshToken = refreshToken
		granted.RefreshExpires = int(s.cfg.RefreshTokenTTL.Seconds())
	}

	if err := s.tokens.AddToken(ctx, granted); err != nil {
		return nil, serrors.NewInternalError(err)
	}

	s.publisher.Publish(events.New(events.TokenGranted, param.Client.ID, param.Subject, map[string]string{
		"grant_type": string(param.GrantType),
		"scope":      scope,
	}))

	return granted, nil
}

// buildIDToken signs the identity payload with the client's negotiated
// algorithm and optionally wraps it into a JWE.
func (s *TokenService) buildIDToken(param *GrantTypeParameter, now time.Time) (string, domain.Claims, *serrors.OAuth2Error) {
	payload := domain.Claims{
		{Type: domain.ClaimSubject, Value: param.Subject},
	}
	for _, claim := range param.OwnerClaims {
		if claim.Type == domain.ClaimSubject {
			continue
		}
		payload = append(payload, claim)
	}

	idClaims := jwt.MapClaims{
		domain.ClaimIssuer:          s.cfg.Issuer,
		domain.ClaimSubject:         param.Subject,
		domain.ClaimAudience:        jwt.ClaimStrings{param.Client.ID},
		domain.ClaimAuthorizedParty: param.Client.ID,
		domain.ClaimIssuedAt:        jwt.NewNumericDate(now).Unix(),
		domain.ClaimExpiration:      jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)).Unix(),
	}
	if param.Nonce != "" {
		idClaims["nonce"] = param.Nonce
	}
	for _, claim := range param.OwnerClaims {
		if _, reserved := idClaims[claim.Type]; !reserved {
			idClaims[claim.Type] = claim.Value
		}
	}

	idToken, err := s.signer.Sign(idClaims, param.Client.SignedResponseAlg())
	if err != nil {
		return "", nil, serrors.NewInternalError(err)
	}

	if param.Client.IDTokenEncryptedAlg != "" {
		encrypted, err := s.signer.Encrypt(idToken,
			jose.KeyAlgorithm(param.Client.IDTokenEncryptedAlg),
			jose.ContentEncryption(param.Client.IDTokenEncryptedEnc))
		if err != nil {
			return "", nil, serrors.NewInternalError(err)
		}
		idToken = encrypted
	}

	return idToken, payload, nil
}

// Introspect implements the introspection engine: look the token up by hint
// and report active/inactive plus claims. A missing or expired token is
// inactive, never an error.
func (s *TokenService) Introspect(ctx context.Context, tokenValue, tokenTypeHint string) (*dto.IntrospectionResponse, *serrors.OAuth2Error) {
	var granted *domain.GrantedToken
	var err error

	switch tokenTypeHint {
	case "refresh_token":
		granted, err = s.tokens.GetRefreshToken(ctx, tokenValue)
	case "access_token", "":
		granted, err = s.tokens.GetAccessToken(ctx, tokenValue)
		if err != nil && tokenTypeHint == "" {
			granted, err = s.tokens.GetRefreshToken(ctx, tokenValue)
		}
	default:
		granted, err = s.tokens.GetAccessToken(ctx, tokenValue)
		if err != nil {
			granted, err = s.tokens.GetRefreshToken(ctx, tokenValue)
		}
	}

	if err != nil {
		if isNotFound(err) {
			return &dto.IntrospectionResponse{Active: false}, nil
		}
		return nil, serrors.NewInternalError(err)
	}

	if granted.IsRevoked || granted.Expired(s.now()) {
		return &dto.IntrospectionResponse{Active: false}, nil
	}

	return &dto.IntrospectionResponse{
		Active:    true,
		Scope:     granted.Scope,
		ClientID:  granted.ClientID,
		Subject:   granted.Subject,
		Audience:  granted.ClientID,
		TokenType: granted.TokenType,
		Exp:       granted.ExpiresAt().Unix(),
		Iat:       granted.CreateDateTime.Unix(),
		Iss:       s.cfg.Issuer,
		Jti:       granted.ID,
	}, nil
}

// Revoke implements RFC 7009 semantics: the call succeeds even when the
// token is unknown; the point is that a valid token, if present, is gone
// afterwards.
func (s *TokenService) Revoke(ctx context.Context, tokenValue string) {
	if err := s.tokens.RemoveToken(ctx, tokenValue); err != nil {
		log.Warn().Err(err).Msg("failed to remove token on revocation")
		return
	}
	s.publisher.Publish(events.New(events.TokenRevoked, "", "", nil))
}

func permissionClaims(ticket *domain.Ticket) []map[string]interface{} {
	permissions := make([]map[string]interface{}, 0, len(ticket.Lines))
	for _, line := range ticket.Lines {
		permissions = append(permissions, map[string]interface{}{
			"resource_set_id": line.ResourceSetID,
			"scopes":          line.Scopes,
		})
	}
	return permissions
}

func grantPermitsRefresh(gt domain.GrantType) bool {
	switch gt {
	case domain.GrantAuthorizationCode, domain.GrantPassword, domain.GrantRefreshToken, domain.GrantUMATicket:
		return true
	default:
		return false
	}
}

func hasScope(scopes []string, name string) bool {
	for _, s := range scopes {
		if s == name {
			return true
		}
	}
	return false
}

// generateRandomToken returns a hex-encoded secure random string of the
// given byte length.
func generateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
