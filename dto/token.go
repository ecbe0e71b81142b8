package dto

import "github.com/halcyon-auth/halcyon/domain"

// TokenRequest is the transient DTO carrying the token endpoint parameters.
// It is created per incoming request and never persisted.
type TokenRequest struct {
	GrantType    domain.GrantType `json:"grant_type"`
	ClientID     string           `json:"client_id"`
	ClientSecret string           `json:"client_secret,omitempty"`
	Scope        string           `json:"scope,omitempty"`

	// authorization_code grant
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`

	// password grant
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// refresh_token grant
	RefreshToken string `json:"refresh_token,omitempty"`

	// uma_ticket grant
	Ticket           string `json:"ticket,omitempty"`
	ClaimToken       string `json:"claim_token,omitempty"`
	ClaimTokenFormat string `json:"claim_token_format,omitempty"`
}

// TokenResponse is the wire form of a granted token.
//
//nolint:tagliatelle
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// NewTokenResponse maps a granted token onto its wire form.
func NewTokenResponse(token *domain.GrantedToken) *TokenResponse {
	return &TokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresIn:    token.ExpiresIn,
		RefreshToken: token.RefreshToken,
		IDToken:      token.IDToken,
		Scope:        token.Scope,
	}
}

// IntrospectionResponse is the RFC 7662 introspection result.
//
//nolint:tagliatelle
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Audience  string `json:"aud,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}
