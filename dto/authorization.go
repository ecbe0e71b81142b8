package dto

import "github.com/halcyon-auth/halcyon/domain"

// AuthorizationParameter is the transient DTO for an authorization request.
// It may be serialized into the issued code for round-tripping through user
// authentication, but is never persisted as-is.
type AuthorizationParameter struct {
	ClientID            string `json:"client_id"`
	Scope               string `json:"scope,omitempty"`
	ResponseType        string `json:"response_type"`
	RedirectURL         string `json:"redirect_url,omitempty"`
	State               string `json:"state,omitempty"`
	Nonce               string `json:"nonce,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	Prompt              string `json:"prompt,omitempty"`
	MaxAge              int64  `json:"max_age,omitempty"`
	Claims              string `json:"claims,omitempty"`
}

// ResponseTypes parses the space-joined response_type parameter.
func (p *AuthorizationParameter) ResponseTypes() []domain.ResponseType {
	return domain.ParseResponseTypes(p.ResponseType)
}

// AuthorizationResult is what the authorization endpoint hands back to the
// boundary layer: a code, tokens, or both, depending on the resolved flow.
type AuthorizationResult struct {
	Flow        domain.AuthorizationFlow `json:"-"`
	Code        string                   `json:"code,omitempty"`
	AccessToken string                   `json:"access_token,omitempty"`
	IDToken     string                   `json:"id_token,omitempty"`
	TokenType   string                   `json:"token_type,omitempty"`
	ExpiresIn   int                      `json:"expires_in,omitempty"`
	State       string                   `json:"state,omitempty"`
	RedirectURL string                   `json:"-"`
}
