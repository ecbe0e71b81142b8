package domain

import "strings"

// GrantType is the OAuth2 grant type string carried on the wire at the token
// endpoint. The values must match RFC 6749 / UMA 2.0 exactly.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantImplicit          GrantType = "implicit"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
	GrantUMATicket         GrantType = "uma_ticket"
)

// ResponseType is a single member of the authorization request's
// space-separated response_type parameter.
type ResponseType string

const (
	ResponseTypeCode    ResponseType = "code"
	ResponseTypeToken   ResponseType = "token"
	ResponseTypeIDToken ResponseType = "id_token"
)

// AuthorizationFlow identifies which of the three OIDC authorization flows a
// response_type combination selects.
type AuthorizationFlow int

const (
	AuthorizationCodeFlow AuthorizationFlow = iota
	ImplicitFlow
	HybridFlow
)

func (f AuthorizationFlow) String() string {
	switch f {
	case AuthorizationCodeFlow:
		return "authorization_code_flow"
	case ImplicitFlow:
		return "implicit_flow"
	case HybridFlow:
		return "hybrid_flow"
	default:
		return "unknown_flow"
	}
}

// ParseResponseTypes splits a space-joined response_type parameter into its
// members, dropping empty segments.
func ParseResponseTypes(raw string) []ResponseType {
	fields := strings.Fields(raw)
	types := make([]ResponseType, 0, len(fields))
	for _, f := range fields {
		types = append(types, ResponseType(f))
	}
	return types
}

// SplitScopes splits a space-joined scope parameter.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// JoinScopes joins scope names back into the wire form.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}
