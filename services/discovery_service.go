package services

import (
	"context"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// OpenIDConfiguration is the discovery document published under
// /.well-known/openid-configuration.
//
//nolint:tagliatelle
type OpenIDConfiguration struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	JwksURI                           string   `json:"jwks_uri"`
	PermissionEndpoint                string   `json:"permission_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// DiscoveryService builds the discovery document from configuration and the
// registered scopes.
type DiscoveryService struct {
	issuer string
	scopes domain.ScopeRepository
}

// NewDiscoveryService creates the discovery service.
func NewDiscoveryService(issuer string, scopes domain.ScopeRepository) *DiscoveryService {
	return &DiscoveryService{issuer: issuer, scopes: scopes}
}

// Configuration returns the discovery document. Only exposed scopes are
// advertised.
func (s *DiscoveryService) Configuration(ctx context.Context) (*OpenIDConfiguration, *serrors.OAuth2Error) {
	all, err := s.scopes.GetAll(ctx)
	if err != nil {
		return nil, serrors.NewInternalError(err)
	}

	var exposed []string
	for _, scope := range all {
		if scope.IsExposed {
			exposed = append(exposed, scope.Name)
		}
	}

	return &OpenIDConfiguration{
		Issuer:                s.issuer,
		AuthorizationEndpoint: s.issuer + "/authorize",
		TokenEndpoint:         s.issuer + "/token",
		IntrospectionEndpoint: s.issuer + "/introspect",
		RevocationEndpoint:    s.issuer + "/revoke",
		JwksURI:               s.issuer + "/jwks",
		PermissionEndpoint:    s.issuer + "/perm",
		ScopesSupported:       exposed,
		ResponseTypesSupported: []string{
			"code", "token", "id_token",
			"code id_token", "code token", "id_token token",
			"code id_token token",
		},
		GrantTypesSupported: []string{
			string(domain.GrantAuthorizationCode),
			string(domain.GrantImplicit),
			string(domain.GrantRefreshToken),
			string(domain.GrantClientCredentials),
			string(domain.GrantPassword),
			string(domain.GrantUMATicket),
		},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
		TokenEndpointAuthMethodsSupported: []string{
			domain.AuthMethodClientSecretBasic,
			domain.AuthMethodClientSecretPost,
			domain.AuthMethodNone,
		},
		CodeChallengeMethodsSupported: []string{CodeChallengeMethodPlain, CodeChallengeMethodS256},
	}, nil
}
