package domain

import (
	"crypto/subtle"
	"time"
)

// Token endpoint authentication methods negotiated at client registration.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodNone              = "none"
)

// Client represents a registered OAuth2 client application. Identity is
// immutable once registered; every grant looks the client up by ID.
//
//nolint:tagliatelle
type Client struct {
	ID                    string         `bson:"client_id" json:"client_id"`
	Secrets               []string       `bson:"client_secrets,omitempty" json:"client_secrets,omitempty"`
	Name                  string         `bson:"client_name,omitempty" json:"client_name,omitempty"`
	AllowedScopes         []string       `bson:"allowed_scopes" json:"allowed_scopes"`
	GrantTypes            []GrantType    `bson:"grant_types" json:"grant_types"`
	ResponseTypes         []ResponseType `bson:"response_types" json:"response_types"`
	RedirectionURLs       []string       `bson:"redirect_uris" json:"redirect_uris"`
	TokenEndpointAuth     string         `bson:"token_endpoint_auth_method" json:"token_endpoint_auth_method"`
	JSONWebKeys           []JSONWebKey   `bson:"jwks,omitempty" json:"jwks,omitempty"`
	IDTokenSignedAlg      string         `bson:"id_token_signed_response_alg,omitempty" json:"id_token_signed_response_alg,omitempty"`
	IDTokenEncryptedAlg   string         `bson:"id_token_encrypted_response_alg,omitempty" json:"id_token_encrypted_response_alg,omitempty"`
	IDTokenEncryptedEnc   string         `bson:"id_token_encrypted_response_enc,omitempty" json:"id_token_encrypted_response_enc,omitempty"`
	RequirePKCE           bool           `bson:"require_pkce" json:"require_pkce"`
	CreatedAt             time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// HasGrantType reports whether the client declared the grant type at
// registration.
func (c *Client) HasGrantType(gt GrantType) bool {
	for _, g := range c.GrantTypes {
		if g == gt {
			return true
		}
	}
	return false
}

// HasRedirectURL reports whether the URL exactly matches one registered for
// the client.
func (c *Client) HasRedirectURL(url string) bool {
	for _, u := range c.RedirectionURLs {
		if u == url {
			return true
		}
	}
	return false
}

// HasScope reports whether the scope is in the client's allow list.
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// MatchSecret reports whether the presented secret matches any of the
// client's registered secrets. Comparison is constant time per secret.
func (c *Client) MatchSecret(secret string) bool {
	matched := false
	for _, s := range c.Secrets {
		if subtle.ConstantTimeCompare([]byte(s), []byte(secret)) == 1 {
			matched = true
		}
	}
	return matched
}

// SignedResponseAlg returns the negotiated id_token signing algorithm,
// defaulting to RS256 when the client did not register one.
func (c *Client) SignedResponseAlg() string {
	if c.IDTokenSignedAlg == "" {
		return "RS256"
	}
	return c.IDTokenSignedAlg
}
