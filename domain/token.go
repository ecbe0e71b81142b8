package domain

import "time"

// GrantedToken is the unit produced by the token issuance engine: an access
// token plus optional refresh token and id_token payload. AccessToken and
// RefreshToken values are unique across the store.
type GrantedToken struct {
	ID             string    `bson:"_id" json:"id"`
	AccessToken    string    `bson:"access_token" json:"access_token"`
	TokenType      string    `bson:"token_type" json:"token_type"`
	ExpiresIn      int       `bson:"expires_in" json:"expires_in"`
	RefreshToken   string    `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	RefreshExpires int       `bson:"refresh_expires_in,omitempty" json:"refresh_expires_in,omitempty"`
	IDToken        string    `bson:"id_token,omitempty" json:"id_token,omitempty"`
	IDTokenPayload Claims    `bson:"id_token_payload,omitempty" json:"id_token_payload,omitempty"`
	Scope          string    `bson:"scope,omitempty" json:"scope,omitempty"`
	ClientID       string    `bson:"client_id" json:"client_id"`
	Subject        string    `bson:"subject,omitempty" json:"subject,omitempty"`
	CreateDateTime time.Time `bson:"created_at" json:"created_at"`
	IsRevoked      bool      `bson:"is_revoked,omitempty" json:"is_revoked,omitempty"`
}

// ExpiresAt returns the instant after which the access token is no longer
// valid.
func (t *GrantedToken) ExpiresAt() time.Time {
	return t.CreateDateTime.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Expired reports whether the access token validity window has passed at the
// given instant. Expiry is evaluated by callers at read time; stores are
// passive holders.
func (t *GrantedToken) Expired(now time.Time) bool {
	return !t.ExpiresAt().After(now)
}

// RefreshExpiresAt returns the refresh token expiry. A refresh token always
// outlives or equals the access token's validity window.
func (t *GrantedToken) RefreshExpiresAt() time.Time {
	if t.RefreshExpires <= 0 {
		return t.ExpiresAt()
	}
	return t.CreateDateTime.Add(time.Duration(t.RefreshExpires) * time.Second)
}

// AuthorizationCode is the short-lived, single-use code produced by the
// authorization code flow, round-tripped through the user agent.
type AuthorizationCode struct {
	Code                string    `bson:"_id" json:"code"`
	ClientID            string    `bson:"client_id" json:"client_id"`
	Subject             string    `bson:"subject" json:"subject"`
	RedirectURI         string    `bson:"redirect_uri" json:"redirect_uri"`
	Scope               string    `bson:"scope,omitempty" json:"scope,omitempty"`
	Nonce               string    `bson:"nonce,omitempty" json:"nonce,omitempty"`
	CodeChallenge       string    `bson:"code_challenge,omitempty" json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `bson:"code_challenge_method,omitempty" json:"code_challenge_method,omitempty"`
	Used                bool      `bson:"used" json:"used"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt           time.Time `bson:"expires_at" json:"expires_at"`
}
