package domain

// Claim is a single typed claim about a principal. The claim type is a
// free-form string key, matching how OpenID Connect treats claim names.
type Claim struct {
	Type  string `bson:"type" json:"type"`
	Value string `bson:"value" json:"value"`
}

// Claims is an ordered list of claims with typed accessors.
type Claims []Claim

// Get returns the value of the first claim with the given type.
func (c Claims) Get(claimType string) (string, bool) {
	for _, claim := range c {
		if claim.Type == claimType {
			return claim.Value, true
		}
	}
	return "", false
}

// Has reports whether any claim with the given type is present, regardless of
// its value.
func (c Claims) Has(claimType string) bool {
	_, ok := c.Get(claimType)
	return ok
}

// Values returns every value carried under the given claim type.
func (c Claims) Values(claimType string) []string {
	var values []string
	for _, claim := range c {
		if claim.Type == claimType {
			values = append(values, claim.Value)
		}
	}
	return values
}

// Standard OpenID Connect claim types used across the core.
const (
	ClaimSubject             = "sub"
	ClaimName                = "name"
	ClaimEmail               = "email"
	ClaimEmailVerified       = "email_verified"
	ClaimPhoneNumber         = "phone_number"
	ClaimPhoneNumberVerified = "phone_number_verified"
	ClaimRole                = "role"
	ClaimIssuedAt            = "iat"
	ClaimAudience            = "aud"
	ClaimAuthorizedParty     = "azp"
	ClaimIssuer              = "iss"
	ClaimExpiration          = "exp"
	ClaimScope               = "scope"
	ClaimJTI                 = "jti"
)
