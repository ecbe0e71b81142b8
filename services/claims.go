package services

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/halcyon-auth/halcyon/domain"
)

// openIDClaimAllowList is the fixed set of OpenID claim types copied from an
// identity token into a ticket's requester snapshot. Anything outside the
// list is dropped.
var openIDClaimAllowList = []string{
	domain.ClaimSubject,
	domain.ClaimName,
	domain.ClaimEmail,
	domain.ClaimEmailVerified,
	domain.ClaimPhoneNumber,
	domain.ClaimPhoneNumberVerified,
	domain.ClaimRole,
}

// openIDClaimsFromMap extracts the allow-listed OpenID claims out of parsed
// JWT claims. Multi-valued claims (role lists) yield one Claim per value.
func openIDClaimsFromMap(claims jwt.MapClaims) domain.Claims {
	var out domain.Claims
	for _, claimType := range openIDClaimAllowList {
		raw, ok := claims[claimType]
		if !ok {
			continue
		}
		switch value := raw.(type) {
		case string:
			out = append(out, domain.Claim{Type: claimType, Value: value})
		case bool:
			out = append(out, domain.Claim{Type: claimType, Value: fmt.Sprintf("%t", value)})
		case []interface{}:
			for _, item := range value {
				if s, ok := item.(string); ok {
					out = append(out, domain.Claim{Type: claimType, Value: s})
				}
			}
		}
	}
	return out
}
