package domain

// ScopeType distinguishes plain protected-API scopes from scopes that only
// select identity claims for the id_token.
type ScopeType string

const (
	ScopeTypeProtectedAPI ScopeType = "protected_api"
	ScopeTypeIdentity     ScopeType = "identity"
)

// Scope is read-only reference data consumed during validation and discovery.
type Scope struct {
	Name          string    `bson:"name" json:"name"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	IsExposed     bool      `bson:"is_exposed" json:"is_exposed"`
	IsOpenIDScope bool      `bson:"is_openid_scope" json:"is_openid_scope"`
	Type          ScopeType `bson:"type" json:"type"`
	Claims        []string  `bson:"claims,omitempty" json:"claims,omitempty"`
}

// ScopeNames projects a scope list onto its names.
func ScopeNames(scopes []Scope) []string {
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, s.Name)
	}
	return names
}
