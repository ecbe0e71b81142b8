package domain

import "time"

// ResourceSet is a protected resource registered by its owner, exposing a set
// of scopes. Every scope requested in a ticket line must be a subset of the
// resource set's declared scopes.
type ResourceSet struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Owner     string    `bson:"owner" json:"owner"`
	Type      string    `bson:"type,omitempty" json:"type,omitempty"`
	Scopes    []string  `bson:"scopes" json:"scopes"`
	PolicyIDs []string  `bson:"policy_ids,omitempty" json:"policy_ids,omitempty"`
	IconURI   string    `bson:"icon_uri,omitempty" json:"icon_uri,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// HasScopes reports whether every requested scope is declared on the resource
// set.
func (r *ResourceSet) HasScopes(requested []string) bool {
	for _, want := range requested {
		found := false
		for _, have := range r.Scopes {
			if want == have {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
