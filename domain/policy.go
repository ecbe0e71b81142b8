package domain

import "time"

// Policy attaches a set of rules to one or more resource sets. A resource set
// with no attached policies is open: any valid ticket line against it is
// authorized.
type Policy struct {
	ID             string       `bson:"_id" json:"id"`
	ResourceSetIDs []string     `bson:"resource_set_ids" json:"resource_set_ids"`
	Rules          []PolicyRule `bson:"rules" json:"rules"`
	CreatedAt      time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// PolicyRule is a single condition gating access: an optional client allow
// list, an optional scope grant, required claims, an owner-consent flag, and
// an opaque script hook.
type PolicyRule struct {
	ID               string   `bson:"_id" json:"id"`
	ClientIDsAllowed []string `bson:"client_ids_allowed,omitempty" json:"client_ids_allowed,omitempty"`
	Scopes           []string `bson:"scopes,omitempty" json:"scopes,omitempty"`
	Claims           Claims   `bson:"claims,omitempty" json:"claims,omitempty"`
	ConsentNeeded    bool     `bson:"is_resource_owner_consent_needed" json:"is_resource_owner_consent_needed"`
	Script           string   `bson:"script,omitempty" json:"script,omitempty"`
	OpenIDProvider   string   `bson:"openid_provider,omitempty" json:"openid_provider,omitempty"`
}

// AllowsClient reports whether the rule's client allow list admits the
// client. An empty allow list admits every client.
func (r *PolicyRule) AllowsClient(clientID string) bool {
	if len(r.ClientIDsAllowed) == 0 {
		return true
	}
	for _, id := range r.ClientIDsAllowed {
		if id == clientID {
			return true
		}
	}
	return false
}

// GrantsScopes reports whether the rule's scope grant covers every requested
// scope. A rule with no scopes set grants any scope.
func (r *PolicyRule) GrantsScopes(requested []string) bool {
	if len(r.Scopes) == 0 {
		return true
	}
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
