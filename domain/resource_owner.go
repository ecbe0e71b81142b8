package domain

import "time"

// ResourceOwner is an end user able to authorize clients and register UMA
// resource sets. Password is stored bcrypt-hashed.
type ResourceOwner struct {
	ID          string    `bson:"_id" json:"id"`
	Login       string    `bson:"login" json:"login"`
	Password    string    `bson:"password,omitempty" json:"-"`
	Claims      Claims    `bson:"claims,omitempty" json:"claims,omitempty"`
	IsBlocked   bool      `bson:"is_blocked" json:"is_blocked"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	TwoFactorOn bool      `bson:"two_factor_on,omitempty" json:"two_factor_on,omitempty"`
}

// Consent records a resource owner's explicit approval, either of a client's
// scope request or of a requesting party's access to a resource set.
type Consent struct {
	ID            string    `bson:"_id" json:"id"`
	ResourceOwner string    `bson:"resource_owner" json:"resource_owner"`
	ClientID      string    `bson:"client_id" json:"client_id"`
	Scopes        []string  `bson:"scopes,omitempty" json:"scopes,omitempty"`
	ResourceSetID string    `bson:"resource_set_id,omitempty" json:"resource_set_id,omitempty"`
	GrantedAt     time.Time `bson:"granted_at" json:"granted_at"`
}
