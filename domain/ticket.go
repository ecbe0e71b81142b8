package domain

import "time"

// Ticket is the UMA permission ticket: one or more resource/scope lines a
// requesting party wants access to, bundled for a single token exchange.
// Tickets are consumed read-only by the exchange and expire after the
// configured ticket lifetime.
type Ticket struct {
	ID            string       `bson:"_id" json:"id"`
	ClientID      string       `bson:"client_id" json:"client_id"`
	ResourceOwner string       `bson:"resource_owner" json:"resource_owner"`
	Requester     Claims       `bson:"requester,omitempty" json:"requester,omitempty"`
	Created       time.Time    `bson:"created" json:"created"`
	Expires       time.Time    `bson:"expires" json:"expires"`
	Lines         []TicketLine `bson:"lines" json:"lines"`
}

// TicketLine is one (resource set, scopes) request inside a ticket.
type TicketLine struct {
	ID            string   `bson:"_id" json:"id"`
	ResourceSetID string   `bson:"resource_set_id" json:"resource_set_id"`
	Scopes        []string `bson:"scopes" json:"scopes"`
}

// Expired reports whether the ticket lifetime has passed at the given
// instant.
func (t *Ticket) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}
