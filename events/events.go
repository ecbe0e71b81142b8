package events

import "time"

// Event names published by the core.
const (
	TokenGranted     = "token_granted"
	TokenRevoked     = "token_revoked"
	TicketCreated    = "ticket_created"
	PolicyDenied     = "policy_denied"
	PolicyAuthorized = "policy_authorized"
	KeysRotated      = "keys_rotated"
)

// Event is a fire-and-forget domain event. Publication is never awaited for
// correctness; a lost event must not affect the outcome of the operation that
// raised it.
type Event struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	ClientID  string            `json:"client_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Publisher delivers domain events to whatever sink the host wires in.
type Publisher interface {
	Publish(event Event)
}

// New builds an event stamped with the current time.
func New(name, clientID, subject string, details map[string]string) Event {
	return Event{
		Name:      name,
		Timestamp: time.Now().UTC(),
		ClientID:  clientID,
		Subject:   subject,
		Details:   details,
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
