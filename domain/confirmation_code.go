package domain

import "time"

// ConfirmationCode is a single-use code delivered out of band (SMS) for
// phone-number verification. Codes are looked up by value, so generated
// values must not collide; the generator retries on collision.
type ConfirmationCode struct {
	Value     string    `bson:"_id" json:"value"`
	Subject   string    `bson:"subject" json:"subject"`
	IssueAt   time.Time `bson:"issue_at" json:"issue_at"`
	ExpiresIn int       `bson:"expires_in" json:"expires_in"`
}

// Expired reports whether the code's validity window has passed.
func (c *ConfirmationCode) Expired(now time.Time) bool {
	return !c.IssueAt.Add(time.Duration(c.ExpiresIn) * time.Second).After(now)
}
