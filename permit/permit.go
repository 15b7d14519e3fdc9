// Package permit holds the data handed to the certificate pipeline by the
// surrounding verification application and the artifacts it hands back.
package permit

import (
	"strings"
	"time"
)

// VerificationRecord is a permit holder's record as returned by a lookup.
// When Found is false only ID is meaningful.
type VerificationRecord struct {
	ID               string    `json:"id" yaml:"id"`
	GivenNames       string    `json:"given_names" yaml:"given_names"`
	Surname          string    `json:"surname" yaml:"surname"`
	PassportNumber   string    `json:"passport_number" yaml:"passport_number"`
	PermittedClasses string    `json:"permitted_classes" yaml:"permitted_classes"`
	IssueDate        time.Time `json:"issue_date" yaml:"issue_date"`
	ExpiryDate       time.Time `json:"expiry_date" yaml:"expiry_date"`
	PhotoReference   *string   `json:"photo_reference,omitempty" yaml:"photo_reference,omitempty"`
	Found            bool      `json:"found" yaml:"found"`
}

// FullName joins given names and surname.
func (r VerificationRecord) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.GivenNames) + " " + strings.TrimSpace(r.Surname))
}

// HasPhoto reports whether a photo reference is on file.
func (r VerificationRecord) HasPhoto() bool {
	return r.PhotoReference != nil && strings.TrimSpace(*r.PhotoReference) != ""
}

// State is the status classification of a permit.
type State string

const (
	StateValid       State = "valid"
	StateExpiresSoon State = "expires_soon"
	StateExpired     State = "expired"
	StateNotFound    State = "not_found"
)

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	switch s {
	case StateValid, StateExpiresSoon, StateExpired, StateNotFound:
		return true
	}
	return false
}

// StatusClassification is derived from (Found, ExpiryDate) right before the
// pipeline runs. It is never persisted.
type StatusClassification struct {
	State        State  `json:"state"`
	Message      string `json:"message"`
	DisplayColor string `json:"display_color"`
}

// ExpiresSoonWindow is how close to expiry a permit is flagged.
const ExpiresSoonWindow = 30 * 24 * time.Hour

// Classify derives the status of rec at now. Dates are compared by calendar
// day in now's location.
func Classify(rec VerificationRecord, now time.Time) StatusClassification {
	if !rec.Found {
		return StatusClassification{
			State:        StateNotFound,
			Message:      "No permit matching this number was found in the register.",
			DisplayColor: "gray",
		}
	}
	// The expiry is a calendar date: keep its printed day rather than
	// converting the instant into now's zone.
	today := truncateDay(now)
	y, m, d := rec.ExpiryDate.Date()
	expiry := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch {
	case expiry.Before(today):
		return StatusClassification{
			State:        StateExpired,
			Message:      "This permit has expired and is no longer valid for driving.",
			DisplayColor: "red",
		}
	case !expiry.After(today.Add(ExpiresSoonWindow)):
		return StatusClassification{
			State:        StateExpiresSoon,
			Message:      "This permit is valid but expires within 30 days.",
			DisplayColor: "orange",
		}
	default:
		return StatusClassification{
			State:        StateValid,
			Message:      "This permit is valid and recognised internationally.",
			DisplayColor: "green",
		}
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
