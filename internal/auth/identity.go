package auth

import "github.com/zhao0294/cst8919-assignment1/internal/activity"

// Identity represents a normalized identity returned by the OIDC provider's
// userinfo endpoint. It contains facts only, no decisions, and is never
// persisted beyond the session record projected from it.
type Identity struct {
	SubjectID   string // provider-scoped unique user identifier (sub)
	Email       string
	DisplayName string
	PictureURL  string
}

// Actor returns the fragment of the identity attached to audit events.
func (i Identity) Actor() *activity.Actor {
	return &activity.Actor{
		SubjectID:   i.SubjectID,
		Email:       i.Email,
		DisplayName: i.DisplayName,
	}
}
