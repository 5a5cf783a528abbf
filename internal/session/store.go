package session

import (
	"net/http"

	"github.com/zhao0294/cst8919-assignment1/internal/activity"
	"github.com/zhao0294/cst8919-assignment1/internal/auth"
)

// Record is the whitelisted projection of an Identity held by the browser.
// It intentionally stores identity facts only, never provider tokens.
type Record struct {
	SubjectID   string `json:"sub"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	PictureURL  string `json:"picture,omitempty"`
}

// FromIdentity projects an identity onto the session whitelist.
func FromIdentity(id auth.Identity) Record {
	return Record{
		SubjectID:   id.SubjectID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PictureURL:  id.PictureURL,
	}
}

func (r Record) Actor() *activity.Actor {
	return &activity.Actor{
		SubjectID:   r.SubjectID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
	}
}

// Reader returns the session bound to a request, if any.
type Reader interface {
	Current(r *http.Request) (Record, bool)
}

// Store defines how sessions are issued, read and cleared.
// Implementations must treat a missing or malformed session as absent.
type Store interface {
	Reader
	Establish(w http.ResponseWriter, id auth.Identity) (Record, error)
	Clear(w http.ResponseWriter)
}
