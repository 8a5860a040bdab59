// Package access decides whether a caller may read or write a story.
//
// The gate is a pure function: it performs no I/O and keeps no state, so the
// caller fetches the story (or learns it is absent) and passes it in.
package access

import (
	"errors"
	"strings"

	"github.com/hongminglow/story-be/internal/models"
)

var (
	// ErrNotFound is returned when the requested story does not exist.
	ErrNotFound = errors.New("story not found")
	// ErrForbidden is returned when the caller may not perform the access.
	ErrForbidden = errors.New("forbidden")
)

// Kind is the type of access requested.
type Kind int

const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Caller is an optional account identity. The zero value is anonymous.
type Caller struct {
	id string
}

// Anonymous returns a caller without an identity.
func Anonymous() Caller {
	return Caller{}
}

// AsAccount returns a caller identified by accountID. A blank id is anonymous.
func AsAccount(accountID string) Caller {
	return Caller{id: normalize(accountID)}
}

// ID returns the account id and whether the caller is authenticated.
func (c Caller) ID() (string, bool) {
	return c.id, c.id != ""
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.id != ""
}

// Owns reports whether the caller is the owner of story.
func (c Caller) Owns(story *models.Story) bool {
	if story == nil || !c.Authenticated() {
		return false
	}
	return normalize(story.Owner) == c.id
}

// Check authorizes kind access to story. Existence is checked before anything else.
func Check(story *models.Story, caller Caller, kind Kind) error {
	if story == nil {
		return ErrNotFound
	}
	switch kind {
	case Read:
		if story.IsPublic || caller.Owns(story) {
			return nil
		}
	case Write:
		// public visibility never grants write
		if caller.Owns(story) {
			return nil
		}
	}
	return ErrForbidden
}

func normalize(id string) string {
	return strings.TrimSpace(id)
}
