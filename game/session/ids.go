package session

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32 character alphanumeric identifier. Room, slot and
// player ids all come from here; collisions are not checked.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
