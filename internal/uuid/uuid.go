// Package uuid generates identifiers for installation keys.
package uuid

import "github.com/google/uuid"

// New returns a random (version 4) UUID in its canonical string form.
func New() string {
	return uuid.NewString()
}

// FromName returns the name-based (version 5) UUID for name. The same name
// always yields the same identifier.
func FromName(name []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, name).String()
}
