// Package project persists build projects whose password parameters hold
// secrets. Secret values are written in their encrypted envelope form and
// read back with a plaintext fallback, so hand-edited configuration keeps
// working and legacy ciphertexts are rewritten on the next save.
package project

import (
	"github.com/jmcleod/ironseal/secret"
)

// Project is a named configuration with password parameters.
type Project struct {
	Name        string
	Description string
	Parameters  []PasswordParameter

	// version is the stored document version this value was loaded from;
	// zero for a project that has never been saved.
	version uint64
}

// PasswordParameter is a build parameter whose default value is a secret.
type PasswordParameter struct {
	Name         string
	Description  string
	DefaultValue *secret.Secret
}

// Version returns the stored version the project was loaded or last saved
// at. Save uses it for compare-and-swap.
func (p *Project) Version() uint64 {
	return p.version
}

// Parameter returns the parameter called name, or nil.
func (p *Project) Parameter(name string) *PasswordParameter {
	for i := range p.Parameters {
		if p.Parameters[i].Name == name {
			return &p.Parameters[i]
		}
	}
	return nil
}

// jsonProject is the stored document. DefaultValue holds the envelope, or
// null when the parameter has no default.
type jsonProject struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  []jsonParameter `json:"parameters"`
}

type jsonParameter struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	DefaultValue *string `json:"defaultValue"`
}
