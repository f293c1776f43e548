package project

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength bounds project and parameter names.
const MaxNameLength = 256

func validateName(name, label string) error {
	if name == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidName, label)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d", ErrInvalidName, label, MaxNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %s contains invalid UTF-8", ErrInvalidName, label)
	}
	for _, r := range name {
		if r == '/' || r == '\\' {
			return fmt.Errorf("%w: %s contains forbidden character %q", ErrInvalidName, label, r)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %s contains control character", ErrInvalidName, label)
		}
	}
	return nil
}

func validateProject(p *Project) error {
	if err := validateName(p.Name, "project name"); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.Parameters))
	for _, param := range p.Parameters {
		if err := validateName(param.Name, "parameter name"); err != nil {
			return err
		}
		if _, dup := seen[param.Name]; dup {
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidName, param.Name)
		}
		seen[param.Name] = struct{}{}
	}
	return nil
}
