package key

import (
	"errors"
	"fmt"

	"github.com/jmcleod/ironseal/secret"
)

var (
	// ErrDestroyed is returned when a key is used after Destroy.
	ErrDestroyed = fmt.Errorf("%w: key has been destroyed", secret.ErrConfiguration)
	// ErrKeyFileExists is returned by WriteFile when the target already exists.
	ErrKeyFileExists = errors.New("key file already exists")
	// ErrInvalidKeyFile is returned when a key file cannot be parsed.
	ErrInvalidKeyFile = errors.New("invalid key file")
)
