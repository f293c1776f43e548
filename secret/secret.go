package secret

import (
	"hash/maphash"
	"log/slog"
	"sync"

	"github.com/jmcleod/ironseal/internal/util"
)

const redacted = "********"

var hashSeed = maphash.MakeSeed()

// Secret is a string that is only ever persisted in encrypted form.
//
// The plaintext is fixed at construction. The IV is chosen on first encode
// (or recovered on decode) and reused for the lifetime of the value, so
// saving an unchanged Secret twice yields the same envelope. Secrets must not
// be copied after first use; pass *Secret.
type Secret struct {
	plaintext string
	iv        ivCell
}

// New wraps a known plaintext. No IV is assigned until the first encode.
func New(plaintext string) *Secret {
	return &Secret{plaintext: plaintext}
}

func newWithIV(plaintext string, iv []byte) *Secret {
	s := &Secret{plaintext: plaintext}
	s.iv.iv = util.CopyBytes(iv)
	return s
}

// PlainText returns the unencrypted value. Prefer ToString when s may be nil.
func (s *Secret) PlainText() string {
	return s.plaintext
}

// String returns the plaintext.
//
// Deprecated: use ToString, which tolerates nil, or PlainText when the
// caller really means to expose the value.
func (s *Secret) String() string {
	return s.plaintext
}

// ToString returns the plaintext of s, or "" for a nil Secret. Like
// FromString it does not distinguish an absent secret from an empty one.
func ToString(s *Secret) string {
	if s == nil {
		return ""
	}
	return s.plaintext
}

// Equal reports whether both secrets hold the same plaintext. The IV plays no part.
func (s *Secret) Equal(other *Secret) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.plaintext == other.plaintext
}

// Hash is consistent with Equal within a single process.
func (s *Secret) Hash() uint64 {
	return maphash.String(hashSeed, s.plaintext)
}

// LogValue keeps the plaintext out of structured logs.
func (s *Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// GoString keeps the plaintext out of %#v output.
func (s *Secret) GoString() string {
	return "secret.Secret{" + redacted + "}"
}

// ivCell holds the IV used for every encryption of one Secret. It is written
// at most once; concurrent encoders all observe the same bytes.
type ivCell struct {
	mu sync.Mutex
	iv []byte
}

func (c *ivCell) getOrGenerate(generate func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iv == nil {
		iv, err := generate()
		if err != nil {
			return nil, err
		}
		c.iv = iv
	}
	return c.iv, nil
}

func (c *ivCell) get() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iv
}
