package secret

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Codec converts Secrets to and from their persisted envelope form using an
// injected KeyProvider. A Codec is safe for concurrent use.
type Codec struct {
	keys     KeyProvider
	legacy   LegacyChain
	logger   *slog.Logger
	observer Observer
}

// NewCodec returns a Codec that encrypts with keys. By default the legacy
// chain holds a single MagicDecoder bound to keys.
func NewCodec(keys KeyProvider, opts ...CodecOption) *Codec {
	c := &Codec{
		keys:     keys,
		legacy:   DefaultLegacyChain(),
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode returns the envelope for s, assigning s an IV on first use.
//
// Encoding the same Secret again yields the same string. Any failure here
// means the key provider is misconfigured and wraps ErrConfiguration; it is
// never caused by the secret's content.
func (c *Codec) Encode(s *Secret) (string, error) {
	out, err := c.encode(s)
	c.observer.ObserveEncode(err)
	return out, err
}

func (c *Codec) encode(s *Secret) (string, error) {
	if s == nil {
		return "", errors.New("cannot encode a nil secret")
	}

	iv, err := s.iv.getOrGenerate(c.keys.NewIV)
	if err != nil {
		return "", fmt.Errorf("%w: generating IV: %w", ErrConfiguration, err)
	}

	enc, err := c.keys.Encrypter(iv)
	if err != nil {
		return "", fmt.Errorf("%w: building encrypter: %w", ErrConfiguration, err)
	}
	cipherText, err := enc.Transform([]byte(s.plaintext))
	if err != nil {
		return "", fmt.Errorf("%w: encrypting: %w", ErrConfiguration, err)
	}

	out, err := formatEnvelope(iv, cipherText)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return out, nil
}

// Decode opens a current-format envelope. Structural problems wrap
// ErrMalformedEnvelope; everything after a successful parse wraps
// ErrDecryptionFailed. Decode does not consult the legacy chain.
func (c *Codec) Decode(raw string) (*Secret, error) {
	iv, cipherText, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	// The provider's error is flattened with %v so that a configuration fault
	// met while decoding never reads as ErrConfiguration to callers.
	dec, err := c.keys.Decrypter(iv)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			c.logger.Warn("key provider could not build a decrypter", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plain, err := dec.Transform(cipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if !utf8.Valid(plain) {
		return nil, fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecryptionFailed)
	}
	return newWithIV(string(plain), iv), nil
}

// Decrypt recovers the Secret stored as raw, or returns nil when neither the
// current format nor any legacy decoder can open it.
func (c *Codec) Decrypt(raw string) *Secret {
	s, outcome := c.decrypt(raw)
	c.observer.ObserveDecode(outcome)
	return s
}

// FromString is Decrypt with a plaintext fallback: when raw cannot be
// decrypted it is taken to be the secret itself. It never returns nil.
func (c *Codec) FromString(raw string) *Secret {
	s, outcome := c.decrypt(raw)
	if s == nil {
		s = New(raw)
		outcome = OutcomePlaintext
	}
	c.observer.ObserveDecode(outcome)
	return s
}

func (c *Codec) decrypt(raw string) (*Secret, Outcome) {
	if LooksEncrypted(raw) {
		s, err := c.Decode(raw)
		if err == nil {
			return s, OutcomeCurrent
		}
		c.logger.Debug("value is not a current envelope, trying legacy decoders",
			slog.String("reason", failureReason(err)))
	}

	s, err := c.legacy.Decode(raw, c.keys)
	if err != nil {
		return nil, OutcomeNone
	}
	c.logger.Debug("value decoded by legacy decoder")
	return s, OutcomeLegacy
}

// failureReason names the class of a decode failure without echoing any of
// the input, which may be a plaintext password.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedEnvelope):
		return ErrMalformedEnvelope.Error()
	case errors.Is(err, ErrDecryptionFailed):
		return ErrDecryptionFailed.Error()
	default:
		return "unknown"
	}
}
