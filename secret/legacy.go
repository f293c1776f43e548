package secret

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmcleod/ironseal/internal/util"
)

// legacyMagic terminated every plaintext encrypted before envelopes existed.
const legacyMagic = "::::MAGIC::::"

var (
	errNotEncoded    = errors.New("value is not base64")
	errNoLegacyKey   = errors.New("key provider has no legacy decrypter")
	errMissingMarker = errors.New("decrypted value lacks the legacy marker")
	errInvalidUTF8   = errors.New("decrypted value is not valid UTF-8")
)

// LegacyDecoder opens one historical storage format. It must not have side
// effects when it fails. A nil IV is allowed and means the next Encode picks
// a fresh one.
type LegacyDecoder interface {
	DecodeLegacy(raw string, keys KeyProvider) (plaintext string, iv []byte, err error)
}

// LegacyDecoderFunc adapts an ordinary function to LegacyDecoder.
type LegacyDecoderFunc func(raw string, keys KeyProvider) (string, []byte, error)

func (f LegacyDecoderFunc) DecodeLegacy(raw string, keys KeyProvider) (string, []byte, error) {
	return f(raw, keys)
}

// LegacyChain tries each decoder in order and stops at the first success.
type LegacyChain []LegacyDecoder

// DefaultLegacyChain opens the IV-less format with the key provider's own
// legacy decrypter.
func DefaultLegacyChain() LegacyChain {
	return LegacyChain{ProviderMagicDecoder()}
}

// Decode absorbs every decoder error. If none succeeds the result wraps
// ErrLegacyChainExhausted together with the individual failures.
func (lc LegacyChain) Decode(raw string, keys KeyProvider) (*Secret, error) {
	var errs []error
	for _, d := range lc {
		plain, iv, err := d.DecodeLegacy(raw, keys)
		if err == nil {
			return newWithIV(plain, iv), nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrLegacyChainExhausted
	}
	return nil, fmt.Errorf("%w: %w", ErrLegacyChainExhausted, errors.Join(errs...))
}

// MagicDecoder opens values of the form base64(E(plaintext + "::::MAGIC::::"))
// where E is a block cipher without an IV.
type MagicDecoder struct {
	cipher func(keys KeyProvider) (Cipher, error)
}

// ProviderMagicDecoder decrypts with the key provider's LegacyDecrypter. It
// fails for providers that do not implement LegacyKeyProvider.
func ProviderMagicDecoder() *MagicDecoder {
	return &MagicDecoder{cipher: func(keys KeyProvider) (Cipher, error) {
		lk, ok := keys.(LegacyKeyProvider)
		if !ok {
			return nil, errNoLegacyKey
		}
		return lk.LegacyDecrypter()
	}}
}

// StaticMagicDecoder decrypts with c regardless of the codec's key provider.
// Use it for keys that predate the current installation key.
func StaticMagicDecoder(c Cipher) *MagicDecoder {
	return &MagicDecoder{cipher: func(KeyProvider) (Cipher, error) {
		return c, nil
	}}
}

func (d *MagicDecoder) DecodeLegacy(raw string, keys KeyProvider) (string, []byte, error) {
	if !LooksEncoded(raw) {
		return "", nil, errNotEncoded
	}
	data, err := util.DecodeBase64(strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}"))
	if err != nil {
		return "", nil, fmt.Errorf("decoding base64: %w", err)
	}

	c, err := d.cipher(keys)
	if err != nil {
		return "", nil, err
	}
	out, err := c.Transform(data)
	if err != nil {
		return "", nil, fmt.Errorf("decrypting: %w", err)
	}
	if !utf8.Valid(out) {
		return "", nil, errInvalidUTF8
	}

	text := string(out)
	if !strings.HasSuffix(text, legacyMagic) {
		return "", nil, errMissingMarker
	}
	return strings.TrimSuffix(text, legacyMagic), nil, nil
}
