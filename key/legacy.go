package key

import (
	"crypto/sha256"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/ironseal/internal/util"
	"github.com/jmcleod/ironseal/secret"
)

// legacyKeySize is AES-128: the historical key was a truncated SHA-256.
const legacyKeySize = 16

// LegacyKey reproduces the key used before installations had their own
// master key: AES-128 keyed with the first 16 bytes of SHA-256 of a shared
// secret string. It can only decrypt.
type LegacyKey struct {
	enclave *memguard.Enclave
}

// NewLegacyKey derives the historical key from text.
func NewLegacyKey(text string) *LegacyKey {
	sum := sha256.Sum256([]byte(text))
	raw := util.CopyBytes(sum[:legacyKeySize])
	util.WipeBytes(sum[:])
	return &LegacyKey{enclave: memguard.NewEnclave(raw)}
}

// Decrypter returns an AES-ECB cipher with PKCS#7 unpadding.
func (k *LegacyKey) Decrypter() secret.Cipher {
	return secret.CipherFunc(func(in []byte) ([]byte, error) {
		var out []byte
		err := openEnclave(k.enclave, func(b []byte) error {
			var err error
			out, err = util.DecryptAESECB(in, b)
			return err
		})
		return out, err
	})
}

// MagicDecoder returns a legacy decoder that opens values written under this
// key, for use with secret.WithLegacyDecoders.
func (k *LegacyKey) MagicDecoder() *secret.MagicDecoder {
	return secret.StaticMagicDecoder(k.Decrypter())
}
