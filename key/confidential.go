package key

import (
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/ironseal/internal/util"
	"github.com/jmcleod/ironseal/secret"
)

const confidentialInfoPrefix = "ironseal:confidential:"

// ConfidentialKey is a purpose-bound key derived from a MasterKey. It
// implements secret.LegacyKeyProvider: AES-256-GCM with the purpose as
// additional data for envelopes, AES-ECB under the same key for values from
// before envelopes existed.
type ConfidentialKey struct {
	purpose string
	enclave *memguard.Enclave
}

var _ secret.LegacyKeyProvider = (*ConfidentialKey)(nil)

// NewConfidentialKey derives the key for purpose. Distinct purposes yield
// unrelated keys, and an envelope sealed for one purpose cannot be opened
// under another.
func NewConfidentialKey(master *MasterKey, purpose string) (*ConfidentialKey, error) {
	if purpose == "" {
		return nil, fmt.Errorf("%w: purpose must not be empty", secret.ErrConfiguration)
	}
	enclave, err := master.derive(confidentialInfoPrefix + purpose)
	if err != nil {
		return nil, fmt.Errorf("deriving key for %q: %w", purpose, err)
	}
	return &ConfidentialKey{purpose: purpose, enclave: enclave}, nil
}

// Purpose returns the name the key was derived for.
func (k *ConfidentialKey) Purpose() string {
	return k.purpose
}

func (k *ConfidentialKey) NewIV() ([]byte, error) {
	iv, err := util.NewGCMNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", secret.ErrConfiguration, err)
	}
	return iv, nil
}

func (k *ConfidentialKey) Encrypter(iv []byte) (secret.Cipher, error) {
	if len(iv) != util.GCMNonceSize {
		return nil, fmt.Errorf("%w: IV must be %d bytes, got %d", secret.ErrConfiguration, util.GCMNonceSize, len(iv))
	}
	iv = util.CopyBytes(iv)
	return secret.CipherFunc(func(in []byte) ([]byte, error) {
		var out []byte
		err := k.withBytes(func(b []byte) error {
			var err error
			out, err = util.SealAESGCM(in, b, iv, []byte(k.purpose))
			return err
		})
		return out, err
	}), nil
}

// Decrypter never reports a configuration fault for a bad IV: the IV comes
// from stored data, so a wrong length is a decryption failure.
func (k *ConfidentialKey) Decrypter(iv []byte) (secret.Cipher, error) {
	iv = util.CopyBytes(iv)
	return secret.CipherFunc(func(in []byte) ([]byte, error) {
		if len(iv) != util.GCMNonceSize {
			return nil, fmt.Errorf("IV must be %d bytes, got %d", util.GCMNonceSize, len(iv))
		}
		var out []byte
		err := k.withBytes(func(b []byte) error {
			var err error
			out, err = util.OpenAESGCM(in, b, iv, []byte(k.purpose))
			return err
		})
		return out, err
	}), nil
}

func (k *ConfidentialKey) LegacyDecrypter() (secret.Cipher, error) {
	return secret.CipherFunc(func(in []byte) ([]byte, error) {
		var out []byte
		err := k.withBytes(func(b []byte) error {
			var err error
			out, err = util.DecryptAESECB(in, b)
			return err
		})
		return out, err
	}), nil
}

func (k *ConfidentialKey) withBytes(fn func(b []byte) error) error {
	return openEnclave(k.enclave, fn)
}

func openEnclave(enclave *memguard.Enclave, fn func(b []byte) error) error {
	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("%w: opening key: %w", secret.ErrConfiguration, err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
