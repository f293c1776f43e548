package secret

// Cipher performs one complete encryption or decryption over its input.
type Cipher interface {
	Transform(in []byte) ([]byte, error)
}

// CipherFunc adapts an ordinary function to Cipher.
type CipherFunc func(in []byte) ([]byte, error)

func (f CipherFunc) Transform(in []byte) ([]byte, error) {
	return f(in)
}

// KeyProvider hands out ciphers bound to the installation key. Every method
// must be safe to call concurrently.
//
// Errors caused by the provider's own setup should wrap ErrConfiguration.
type KeyProvider interface {
	// NewIV returns a fresh random IV of the length the provider's ciphers expect.
	NewIV() ([]byte, error)
	// Encrypter returns a cipher that encrypts under the given IV.
	Encrypter(iv []byte) (Cipher, error)
	// Decrypter returns a cipher that decrypts under the given IV.
	Decrypter(iv []byte) (Cipher, error)
}

// LegacyKeyProvider is implemented by key providers that can still open
// values written before envelopes carried an IV.
type LegacyKeyProvider interface {
	KeyProvider
	LegacyDecrypter() (Cipher, error)
}
