package secret

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmcleod/ironseal/internal/util"
)

// testKeys is an in-memory LegacyKeyProvider: AES-256-GCM for envelopes and
// AES-ECB under the same key for the IV-less legacy format.
type testKeys struct {
	key     []byte
	ivCalls atomic.Int64
}

func newTestKeys(t *testing.T) *testKeys {
	t.Helper()
	key, err := util.NewAESKey()
	require.NoError(t, err)
	return &testKeys{key: key}
}

func (k *testKeys) NewIV() ([]byte, error) {
	k.ivCalls.Add(1)
	return util.NewGCMNonce()
}

func (k *testKeys) Encrypter(iv []byte) (Cipher, error) {
	return CipherFunc(func(in []byte) ([]byte, error) {
		return util.SealAESGCM(in, k.key, iv, nil)
	}), nil
}

func (k *testKeys) Decrypter(iv []byte) (Cipher, error) {
	return CipherFunc(func(in []byte) ([]byte, error) {
		return util.OpenAESGCM(in, k.key, iv, nil)
	}), nil
}

func (k *testKeys) LegacyDecrypter() (Cipher, error) {
	return CipherFunc(func(in []byte) ([]byte, error) {
		return util.DecryptAESECB(in, k.key)
	}), nil
}

// legacyValue builds a value in the IV-less format this provider can read.
func (k *testKeys) legacyValue(t *testing.T, plaintext string) string {
	t.Helper()
	return legacyValueWithKey(t, k.key, plaintext)
}

func legacyValueWithKey(t *testing.T, key []byte, plaintext string) string {
	t.Helper()
	ct, err := util.EncryptAESECB([]byte(plaintext+legacyMagic), key)
	require.NoError(t, err)
	return util.EncodeBase64(ct)
}

// ivOnlyKeys hides LegacyDecrypter so the provider no longer satisfies
// LegacyKeyProvider.
type ivOnlyKeys struct {
	k *testKeys
}

func (p ivOnlyKeys) NewIV() ([]byte, error)              { return p.k.NewIV() }
func (p ivOnlyKeys) Encrypter(iv []byte) (Cipher, error) { return p.k.Encrypter(iv) }
func (p ivOnlyKeys) Decrypter(iv []byte) (Cipher, error) { return p.k.Decrypter(iv) }

// brokenKeys fails in whichever step is configured.
type brokenKeys struct {
	*testKeys
	ivErr, encErr, decErr error
}

func (b *brokenKeys) NewIV() ([]byte, error) {
	if b.ivErr != nil {
		return nil, b.ivErr
	}
	return b.testKeys.NewIV()
}

func (b *brokenKeys) Encrypter(iv []byte) (Cipher, error) {
	if b.encErr != nil {
		return nil, b.encErr
	}
	return b.testKeys.Encrypter(iv)
}

func (b *brokenKeys) Decrypter(iv []byte) (Cipher, error) {
	if b.decErr != nil {
		return nil, b.decErr
	}
	return b.testKeys.Decrypter(iv)
}

var errBroken = errors.New("broken provider")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCodec(t *testing.T, opts ...CodecOption) (*Codec, *testKeys) {
	t.Helper()
	keys := newTestKeys(t)
	opts = append([]CodecOption{WithLogger(discardLogger())}, opts...)
	return NewCodec(keys, opts...), keys
}
