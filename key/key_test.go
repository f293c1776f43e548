package key

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmcleod/ironseal/internal/util"
	"github.com/jmcleod/ironseal/secret"
)

func testArgonParams() util.Argon2idParams {
	return util.Argon2idParams{Time: 1, MemoryKiB: 19 * 1024, Parallelism: 1, KeyLen: 32}
}

func newTestKey(t *testing.T, purpose string) *ConfidentialKey {
	t.Helper()
	m, err := NewMasterKey()
	if err != nil {
		t.Fatalf("NewMasterKey failed: %v", err)
	}
	k, err := NewConfidentialKey(m, purpose)
	if err != nil {
		t.Fatalf("NewConfidentialKey failed: %v", err)
	}
	return k
}

func seal(t *testing.T, k *ConfidentialKey, plain []byte) (iv, ct []byte) {
	t.Helper()
	iv, err := k.NewIV()
	if err != nil {
		t.Fatalf("NewIV failed: %v", err)
	}
	enc, err := k.Encrypter(iv)
	if err != nil {
		t.Fatalf("Encrypter failed: %v", err)
	}
	ct, err = enc.Transform(plain)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	return iv, ct
}

func open(k *ConfidentialKey, iv, ct []byte) ([]byte, error) {
	dec, err := k.Decrypter(iv)
	if err != nil {
		return nil, err
	}
	return dec.Transform(ct)
}

func TestMasterKey(t *testing.T) {
	m1, err := NewMasterKey()
	if err != nil {
		t.Fatalf("NewMasterKey failed: %v", err)
	}
	m2, err := NewMasterKey()
	if err != nil {
		t.Fatalf("NewMasterKey failed: %v", err)
	}
	if m1.ID() == "" || m1.ID() == m2.ID() {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", m1.ID(), m2.ID())
	}

	t.Run("Destroy", func(t *testing.T) {
		m, _ := NewMasterKey()
		k, err := NewConfidentialKey(m, "before")
		if err != nil {
			t.Fatalf("NewConfidentialKey failed: %v", err)
		}
		m.Destroy()

		_, err = NewConfidentialKey(m, "after")
		if !errors.Is(err, ErrDestroyed) || !errors.Is(err, secret.ErrConfiguration) {
			t.Errorf("expected ErrDestroyed wrapping ErrConfiguration, got %v", err)
		}
		if err := m.WriteFile(filepath.Join(t.TempDir(), "key.json")); !errors.Is(err, ErrDestroyed) {
			t.Errorf("expected ErrDestroyed from WriteFile, got %v", err)
		}

		iv, ct := seal(t, k, []byte("still usable"))
		if _, err := open(k, iv, ct); err != nil {
			t.Errorf("derived key should survive master Destroy: %v", err)
		}
	})
}

func TestMasterKeyFromPassphrase(t *testing.T) {
	salt := []byte("0123456789abcdef")
	params := testArgonParams()

	a, err := MasterKeyFromPassphrase("café passphrase", salt, params)
	if err != nil {
		t.Fatalf("MasterKeyFromPassphrase failed: %v", err)
	}
	b, err := MasterKeyFromPassphrase("café passphrase", salt, params)
	if err != nil {
		t.Fatalf("MasterKeyFromPassphrase failed: %v", err)
	}
	if a.ID() != b.ID() {
		t.Errorf("same salt should give the same key ID")
	}

	ka, _ := NewConfidentialKey(a, "p")
	kb, _ := NewConfidentialKey(b, "p")
	iv, ct := seal(t, ka, []byte("normalized"))
	if got, err := open(kb, iv, ct); err != nil || string(got) != "normalized" {
		t.Errorf("equivalent passphrases should derive the same key: %q, %v", got, err)
	}

	c, err := MasterKeyFromPassphrase("other passphrase", salt, params)
	if err != nil {
		t.Fatalf("MasterKeyFromPassphrase failed: %v", err)
	}
	kc, _ := NewConfidentialKey(c, "p")
	if _, err := open(kc, iv, ct); err == nil {
		t.Error("a different passphrase must not open the value")
	}

	if _, err := MasterKeyFromPassphrase("", salt, params); err == nil {
		t.Error("expected error for empty passphrase")
	}
	if _, err := MasterKeyFromPassphrase("x", nil, params); err == nil {
		t.Error("expected error for empty salt")
	}
	weak := params
	weak.MemoryKiB = 1024
	if _, err := MasterKeyFromPassphrase("x", salt, weak); err == nil {
		t.Error("expected error for weak argon2id params")
	}
}

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "master.json")

	m, err := NewMasterKey()
	if err != nil {
		t.Fatalf("NewMasterKey failed: %v", err)
	}
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != keyFileMode {
			t.Errorf("expected mode %o, got %o", keyFileMode, perm)
		}
	}

	if err := m.WriteFile(path); !errors.Is(err, ErrKeyFileExists) {
		t.Errorf("expected ErrKeyFileExists, got %v", err)
	}

	loaded, err := LoadMasterKeyFile(path)
	if err != nil {
		t.Fatalf("LoadMasterKeyFile failed: %v", err)
	}
	if loaded.ID() != m.ID() {
		t.Errorf("expected ID %s, got %s", m.ID(), loaded.ID())
	}

	k1, _ := NewConfidentialKey(m, "purpose")
	k2, _ := NewConfidentialKey(loaded, "purpose")
	iv, ct := seal(t, k1, []byte("persisted"))
	got, err := open(k2, iv, ct)
	if err != nil || string(got) != "persisted" {
		t.Errorf("loaded key should open values from the original: %q, %v", got, err)
	}
}

func TestLoadMasterKeyFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"NotJSON":   "not json",
		"ShortKey":  `{"keyId":"k","bytes":"YWJj"}`,
		"MissingID": `{"bytes":"` + util.EncodeBase64(make([]byte, 32)) + `"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if _, err := LoadMasterKeyFile(path); !errors.Is(err, ErrInvalidKeyFile) {
				t.Errorf("expected ErrInvalidKeyFile, got %v", err)
			}
		})
	}

	if _, err := LoadMasterKeyFile(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadOrCreateMasterKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.json")

	first, created, err := LoadOrCreateMasterKeyFile(path)
	if err != nil {
		t.Fatalf("LoadOrCreateMasterKeyFile failed: %v", err)
	}
	if !created {
		t.Error("expected the key to be created")
	}

	second, created, err := LoadOrCreateMasterKeyFile(path)
	if err != nil {
		t.Fatalf("LoadOrCreateMasterKeyFile failed: %v", err)
	}
	if created {
		t.Error("expected the existing key to be loaded")
	}
	if first.ID() != second.ID() {
		t.Errorf("expected ID %s, got %s", first.ID(), second.ID())
	}
}

func TestConfidentialKey(t *testing.T) {
	k := newTestKey(t, "project")
	if k.Purpose() != "project" {
		t.Errorf("expected purpose project, got %s", k.Purpose())
	}

	iv, ct := seal(t, k, []byte("hello"))
	if len(iv) != util.GCMNonceSize {
		t.Errorf("expected %d byte IV, got %d", util.GCMNonceSize, len(iv))
	}
	got, err := open(k, iv, ct)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	t.Run("IVIsCopied", func(t *testing.T) {
		iv, _ := k.NewIV()
		enc, _ := k.Encrypter(iv)
		orig := util.CopyBytes(iv)
		iv[0] ^= 0xFF
		ct, err := enc.Transform([]byte("x"))
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if got, err := open(k, orig, ct); err != nil || string(got) != "x" {
			t.Errorf("encrypter should keep its own copy of the IV: %q, %v", got, err)
		}
	})

	t.Run("EncrypterRejectsBadIV", func(t *testing.T) {
		if _, err := k.Encrypter([]byte("short")); !errors.Is(err, secret.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("DecrypterRejectsBadIV", func(t *testing.T) {
		_, err := open(k, []byte("short"), ct)
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, secret.ErrConfiguration) {
			t.Error("a stored IV of the wrong length is not a configuration fault")
		}
	})

	t.Run("EmptyPurpose", func(t *testing.T) {
		m, _ := NewMasterKey()
		if _, err := NewConfidentialKey(m, ""); !errors.Is(err, secret.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}

func TestConfidentialKey_PurposeSeparation(t *testing.T) {
	m, _ := NewMasterKey()
	a, _ := NewConfidentialKey(m, "a")
	b, _ := NewConfidentialKey(m, "b")
	a2, _ := NewConfidentialKey(m, "a")

	iv, ct := seal(t, a, []byte("bound"))
	if _, err := open(b, iv, ct); err == nil {
		t.Error("a key for another purpose must not open the value")
	}
	if got, err := open(a2, iv, ct); err != nil || string(got) != "bound" {
		t.Errorf("re-derived key should open the value: %q, %v", got, err)
	}
}

func TestConfidentialKey_LegacyDecrypter(t *testing.T) {
	k := newTestKey(t, "legacy")

	var ct []byte
	err := k.withBytes(func(b []byte) error {
		var err error
		ct, err = util.EncryptAESECB([]byte("old value"), b)
		return err
	})
	if err != nil {
		t.Fatalf("EncryptAESECB failed: %v", err)
	}

	dec, err := k.LegacyDecrypter()
	if err != nil {
		t.Fatalf("LegacyDecrypter failed: %v", err)
	}
	got, err := dec.Transform(ct)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if string(got) != "old value" {
		t.Errorf("expected old value, got %q", got)
	}
}

func TestConfidentialKey_WithCodec(t *testing.T) {
	k := newTestKey(t, "codec")
	codec := secret.NewCodec(k)

	s := secret.New("p4ssw0rd")
	env, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !secret.LooksEncrypted(env) {
		t.Errorf("expected an envelope, got %q", env)
	}
	if got := codec.FromString(env).PlainText(); got != "p4ssw0rd" {
		t.Errorf("expected p4ssw0rd, got %q", got)
	}

	other := secret.NewCodec(newTestKey(t, "codec"))
	if got := other.FromString(env).PlainText(); got != env {
		t.Errorf("another installation should see the raw envelope, got %q", got)
	}
}

func TestLegacyKey(t *testing.T) {
	const shared = "installation secret"
	sum := sha256.Sum256([]byte(shared))
	ct, err := util.EncryptAESECB([]byte("theSecret::::MAGIC::::"), sum[:16])
	if err != nil {
		t.Fatalf("EncryptAESECB failed: %v", err)
	}

	lk := NewLegacyKey(shared)
	got, err := lk.Decrypter().Transform(ct)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !bytes.Equal(got, []byte("theSecret::::MAGIC::::")) {
		t.Errorf("unexpected plaintext %q", got)
	}

	raw := util.EncodeBase64(ct)
	codec := secret.NewCodec(newTestKey(t, "p"),
		secret.WithLegacyDecoders(secret.ProviderMagicDecoder(), lk.MagicDecoder()))
	if s := codec.FromString(raw); s.PlainText() != "theSecret" {
		t.Errorf("expected theSecret, got %q", s.PlainText())
	}

	wrong := secret.NewCodec(newTestKey(t, "p"),
		secret.WithLegacyDecoders(NewLegacyKey("other").MagicDecoder()))
	if s := wrong.Decrypt(raw); s != nil {
		t.Error("a different legacy secret must not open the value")
	}
}
