package util

import (
	"bytes"
	"testing"
)

func TestAESGCM(t *testing.T) {
	key, _ := NewAESKey()
	nonce, _ := NewGCMNonce()
	plainText := []byte("hello world")
	aad := []byte("context")

	t.Run("SealOpen", func(t *testing.T) {
		cipherText, err := SealAESGCM(plainText, key, nonce, aad)
		if err != nil {
			t.Fatalf("SealAESGCM failed: %v", err)
		}

		decrypted, err := OpenAESGCM(cipherText, key, nonce, aad)
		if err != nil {
			t.Fatalf("OpenAESGCM failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		c1, _ := SealAESGCM(plainText, key, nonce, aad)
		c2, _ := SealAESGCM(plainText, key, nonce, aad)
		if !bytes.Equal(c1, c2) {
			t.Error("same key, nonce and plaintext should seal identically")
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		cipherText, _ := SealAESGCM(plainText, key, nonce, aad)
		_, err := OpenAESGCM(cipherText, key, nonce, []byte("wrong context"))
		if err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		cipherText, _ := SealAESGCM(plainText, key, nonce, aad)
		cipherText[len(cipherText)-1] ^= 0xFF
		_, err := OpenAESGCM(cipherText, key, nonce, aad)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := SealAESGCM(plainText, []byte("too short"), nonce, aad)
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("RejectBadNonceSize", func(t *testing.T) {
		_, err := SealAESGCM(plainText, key, []byte("short"), aad)
		if err == nil {
			t.Error("expected error with wrong nonce size on seal, got nil")
		}
		cipherText, _ := SealAESGCM(plainText, key, nonce, aad)
		_, err = OpenAESGCM(cipherText, key, make([]byte, 16), aad)
		if err == nil {
			t.Error("expected error with wrong nonce size on open, got nil")
		}
	})
}

func TestAESECB(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}

	for _, n := range []int{0, 1, 15, 16, 17, 64} {
		plainText := bytes.Repeat([]byte{'x'}, n)
		cipherText, err := EncryptAESECB(plainText, key)
		if err != nil {
			t.Fatalf("EncryptAESECB(%d bytes) failed: %v", n, err)
		}
		if len(cipherText)%16 != 0 || len(cipherText) <= n {
			t.Errorf("unexpected ciphertext length %d for %d bytes", len(cipherText), n)
		}
		decrypted, err := DecryptAESECB(cipherText, key)
		if err != nil {
			t.Fatalf("DecryptAESECB(%d bytes) failed: %v", n, err)
		}
		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("round trip mismatch for %d bytes", n)
		}
	}

	t.Run("RejectPartialBlock", func(t *testing.T) {
		if _, err := DecryptAESECB([]byte("short"), key); err == nil {
			t.Error("expected error for partial block, got nil")
		}
	})

	t.Run("RejectEmpty", func(t *testing.T) {
		if _, err := DecryptAESECB(nil, key); err == nil {
			t.Error("expected error for empty ciphertext, got nil")
		}
	})

	t.Run("RejectBadKey", func(t *testing.T) {
		if _, err := EncryptAESECB([]byte("x"), []byte("bad")); err == nil {
			t.Error("expected error for invalid key, got nil")
		}
	})
}

func TestPKCS7Unpad(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"ZeroPad", append(bytes.Repeat([]byte{'a'}, 15), 0)},
		{"PadTooLarge", append(bytes.Repeat([]byte{'a'}, 15), 17)},
		{"InconsistentPad", append(bytes.Repeat([]byte{'a'}, 14), 3, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := pkcs7Unpad(tt.in, 16); err == nil {
				t.Error("expected padding error, got nil")
			}
		})
	}
}

func TestArgon2id(t *testing.T) {
	params := DefaultArgon2idParams()
	params.Time = 1
	passphrase := "correct horse battery staple"
	salt := []byte("random salt")

	key, err := DeriveArgon2idKey(passphrase, salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected key length 32, got %d", len(key))
	}

	again, _ := DeriveArgon2idKey(passphrase, salt, params)
	if !bytes.Equal(key, again) {
		t.Error("DeriveArgon2idKey should be deterministic")
	}

	other, _ := DeriveArgon2idKey("wrong passphrase", salt, params)
	if bytes.Equal(key, other) {
		t.Error("different passphrases should derive different keys")
	}

	t.Run("NormalizedPassphrase", func(t *testing.T) {
		composed, _ := DeriveArgon2idKey("caf\u00e9", salt, params)
		decomposed, _ := DeriveArgon2idKey("cafe\u0301", salt, params)
		if !bytes.Equal(composed, decomposed) {
			t.Error("composed and decomposed forms should derive the same key")
		}
	})

	t.Run("RejectWeakParams", func(t *testing.T) {
		weak := params
		weak.MemoryKiB = 1
		if _, err := DeriveArgon2idKey(passphrase, salt, weak); err == nil {
			t.Error("expected error for extremely low memory")
		}
	})

	t.Run("RejectEmptySalt", func(t *testing.T) {
		if _, err := DeriveArgon2idKey(passphrase, nil, params); err == nil {
			t.Error("expected error for empty salt")
		}
	})
}

func TestHKDF(t *testing.T) {
	seed := []byte("seed")
	salt := []byte("salt")
	info := []byte("info")

	key1, err := HKDF(seed, salt, info)
	if err != nil {
		t.Fatalf("HKDF failed: %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("expected key length 32, got %d", len(key1))
	}

	key2, _ := HKDF(seed, salt, info)
	if !bytes.Equal(key1, key2) {
		t.Error("HKDF should be deterministic")
	}

	key3, _ := HKDF(seed, salt, []byte("different info"))
	if bytes.Equal(key1, key3) {
		t.Error("HKDF should produce different output with different info")
	}
}

func TestBytes(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}

	copied := CopyBytes(a)
	if !bytes.Equal(copied, a) {
		t.Error("CopyBytes failed")
	}
	copied[0] = 0xFF
	if a[0] == 0xFF {
		t.Error("CopyBytes should return a new slice")
	}
	if CopyBytes(nil) != nil {
		t.Error("CopyBytes(nil) should stay nil")
	}

	WipeBytes(copied)
	if !bytes.Equal(copied, []byte{0, 0, 0}) {
		t.Errorf("WipeBytes left %v", copied)
	}
}

func TestBase64(t *testing.T) {
	raw := []byte("any carnal pleas")
	padded := EncodeBase64(raw[:5])
	if padded != "YW55IGM=" {
		t.Fatalf("unexpected encoding %q", padded)
	}

	for _, in := range []string{"YW55IGM=", "YW55IGM"} {
		got, err := DecodeBase64(in)
		if err != nil {
			t.Fatalf("DecodeBase64(%q) failed: %v", in, err)
		}
		if string(got) != "any c" {
			t.Errorf("DecodeBase64(%q) = %q", in, got)
		}
	}

	if _, err := DecodeBase64("not*base64"); err == nil {
		t.Error("expected error for invalid alphabet")
	}
}

func TestRandomBytes(t *testing.T) {
	b1, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b2, _ := RandomBytes(32)
	if len(b1) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b1))
	}
	if bytes.Equal(b1, b2) {
		t.Error("RandomBytes should produce different outputs")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("caf\u00e9") != "cafe\u0301" {
		t.Error("Normalize should decompose to NFKD")
	}
}
