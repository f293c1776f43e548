package key

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/ironseal/internal/util"
	"github.com/jmcleod/ironseal/internal/uuid"
	"github.com/jmcleod/ironseal/secret"
)

// MasterKey is the per-installation root key. Purpose-bound keys are derived
// from it with HKDF; the master key itself never encrypts anything.
//
// Call Destroy when done to drop the key material.
type MasterKey struct {
	id string

	mu      sync.RWMutex
	enclave *memguard.Enclave
}

// NewMasterKey generates a random 256-bit master key with a fresh ID.
func NewMasterKey() (*MasterKey, error) {
	raw, err := util.NewAESKey()
	if err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	return newMasterKey(uuid.New(), raw)
}

// MasterKeyFromPassphrase derives the master key from a passphrase with
// Argon2id. The key ID is derived from the salt, so the same salt always
// names the same key.
func MasterKeyFromPassphrase(passphrase string, salt []byte, params util.Argon2idParams) (*MasterKey, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	raw, err := util.DeriveArgon2idKey(passphrase, salt, params)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}
	return newMasterKey(uuid.FromName(salt), raw)
}

// newMasterKey takes ownership of raw; memguard wipes it once sealed.
func newMasterKey(id string, raw []byte) (*MasterKey, error) {
	if len(raw) != util.AESKeySize {
		util.WipeBytes(raw)
		return nil, fmt.Errorf("master key must be %d bytes, got %d", util.AESKeySize, len(raw))
	}
	if id == "" {
		util.WipeBytes(raw)
		return nil, fmt.Errorf("master key ID must not be empty")
	}
	return &MasterKey{id: id, enclave: memguard.NewEnclave(raw)}, nil
}

// ID identifies the key without revealing anything about its bytes.
func (m *MasterKey) ID() string {
	return m.id
}

// Destroy drops the enclave. Keys derived earlier keep working; new
// derivations fail with ErrDestroyed.
func (m *MasterKey) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enclave = nil
}

// withBytes opens the enclave for the duration of fn. fn must not retain b.
func (m *MasterKey) withBytes(fn func(b []byte) error) error {
	m.mu.RLock()
	enclave := m.enclave
	m.mu.RUnlock()
	if enclave == nil {
		return ErrDestroyed
	}

	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("%w: opening master key: %w", secret.ErrConfiguration, err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// derive returns a purpose-bound key sealed in its own enclave.
func (m *MasterKey) derive(info string) (*memguard.Enclave, error) {
	var derived []byte
	err := m.withBytes(func(b []byte) error {
		var err error
		derived, err = util.HKDF(b, nil, []byte(info))
		return err
	})
	if err != nil {
		return nil, err
	}
	return memguard.NewEnclave(derived), nil
}
