package key

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmcleod/ironseal/internal/util"
)

// keyFileMode keeps the key readable by its owner only.
const keyFileMode = 0o600

type jsonKey struct {
	KeyID string `json:"keyId"`
	Bytes []byte `json:"bytes"`
}

// WriteFile stores the master key as JSON at path. An existing file is never
// overwritten.
func (m *MasterKey) WriteFile(path string) error {
	var data []byte
	err := m.withBytes(func(b []byte) error {
		var err error
		data, err = json.MarshalIndent(&jsonKey{KeyID: m.id, Bytes: b}, "", "  ")
		return err
	})
	if err != nil {
		return fmt.Errorf("encoding key file: %w", err)
	}
	data = append(data, '\n')
	defer util.WipeBytes(data)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, keyFileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyFileExists, path)
		}
		return fmt.Errorf("creating key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing key file: %w", err)
	}
	return nil
}

// LoadMasterKeyFile reads a key file written by WriteFile.
func LoadMasterKeyFile(path string) (*MasterKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	defer util.WipeBytes(data)

	var jk jsonKey
	if err := json.Unmarshal(data, &jk); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFile, err)
	}
	m, err := newMasterKey(jk.KeyID, jk.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFile, err)
	}
	return m, nil
}

// LoadOrCreateMasterKeyFile loads the key at path, generating and writing a
// new one if the file does not exist. created reports which happened.
func LoadOrCreateMasterKeyFile(path string) (m *MasterKey, created bool, err error) {
	m, err = LoadMasterKeyFile(path)
	if err == nil {
		return m, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	m, err = NewMasterKey()
	if err != nil {
		return nil, false, err
	}
	if err := m.WriteFile(path); err != nil {
		if errors.Is(err, ErrKeyFileExists) {
			// Lost a race with another process; use its key.
			m, err = LoadMasterKeyFile(path)
			return m, false, err
		}
		return nil, false, err
	}
	return m, true, nil
}
