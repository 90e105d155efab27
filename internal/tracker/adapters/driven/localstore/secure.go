package localstore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"freight-tracker/internal/tracker/core/myerrors"
)

const (
	scryptN       = 1 << 15
	scryptR       = 8
	scryptP       = 1
	saltLen       = 16
	storeFileMode = 0o600
)

// SecureStore is the agent's stand-in for platform secure storage: a single
// JSON file of key -> sealed value, each value encrypted with
// XChaCha20-Poly1305 under a key derived from the configured secret.
type SecureStore struct {
	path string
	key  []byte

	mu sync.Mutex
}

type storeFile struct {
	Salt   string            `json:"salt"`
	Values map[string]string `json:"values"`
}

// OpenSecure opens or creates the store file at path. The scrypt salt is
// generated on first use and persisted alongside the values.
func OpenSecure(path, secret string) (*SecureStore, error) {
	if secret == "" {
		return nil, errors.New("store secret must not be empty")
	}

	f, err := readStoreFile(path)
	if err != nil {
		return nil, err
	}

	if f.Salt == "" {
		salt := make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}
		f.Salt = base64.StdEncoding.EncodeToString(salt)
		if err := writeStoreFile(path, f); err != nil {
			return nil, err
		}
	}

	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, fmt.Errorf("decoding store salt: %w", err)
	}

	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("deriving store key: %w", err)
	}

	return &SecureStore{path: path, key: key}, nil
}

func (s *SecureStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := readStoreFile(s.path)
	if err != nil {
		return "", err
	}
	sealed, ok := f.Values[key]
	if !ok {
		return "", myerrors.ErrKeyNotFound
	}
	return s.open(sealed)
}

func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := readStoreFile(s.path)
	if err != nil {
		return err
	}
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	f.Values[key] = sealed
	return writeStoreFile(s.path, f)
}

func (s *SecureStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := readStoreFile(s.path)
	if err != nil {
		return err
	}
	delete(f.Values, key)
	return writeStoreFile(s.path, f)
}

func (s *SecureStore) seal(value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	ct := aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (s *SecureStore) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", myerrors.ErrValueTampered
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", myerrors.ErrValueTampered
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", myerrors.ErrValueTampered
	}
	return string(pt), nil
}

func readStoreFile(path string) (storeFile, error) {
	f := storeFile{Values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("reading store file: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing store file: %w", err)
	}
	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	return f, nil
}

func writeStoreFile(path string, f storeFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding store file: %w", err)
	}
	if err := os.WriteFile(path, data, storeFileMode); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	return nil
}
