// Package sessionstore persists the two session entries (userToken and
// userInfo) for the SessionStore service: in a local file, in Redis, or in
// memory.
package sessionstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/boddenberg/artfy-client-go/internal/port"
)

const (
	saltSize  = 16
	keySize   = 32
	nonceSize = 12
)

// fileDocument is the on-disk layout. Both entries live in one document so
// a single rename publishes them together.
type fileDocument struct {
	UserToken string          `json:"userToken,omitempty"`
	UserInfo  json.RawMessage `json:"userInfo,omitempty"`
}

// sealedDocument wraps an encrypted fileDocument.
type sealedDocument struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// File keeps the session in a JSON file. With a secret, the document is
// sealed with AES-GCM under an argon2id key derived from the secret.
type File struct {
	mu     sync.Mutex
	path   string
	secret []byte
}

// NewFile creates a file-backed persister. An empty secret stores plaintext.
func NewFile(path, secret string) *File {
	f := &File{path: path}
	if secret != "" {
		f.secret = []byte(secret)
	}
	return f
}

// Path returns the session file location.
func (f *File) Path() string {
	return f.path
}

// Load reads both entries. A missing file is an absent session.
func (f *File) Load(_ context.Context) (string, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read session file: %w", err)
	}

	if f.secret != nil {
		if raw, err = f.open(raw); err != nil {
			return "", nil, err
		}
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("%w: %v", port.ErrSessionCorrupt, err)
	}
	return doc.UserToken, []byte(doc.UserInfo), nil
}

// Save writes both entries through a temp file and rename, so readers see
// either the old pair or the new one.
func (f *File) Save(_ context.Context, token string, userInfo []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(fileDocument{UserToken: token, UserInfo: userInfo})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if f.secret != nil {
		if raw, err = f.seal(raw); err != nil {
			return err
		}
	}
	return writeAtomic(f.path, raw)
}

// Delete removes the file. Deleting an absent session is not an error.
func (f *File) Delete(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *File) deriveKey(salt []byte) []byte {
	return argon2.IDKey(f.secret, salt, 1, 64*1024, 4, keySize)
}

func (f *File) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := newGCM(f.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealedDocument{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	})
}

func (f *File) open(raw []byte) ([]byte, error) {
	var sealed sealedDocument
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrSessionCorrupt, err)
	}
	if len(sealed.Salt) != saltSize || len(sealed.Nonce) != nonceSize {
		return nil, fmt.Errorf("%w: bad envelope", port.ErrSessionCorrupt)
	}

	aead, err := newGCM(f.deriveKey(sealed.Salt))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrSessionCorrupt, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return aead, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish session: %w", err)
	}
	return nil
}
