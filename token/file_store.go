package token

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sessionFileName = "session.json"
	keyFileName     = "session.key"
)

// FileStore persists the token pair to an encrypted JSON document under the
// data folder, so a session survives process restarts on the same machine.
// The sealing key is machine-local and created on first use; the store is
// process-local, not shared across devices.
//
// A missing, unreadable, or corrupt document falls back to the empty pair
// rather than failing: losing a session is recoverable, refusing to boot is
// not.
type FileStore struct {
	mu   sync.RWMutex
	path string
	key  []byte
	pair Pair
	log  zerolog.Logger
}

// NewFileStore loads (or initialises) the persisted pair from dataFolder.
func NewFileStore(dataFolder string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create data folder")
	}

	key, err := loadOrCreateKey(filepath.Join(dataFolder, keyFileName))
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] sealing key")
	}

	fs := &FileStore{
		path: filepath.Join(dataFolder, sessionFileName),
		key:  key,
		log:  log.With().Str("component", "token.FileStore").Logger(),
	}
	fs.pair = fs.load()
	return fs, nil
}

func (fs *FileStore) Get() Pair {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.pair
}

func (fs *FileStore) Set(pair Pair) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sealed, err := fs.seal(pair)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Set] seal")
	}
	if err := os.WriteFile(fs.path, sealed, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Set] write")
	}
	fs.pair = pair
	return nil
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.pair = Pair{}
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove")
	}
	return nil
}

// load reads and unseals the persisted document, degrading to the empty pair
// on any failure.
func (fs *FileStore) load() Pair {
	sealed, err := os.ReadFile(fs.path)
	if err != nil {
		return Pair{}
	}

	pair, err := fs.unseal(sealed)
	if err != nil {
		fs.log.Warn().Err(err).Msg("discarding unreadable session document")
		return Pair{}
	}
	return pair
}

func (fs *FileStore) seal(pair Pair) ([]byte, error) {
	plaintext, err := json.Marshal(pair)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(fs.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (fs *FileStore) unseal(sealed []byte) (Pair, error) {
	aead, err := chacha20poly1305.NewX(fs.key)
	if err != nil {
		return Pair{}, err
	}
	if len(sealed) < aead.NonceSize() {
		return Pair{}, errors.New("sealed document too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Pair{}, err
	}

	var pair Pair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	if key, err := os.ReadFile(path); err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, err
	}
	return key, nil
}
