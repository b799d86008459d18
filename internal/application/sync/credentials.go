package syncapp

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/infrastructure/config"
	"github.com/crmbridge/backend/internal/infrastructure/crypto"
)

// ErrNotInitialized is returned when an operation needs remote
// credentials but the init endpoint has not been called yet and no
// credentials were supplied through configuration.
var ErrNotInitialized = errors.New("remote credentials not initialized")

// CredentialStore holds the active cipher key material and the
// encrypted webhook. It is seeded from configuration at startup and
// replaced wholesale when the init endpoint rotates credentials, so a
// rotation takes effect without a restart. Key material comes either
// as hex key/iv or as a passphrase the key is derived from; a rotation
// always writes hex material.
type CredentialStore struct {
	mu      sync.RWMutex
	key     string
	iv      string
	webhook string

	passphrase string
	salt       string
	envFile    string
	log        *zap.Logger
}

// NewCredentialStore seeds a store from the loaded configuration.
func NewCredentialStore(cfg config.CryptoConfig, webhook string, log *zap.Logger) *CredentialStore {
	return &CredentialStore{
		key:        cfg.Key,
		iv:         cfg.IV,
		webhook:    webhook,
		passphrase: cfg.Passphrase,
		salt:       cfg.Salt,
		envFile:    cfg.EnvFile,
		log:        log.Named("credentials"),
	}
}

// Cipher builds the cipher for the current key material. A hex key
// wins over a passphrase, so rotated credentials take precedence over
// the configured passphrase.
func (s *CredentialStore) Cipher() (*crypto.Cipher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == "" && s.passphrase != "" {
		return crypto.NewCipherFromPassphrase(s.passphrase, s.salt, s.iv)
	}
	return crypto.NewCipher(s.key, s.iv)
}

// Snapshot returns the current key, iv and encrypted webhook.
func (s *CredentialStore) Snapshot() (key, iv, webhook string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, s.iv, s.webhook
}

// Rotate persists new credentials to the env file and swaps them in.
// The file is rewritten whole; it exists only to carry these three
// values across restarts.
func (s *CredentialStore) Rotate(key, iv, webhook string) error {
	content := fmt.Sprintf(
		"CRMBRIDGE_CRYPTO_KEY=%s\nCRMBRIDGE_CRYPTO_IV=%s\nCRMBRIDGE_REMOTE_WEBHOOK=%s\n",
		key, iv, webhook)
	if err := os.WriteFile(s.envFile, []byte(content), 0o600); err != nil {
		return fmt.Errorf("persist credentials to %s: %w", s.envFile, err)
	}

	s.mu.Lock()
	s.key = key
	s.iv = iv
	s.webhook = webhook
	s.mu.Unlock()

	s.log.Info("rotated remote credentials", zap.String("env_file", s.envFile))
	return nil
}
