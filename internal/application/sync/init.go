package syncapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crmbridge/backend/internal/infrastructure/crypto"
)

// ErrMissingWebhook is returned when init is called without a webhook.
var ErrMissingWebhook = errors.New("webhook url is required")

// InitService provisions the remote connection: it generates fresh
// cipher material, encrypts the supplied webhook with it, and persists
// both through the credential store. The plaintext webhook is never
// written anywhere.
type InitService struct {
	creds *CredentialStore
	log   *zap.Logger
}

// NewInitService creates an init service over the credential store.
func NewInitService(creds *CredentialStore, log *zap.Logger) *InitService {
	return &InitService{creds: creds, log: log.Named("sync.init")}
}

// Setup rotates the stored credentials to a fresh key pair encrypting
// the given webhook. Subsequent remote calls pick up the new
// credentials without a restart.
func (s *InitService) Setup(ctx context.Context, webhook string) error {
	webhook = strings.TrimSpace(webhook)
	if webhook == "" {
		return ErrMissingWebhook
	}

	key, iv, err := crypto.GenerateKeyIV()
	if err != nil {
		return fmt.Errorf("generate key material: %w", err)
	}
	cipher, err := crypto.NewCipher(key, iv)
	if err != nil {
		return err
	}
	encrypted, err := cipher.Encrypt(webhook)
	if err != nil {
		return fmt.Errorf("encrypt webhook: %w", err)
	}

	if err := s.creds.Rotate(key, iv, encrypted); err != nil {
		return err
	}
	s.log.Info("initialized remote connection")
	return nil
}
