package vault

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/jdillenkofer/signtool/internal/pkg/vault"
	"github.com/jdillenkofer/signtool/internal/signing"
)

const DefaultField = "pem"

var ErrSecretNotFound = errors.New("vault secret not found")
var ErrFieldNotFound = errors.New("vault secret field not found")

// KeySource reads PEM key material from a field of a Vault KV secret.
// Both KV version 1 and version 2 mounts are supported.
type KeySource struct {
	client        *api.Client
	secretPath    string
	field         string
	vaultRoleID   string
	vaultSecretID string
	tokenExpiry   time.Time
	tokenMutex    sync.Mutex
}

// Compile-time check to ensure KeySource implements signing.KeySource
var _ signing.KeySource = (*KeySource)(nil)

// NewKeySource creates a new Vault KeySource.
// vaultAddr: e.g. "https://vault.example.com:8200"
// token: Vault token (use empty string "" if using AppRole)
// roleID: Vault AppRole role ID (use empty string "" if using token)
// secretID: Vault AppRole secret ID (use empty string "" if using token)
// secretPath: full logical path of the secret (e.g. "secret/data/signtool" for KV v2)
// field: name of the field holding the PEM text, DefaultField if empty
func NewKeySource(vaultAddr, token, roleID, secretID, secretPath, field string, tlsConfig *tls.Config) (*KeySource, error) {
	if secretPath == "" {
		return nil, errors.New("secretPath must not be empty")
	}
	if field == "" {
		field = DefaultField
	}

	hasToken := token != ""
	hasAppRole := roleID != "" && secretID != ""

	if !hasToken && !hasAppRole {
		return nil, fmt.Errorf("either vaultToken or (vaultRoleId and vaultSecretId) must be provided")
	}

	if hasToken && hasAppRole {
		return nil, fmt.Errorf("cannot use both vaultToken and AppRole authentication")
	}

	client, err := vault.NewClient(vaultAddr, tlsConfig)
	if err != nil {
		return nil, err
	}

	source := &KeySource{
		client:        client,
		secretPath:    secretPath,
		field:         field,
		vaultRoleID:   roleID,
		vaultSecretID: secretID,
	}
	if hasToken {
		client.SetToken(token)
		source.tokenExpiry = time.Now().Add(100 * 365 * 24 * time.Hour)
	}
	return source, nil
}

func (s *KeySource) LoadPEM(ctx context.Context) (string, error) {
	if err := s.ensureToken(ctx); err != nil {
		return "", err
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s from Vault: %w", s.secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, s.secretPath)
	}

	data := secret.Data
	// KV v2 nests the payload under data next to a metadata object
	if nested, ok := data["data"].(map[string]interface{}); ok {
		if _, hasMetadata := data["metadata"]; hasMetadata {
			data = nested
		}
	}

	value, ok := data[s.field]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrFieldNotFound, s.field, s.secretPath)
	}
	pem, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %s in %s is not a string", s.field, s.secretPath)
	}
	return pem, nil
}

func (s *KeySource) ensureToken(ctx context.Context) error {
	s.tokenMutex.Lock()
	defer s.tokenMutex.Unlock()

	if !s.tokenExpiry.IsZero() && time.Now().Before(s.tokenExpiry) {
		return nil
	}

	s.client.ClearToken()
	newToken, newExpiry, err := vault.AuthenticateWithAppRole(ctx, s.client, s.vaultRoleID, s.vaultSecretID)
	if err != nil {
		return fmt.Errorf("AppRole authentication failed: %w", err)
	}
	slog.Debug(fmt.Sprintf("Authenticated with Vault AppRole, token valid until %s", newExpiry.Format(time.RFC3339)))

	s.client.SetToken(newToken)
	s.tokenExpiry = newExpiry
	return nil
}
