package vault

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

const appRoleLoginPath = "auth/approle/login"

// NormalizeAddress turns the address forms accepted in settings into an http(s) URL.
func NormalizeAddress(vaultAddr string) string {
	if strings.HasPrefix(vaultAddr, "hcvault://") {
		return "https://" + vaultAddr[len("hcvault://"):]
	}
	if !strings.HasPrefix(vaultAddr, "http://") && !strings.HasPrefix(vaultAddr, "https://") {
		return "https://" + vaultAddr
	}
	return strings.TrimRight(vaultAddr, "/")
}

func NewClient(vaultAddr string, tlsConfig *tls.Config) (*api.Client, error) {
	config := api.DefaultConfig()
	config.Address = NormalizeAddress(vaultAddr)
	if tlsConfig != nil {
		config.HttpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	// Never pick up a token from VAULT_TOKEN or ~/.vault-token implicitly
	client.ClearToken()
	return client, nil
}

// AuthenticateWithAppRole logs in with AppRole and returns the client token and the
// point in time at which it should be renewed
func AuthenticateWithAppRole(ctx context.Context, client *api.Client, roleID, secretID string) (string, time.Time, error) {
	secret, err := client.Logical().WriteWithContext(ctx, appRoleLoginPath, map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to authenticate with AppRole: %w", err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return "", time.Time{}, errors.New("AppRole authentication returned empty token")
	}

	// Refresh at 80% of lease duration
	leaseDuration := time.Duration(secret.Auth.LeaseDuration) * time.Second
	refreshBuffer := leaseDuration * 20 / 100
	expiry := time.Now().Add(leaseDuration - refreshBuffer)

	return secret.Auth.ClientToken, expiry, nil
}
