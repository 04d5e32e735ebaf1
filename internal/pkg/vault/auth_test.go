package vault

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	testutils "github.com/jdillenkofer/signtool/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	testutils.SkipIfIntegration(t)

	assert.Equal(t, "https://vault.example.com:8200", NormalizeAddress("hcvault://vault.example.com:8200"))
	assert.Equal(t, "https://vault.example.com", NormalizeAddress("vault.example.com"))
	assert.Equal(t, "http://localhost:8200", NormalizeAddress("http://localhost:8200/"))
	assert.Equal(t, "https://vault:8200", NormalizeAddress("https://vault:8200"))
}

func TestNewClientIgnoresAmbientToken(t *testing.T) {
	testutils.SkipIfIntegration(t)
	t.Setenv("VAULT_TOKEN", "ambient-token")

	client, err := NewClient("http://localhost:8200", nil)
	require.NoError(t, err)
	assert.Empty(t, client.Token())
}

func TestAuthenticateWithAppRole(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/approle/login" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"auth": map[string]interface{}{
				"client_token":   "approle-token",
				"lease_duration": 100,
			},
		})
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, &tls.Config{InsecureSkipVerify: true})
	require.NoError(t, err)

	before := time.Now()
	token, expiry, err := AuthenticateWithAppRole(context.Background(), client, "role", "secret")
	require.NoError(t, err)
	assert.Equal(t, "approle-token", token)
	assert.WithinDuration(t, before.Add(80*time.Second), expiry, 5*time.Second)
}
