package vault

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jdillenkofer/signtool/internal/cryptography"
	"github.com/jdillenkofer/signtool/internal/signing"
	testutils "github.com/jdillenkofer/signtool/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func newMockVault(t *testing.T, logins *atomic.Int32) *httptest.Server {
	return httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/approle/login":
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req["role_id"] != "my-role-id" || req["secret_id"] != "my-secret-id" {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			logins.Add(1)
			writeJson(w, map[string]interface{}{
				"auth": map[string]interface{}{
					"client_token":   "approle-token",
					"lease_duration": 3600,
					"renewable":      true,
				},
			})
		case "/v1/secret/data/signtool":
			if r.Header.Get("X-Vault-Token") != "approle-token" && r.Header.Get("X-Vault-Token") != "valid-token" {
				http.Error(w, "permission denied", http.StatusForbidden)
				return
			}
			writeJson(w, map[string]interface{}{
				"data": map[string]interface{}{
					"data": map[string]interface{}{
						"pem":    testutils.KnownPrivateKey,
						"number": 42,
					},
					"metadata": map[string]interface{}{
						"version": 1,
					},
				},
			})
		case "/v1/kv/signtool":
			if r.Header.Get("X-Vault-Token") != "valid-token" {
				http.Error(w, "permission denied", http.StatusForbidden)
				return
			}
			writeJson(w, map[string]interface{}{
				"data": map[string]interface{}{
					"publicKey": testutils.KnownPublicKey,
				},
			})
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":[]}`))
		}
	}))
}

func TestNewKeySourceValidatesAuthentication(t *testing.T) {
	testutils.SkipIfIntegration(t)

	_, err := NewKeySource("http://localhost:8200", "", "", "", "secret/data/signtool", "", nil)
	assert.Error(t, err)

	_, err = NewKeySource("http://localhost:8200", "token", "role", "secret", "secret/data/signtool", "", nil)
	assert.Error(t, err)

	_, err = NewKeySource("http://localhost:8200", "token", "", "", "", "", nil)
	assert.Error(t, err)

	source, err := NewKeySource("http://localhost:8200", "token", "", "", "secret/data/signtool", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultField, source.field)
}

func TestKeySourceReadsKvV2SecretWithToken(t *testing.T) {
	testutils.SkipIfIntegration(t)
	var logins atomic.Int32
	ts := newMockVault(t, &logins)
	defer ts.Close()

	tlsConfig := &tls.Config{InsecureSkipVerify: true}
	source, err := NewKeySource(ts.URL, "valid-token", "", "", "secret/data/signtool", "", tlsConfig)
	require.NoError(t, err)

	signer, err := signing.LoadSigner(context.Background(), source)
	require.NoError(t, err)
	signature, err := signer.Sign(context.Background(), []byte(testutils.KnownBody))
	require.NoError(t, err)
	assert.Equal(t, testutils.KnownBodyDigitalSignature, cryptography.EncodeSignature(signature))
	assert.Equal(t, int32(0), logins.Load())
}

func TestKeySourceReadsKvV1SecretField(t *testing.T) {
	testutils.SkipIfIntegration(t)
	var logins atomic.Int32
	ts := newMockVault(t, &logins)
	defer ts.Close()

	tlsConfig := &tls.Config{InsecureSkipVerify: true}
	source, err := NewKeySource(ts.URL, "valid-token", "", "", "kv/signtool", "publicKey", tlsConfig)
	require.NoError(t, err)

	pem, err := source.LoadPEM(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutils.KnownPublicKey, pem)
}

func TestKeySourceAuthenticatesWithAppRoleOnce(t *testing.T) {
	testutils.SkipIfIntegration(t)
	var logins atomic.Int32
	ts := newMockVault(t, &logins)
	defer ts.Close()

	tlsConfig := &tls.Config{InsecureSkipVerify: true}
	source, err := NewKeySource(ts.URL, "", "my-role-id", "my-secret-id", "secret/data/signtool", "pem", tlsConfig)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		pem, err := source.LoadPEM(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testutils.KnownPrivateKey, pem)
	}
	assert.Equal(t, int32(1), logins.Load())
}

func TestKeySourceReportsMissingData(t *testing.T) {
	testutils.SkipIfIntegration(t)
	var logins atomic.Int32
	ts := newMockVault(t, &logins)
	defer ts.Close()

	tlsConfig := &tls.Config{InsecureSkipVerify: true}

	source, err := NewKeySource(ts.URL, "valid-token", "", "", "secret/data/missing", "", tlsConfig)
	require.NoError(t, err)
	_, err = source.LoadPEM(context.Background())
	assert.ErrorIs(t, err, ErrSecretNotFound)

	source, err = NewKeySource(ts.URL, "valid-token", "", "", "secret/data/signtool", "other", tlsConfig)
	require.NoError(t, err)
	_, err = source.LoadPEM(context.Background())
	assert.ErrorIs(t, err, ErrFieldNotFound)

	source, err = NewKeySource(ts.URL, "valid-token", "", "", "secret/data/signtool", "number", tlsConfig)
	require.NoError(t, err)
	_, err = source.LoadPEM(context.Background())
	assert.Error(t, err)
}

func TestKeySourceFailsWithWrongAppRoleCredentials(t *testing.T) {
	testutils.SkipIfIntegration(t)
	var logins atomic.Int32
	ts := newMockVault(t, &logins)
	defer ts.Close()

	tlsConfig := &tls.Config{InsecureSkipVerify: true}
	source, err := NewKeySource(ts.URL, "", "my-role-id", "wrong", "secret/data/signtool", "", tlsConfig)
	require.NoError(t, err)
	_, err = source.LoadPEM(context.Background())
	assert.Error(t, err)
}
