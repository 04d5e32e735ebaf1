package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jdillenkofer/signtool/internal/signing"
	testutils "github.com/jdillenkofer/signtool/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKeyResponse = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>missing.pem</Key></Error>`

func newMockS3(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/keys/signtool/public.pem":
			w.Header().Set("Content-Type", "application/x-pem-file")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(testutils.KnownPublicKey))
		case "/keys/huge.pem":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(strings.Repeat("A", maxObjectSize+10)))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(noSuchKeyResponse))
		}
	}))
}

func TestKeySourceLoadsPublicKey(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ts := newMockS3(t)
	defer ts.Close()
	ctx := context.Background()

	client, err := NewClient(ctx, "eu-central-1", ts.URL, "accessKeyId", "secretAccessKey")
	require.NoError(t, err)
	source, err := NewKeySourceFromURI(client, "s3://keys/signtool/public.pem")
	require.NoError(t, err)

	verifier, err := signing.LoadVerifier(ctx, source)
	require.NoError(t, err)
	assert.NotNil(t, verifier)
}

func TestKeySourceReportsMissingKey(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ts := newMockS3(t)
	defer ts.Close()
	ctx := context.Background()

	client, err := NewClient(ctx, "eu-central-1", ts.URL, "accessKeyId", "secretAccessKey")
	require.NoError(t, err)
	_, err = NewKeySource(client, "keys", "missing.pem").LoadPEM(ctx)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeySourceRejectsLargeObjects(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ts := newMockS3(t)
	defer ts.Close()
	ctx := context.Background()

	client, err := NewClient(ctx, "eu-central-1", ts.URL, "accessKeyId", "secretAccessKey")
	require.NoError(t, err)
	_, err = NewKeySource(client, "keys", "huge.pem").LoadPEM(ctx)
	assert.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestParseURI(t *testing.T) {
	testutils.SkipIfIntegration(t)

	bucket, key, err := ParseURI("s3://bucket/path/to/key.pem")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "path/to/key.pem", key)

	for _, uri := range []string{"bucket/key", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := ParseURI(uri)
		assert.ErrorIs(t, err, ErrInvalidURI, uri)
	}

	assert.True(t, IsURI("s3://bucket/key"))
	assert.False(t, IsURI("/etc/key.pem"))
}
