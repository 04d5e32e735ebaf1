package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jdillenkofer/signtool/internal/cryptography"
	"github.com/jdillenkofer/signtool/internal/http/httputils"
	"github.com/jdillenkofer/signtool/internal/signing"
)

var ErrMissingSignature = errors.New("missing signature header")
var ErrInvalidSignature = errors.New("invalid signature")

type signingTransport struct {
	signer signing.Signer
	next   http.RoundTripper
}

// NewSigningTransport returns a RoundTripper that attaches X-Body-Hash and
// X-Signature headers to every outgoing request. A nil next uses http.DefaultTransport.
func NewSigningTransport(signer signing.Signer, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &signingTransport{
		signer: signer,
		next:   next,
	}
}

func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := httputils.ReadBody(req.Body, httputils.DefaultMaxBodySize)
	if req.Body != nil {
		req.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	signature, err := t.signer.Sign(req.Context(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to sign request body: %w", err)
	}

	// RoundTrippers must not modify the caller's request
	signedReq := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		signedReq.Body = io.NopCloser(bytes.NewReader(body))
		signedReq.ContentLength = int64(len(body))
		signedReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	signedReq.Header.Set(httputils.BodyHashHeader, cryptography.HashBody(body))
	signedReq.Header.Set(httputils.SignatureHeader, cryptography.EncodeSignature(signature))
	return t.next.RoundTrip(signedReq)
}

// VerifyResponse checks the X-Signature header of resp against its body.
// The body is restored so it can be read again afterwards.
func VerifyResponse(ctx context.Context, verifier signing.Verifier, resp *http.Response) error {
	signatureHeader := resp.Header.Get(httputils.SignatureHeader)
	if signatureHeader == "" {
		return ErrMissingSignature
	}
	body, err := httputils.ReadBody(resp.Body, httputils.DefaultMaxBodySize)
	if resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	signature, err := cryptography.DecodeSignature(signatureHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !verifier.Verify(ctx, body, signature) {
		return ErrInvalidSignature
	}
	return nil
}
