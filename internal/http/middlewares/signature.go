package middlewares

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jdillenkofer/signtool/internal/cryptography"
	"github.com/jdillenkofer/signtool/internal/http/httputils"
	"github.com/jdillenkofer/signtool/internal/signing"
)

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(message))
}

// MakeSignatureVerificationMiddleware rejects requests whose body does not match
// the base64 signature in the X-Signature header.
func MakeSignatureVerificationMiddleware(verifier signing.Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signatureHeader := r.Header.Get(httputils.SignatureHeader)
		if signatureHeader == "" {
			writeUnauthorized(w, "missing signature")
			return
		}
		signature, err := cryptography.DecodeSignature(signatureHeader)
		if err != nil {
			writeUnauthorized(w, "invalid signature")
			return
		}
		body, err := httputils.ReadAndRestoreRequestBody(r, httputils.DefaultMaxBodySize)
		if err != nil {
			slog.Warn(fmt.Sprintf("Could not read request body: %v", err))
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		if !verifier.Verify(r.Context(), body, signature) {
			writeUnauthorized(w, "invalid signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type bufferingResponseWriter struct {
	http.ResponseWriter
	body       bytes.Buffer
	statusCode int
}

func (w *bufferingResponseWriter) WriteHeader(code int) {
	if w.statusCode == 0 {
		w.statusCode = code
	}
}

func (w *bufferingResponseWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.body.Write(b)
}

// MakeBodySigningMiddleware buffers the response of next and attaches
// X-Body-Hash and X-Signature headers computed over the buffered body.
func MakeBodySigningMiddleware(signer signing.Signer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw := &bufferingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(bw, r)
		if bw.statusCode == 0 {
			bw.statusCode = http.StatusOK
		}

		body := bw.body.Bytes()
		signature, err := signer.Sign(r.Context(), body)
		if err != nil {
			slog.Error(fmt.Sprintf("Could not sign response body: %v", err))
			w.Header().Del("Content-Length")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("signing failed"))
			return
		}
		w.Header().Set(httputils.BodyHashHeader, cryptography.HashBody(body))
		w.Header().Set(httputils.SignatureHeader, cryptography.EncodeSignature(signature))
		w.WriteHeader(bw.statusCode)
		w.Write(body)
	})
}
