package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdillenkofer/signtool/internal/cryptography"
	"github.com/jdillenkofer/signtool/internal/http/httputils"
	"github.com/jdillenkofer/signtool/internal/http/middlewares"
	"github.com/jdillenkofer/signtool/internal/signing"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const applicationJsonContentType = "application/json"

type Server struct {
	signer   signing.Signer
	verifier signing.Verifier
}

type HashResult struct {
	Hash string `json:"hash"`
}

type SignResult struct {
	Signature string `json:"signature"`
	Hash      string `json:"hash"`
}

type VerifyResult struct {
	Valid bool `json:"valid"`
}

type ErrorResult struct {
	Error string `json:"error"`
}

// SetupServer wires the hash, sign and verify endpoints. A nil signer or verifier
// disables the corresponding endpoint. If a signer is present, every response body is
// signed as well. With requireSignedRequests set, every request must carry an
// X-Signature over its body that the verifier accepts.
func SetupServer(signer signing.Signer, verifier signing.Verifier, requireSignedRequests bool) http.Handler {
	server := &Server{
		signer:   signer,
		verifier: verifier,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /hash", server.hashHandler)
	mux.HandleFunc("POST /sign", server.signHandler)
	mux.HandleFunc("POST /verify", server.verifyHandler)
	var rootHandler http.Handler = mux
	if requireSignedRequests && verifier != nil {
		rootHandler = middlewares.MakeSignatureVerificationMiddleware(verifier, rootHandler)
	}
	if signer != nil {
		rootHandler = middlewares.MakeBodySigningMiddleware(signer, rootHandler)
	}
	rootHandler = makeRequestIdMiddleware(rootHandler)
	return rootHandler
}

func makeHealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("Healthy"))
	}
}

func SetupMonitoringServer() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", makeHealthCheckHandler())
	var rootHandler http.Handler = mux
	return rootHandler
}

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecordingResponseWriter) WriteHeader(code int) {
	if w.statusCode == 0 {
		w.statusCode = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func makeRequestIdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := ulid.Make().String()
		w.Header().Set(httputils.RequestIdHeader, requestId)
		sw := &statusRecordingResponseWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		if sw.statusCode == 0 {
			sw.statusCode = http.StatusOK
		}
		slog.Info(fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, sw.statusCode, time.Since(start)), "requestId", requestId)
	})
}

func writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", applicationJsonContentType)
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("Could not write response: %v", err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJson(w, statusCode, ErrorResult{Error: message})
}

func readRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := httputils.ReadBody(r.Body, httputils.DefaultMaxBodySize)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return nil, false
	}
	return body, true
}

func (s *Server) hashHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}
	writeJson(w, http.StatusOK, HashResult{Hash: cryptography.HashBody(body)})
}

func (s *Server) signHandler(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil {
		writeError(w, http.StatusNotFound, "no private key configured")
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}
	signature, err := s.signer.Sign(r.Context(), body)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not sign body: %v", err))
		writeError(w, http.StatusInternalServerError, "signing failed")
		return
	}
	writeJson(w, http.StatusOK, SignResult{
		Signature: cryptography.EncodeSignature(signature),
		Hash:      cryptography.HashBody(body),
	})
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeError(w, http.StatusNotFound, "no public key configured")
		return
	}
	signatureHeader := r.Header.Get(httputils.SignatureHeader)
	if signatureHeader == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %s header", httputils.SignatureHeader))
		return
	}
	body, ok := readRequestBody(w, r)
	if !ok {
		return
	}
	valid := false
	signature, err := cryptography.DecodeSignature(signatureHeader)
	if err == nil {
		valid = s.verifier.Verify(r.Context(), body, signature)
	}
	writeJson(w, http.StatusOK, VerifyResult{Valid: valid})
}
