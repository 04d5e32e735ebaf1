package httputils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const SignatureHeader = "X-Signature"
const BodyHashHeader = "X-Body-Hash"
const RequestIdHeader = "X-Request-Id"

// DefaultMaxBodySize bounds how much of a body is buffered for hashing and signing.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

var ErrBodyTooLarge = errors.New("body too large")

// ReadBody reads at most maxBodySize bytes from body. A nil body is treated as empty.
func ReadBody(body io.Reader, maxBodySize int64) ([]byte, error) {
	if body == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBodySize)
	}
	return data, nil
}

// ReadAndRestoreRequestBody reads the request body and replaces it so downstream
// handlers can read it again.
func ReadAndRestoreRequestBody(r *http.Request, maxBodySize int64) ([]byte, error) {
	data, err := ReadBody(r.Body, maxBodySize)
	if err != nil {
		return nil, err
	}
	if r.Body != nil {
		r.Body.Close()
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))
	return data, nil
}
