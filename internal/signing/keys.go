package signing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pemPrefix = "-----BEGIN "

var ErrEmptyKeyInput = errors.New("empty key input")

// PemSource resolves key material given either as a file path or inline.
type PemSource struct {
	input string
}

func NewPemSource(input string) *PemSource {
	return &PemSource{input: input}
}

func (s *PemSource) LoadPEM(ctx context.Context) (string, error) {
	return loadPemData(s.input)
}

func loadPemData(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyKeyInput
	}

	// Try to read as file first
	var readErr error
	if !strings.HasPrefix(input, pemPrefix) {
		data, err := os.ReadFile(input)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		readErr = err
	}

	if strings.HasPrefix(input, pemPrefix) {
		// Env vars and json configs often carry the newlines escaped
		return strings.ReplaceAll(input, `\n`, "\n"), nil
	}

	// Keys stored as a single line are commonly base64 wrapped PEM.
	// If the input is neither, hand it on unchanged so the import reports it.
	decoded, err := base64.StdEncoding.DecodeString(input)
	if err == nil && strings.HasPrefix(strings.TrimSpace(string(decoded)), pemPrefix) {
		return strings.TrimSpace(string(decoded)), nil
	}
	if readErr != nil && looksLikePath(input) {
		return "", fmt.Errorf("failed to read key file: %w", readErr)
	}
	return input, nil
}

// looksLikePath reports whether input is meant as a file name. Base64 and PEM
// never contain a dot, so an extension or a relative prefix marks a path.
func looksLikePath(input string) bool {
	return filepath.Ext(input) != "" || strings.HasPrefix(input, "./") || strings.HasPrefix(input, "../")
}
