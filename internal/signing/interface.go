package signing

import "context"

type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

type Verifier interface {
	Verify(ctx context.Context, data, signature []byte) bool
}

// KeySource supplies PEM encoded key material.
type KeySource interface {
	LoadPEM(ctx context.Context) (string, error)
}
