package signing

import (
	"context"
	"fmt"

	"github.com/jdillenkofer/signtool/internal/cryptography"
)

type RsaSigner struct {
	priv *cryptography.PrivateKey
}

func NewRsaSigner(priv *cryptography.PrivateKey) *RsaSigner {
	return &RsaSigner{priv: priv}
}

func (s *RsaSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return s.priv.Sign(data)
}

func (s *RsaSigner) PrivateKey() *cryptography.PrivateKey {
	return s.priv
}

// PublicKey returns the public half of the signing key.
func (s *RsaSigner) PublicKey() *cryptography.PublicKey {
	return s.priv.Public()
}

type RsaVerifier struct {
	pub *cryptography.PublicKey
}

func NewRsaVerifier(pub *cryptography.PublicKey) *RsaVerifier {
	return &RsaVerifier{pub: pub}
}

func (v *RsaVerifier) PublicKey() *cryptography.PublicKey {
	return v.pub
}

func (v *RsaVerifier) Verify(ctx context.Context, data, signature []byte) bool {
	return v.pub.Verify(data, signature)
}

func LoadSigner(ctx context.Context, source KeySource) (*RsaSigner, error) {
	privateKeyPEM, err := source.LoadPEM(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	priv, err := cryptography.ImportPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to import private key: %w", err)
	}
	return NewRsaSigner(priv), nil
}

func LoadVerifier(ctx context.Context, source KeySource) (*RsaVerifier, error) {
	publicKeyPEM, err := source.LoadPEM(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	pub, err := cryptography.ImportPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to import public key: %w", err)
	}
	return NewRsaVerifier(pub), nil
}
