package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdillenkofer/signtool/internal/settings"
	"github.com/jdillenkofer/signtool/internal/signing"
	s3KeySource "github.com/jdillenkofer/signtool/internal/signing/s3"
	vaultKeySource "github.com/jdillenkofer/signtool/internal/signing/vault"
)

const vaultReferencePrefix = "vault:"

// openKeySource maps a key reference to its source: "vault:<secret path>",
// "s3://<bucket>/<key>" or anything NewPemSource accepts.
func openKeySource(ctx context.Context, s *settings.Settings, reference string) (signing.KeySource, error) {
	if secretPath, found := strings.CutPrefix(reference, vaultReferencePrefix); found {
		if s.VaultAddress() == "" {
			return nil, fmt.Errorf("key reference %s requires vaultAddress", reference)
		}
		return vaultKeySource.NewKeySource(s.VaultAddress(), s.VaultToken(), s.VaultRoleId(), s.VaultSecretId(), secretPath, s.VaultField(), nil)
	}
	if s3KeySource.IsURI(reference) {
		client, err := s3KeySource.NewClient(ctx, s.S3Region(), s.S3Endpoint(), s.S3AccessKeyId(), s.S3SecretAccessKey())
		if err != nil {
			return nil, err
		}
		return s3KeySource.NewKeySourceFromURI(client, reference)
	}
	return signing.NewPemSource(reference), nil
}

func loadKeyPEM(ctx context.Context, s *settings.Settings, reference string) (string, error) {
	source, err := openKeySource(ctx, s, reference)
	if err != nil {
		return "", err
	}
	return source.LoadPEM(ctx)
}

func loadSigner(ctx context.Context, s *settings.Settings) (*signing.RsaSigner, error) {
	source, err := openKeySource(ctx, s, s.PrivateKey())
	if err != nil {
		return nil, err
	}
	return signing.LoadSigner(ctx, source)
}

func loadVerifier(ctx context.Context, s *settings.Settings) (*signing.RsaVerifier, error) {
	source, err := openKeySource(ctx, s, s.PublicKey())
	if err != nil {
		return nil, err
	}
	return signing.LoadVerifier(ctx, source)
}
