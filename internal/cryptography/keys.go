package cryptography

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"slices"
)

const pemTypeRsaPrivateKey = "RSA PRIVATE KEY"
const pemTypePrivateKey = "PRIVATE KEY"
const pemTypeRsaPublicKey = "RSA PUBLIC KEY"
const pemTypePublicKey = "PUBLIC KEY"

var errNoKeyFound = errors.New("no supported PEM block found")
var errMultipleKeysFound = errors.New("more than one key found in PEM")
var errNotRsaKey = errors.New("key is not an RSA key")
var errKeyTooSmall = errors.New("rsa key is too small")

const minKeyBits = 1024

// PrivateKey is an imported RSA private key. It can only be created by ImportPrivateKey.
type PrivateKey struct {
	key *rsa.PrivateKey
}

// PublicKey is an imported RSA public key. It can only be created by ImportPublicKey
// or derived from a PrivateKey.
type PublicKey struct {
	key *rsa.PublicKey
}

func (k *PrivateKey) PublicOnly() bool {
	return false
}

func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: &k.key.PublicKey}
}

// Size returns the modulus size in bytes, which is also the signature length.
func (k *PrivateKey) Size() int {
	return k.key.Size()
}

func (k *PublicKey) PublicOnly() bool {
	return true
}

func (k *PublicKey) Size() int {
	return k.key.Size()
}

// ImportPrivateKey parses a PKCS#1 ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY")
// encoded RSA private key. Any failure is reported as an *InvalidArgumentError
// for PrivateKeyPEMParam.
func ImportPrivateKey(privateKeyPEM string) (*PrivateKey, error) {
	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, newInvalidArgumentError(PrivateKeyPEMParam, err)
	}
	return &PrivateKey{key: key}, nil
}

// ImportPublicKey parses a PKIX ("PUBLIC KEY") or PKCS#1 ("RSA PUBLIC KEY")
// encoded RSA public key. Any failure is reported as an *InvalidArgumentError
// for PublicKeyPEMParam.
func ImportPublicKey(publicKeyPEM string) (*PublicKey, error) {
	key, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return nil, newInvalidArgumentError(PublicKeyPEMParam, err)
	}
	return &PublicKey{key: key}, nil
}

func parsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, err := findSingleBlock(privateKeyPEM, pemTypeRsaPrivateKey, pemTypePrivateKey)
	if err != nil {
		return nil, err
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case pemTypeRsaPrivateKey:
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 private key: %w", err)
		}
	case pemTypePrivateKey:
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 private key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PrivateKey)
		if !ok {
			return nil, errNotRsaKey
		}
		key = rsaKey
	}

	if err := checkKeySize(&key.PublicKey); err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate private key: %w", err)
	}
	return key, nil
}

func checkKeySize(key *rsa.PublicKey) error {
	if key.N.BitLen() < minKeyBits {
		return fmt.Errorf("%w: %d bits, need at least %d", errKeyTooSmall, key.N.BitLen(), minKeyBits)
	}
	return nil
}

func parsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, err := findSingleBlock(publicKeyPEM, pemTypePublicKey, pemTypeRsaPublicKey)
	if err != nil {
		return nil, err
	}

	var key *rsa.PublicKey
	switch block.Type {
	case pemTypeRsaPublicKey:
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 public key: %w", err)
		}
	default:
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKIX public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, errNotRsaKey
		}
		key = rsaKey
	}

	if err := checkKeySize(key); err != nil {
		return nil, err
	}
	return key, nil
}

// findSingleBlock walks all PEM blocks in data and returns the only one whose type
// is in allowedTypes. Blocks with other types are ignored.
func findSingleBlock(data string, allowedTypes ...string) (*pem.Block, error) {
	rest := []byte(data)
	var found *pem.Block
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if !slices.Contains(allowedTypes, block.Type) {
			continue
		}
		if found != nil {
			return nil, errMultipleKeysFound
		}
		found = block
	}
	if found == nil {
		return nil, errNoKeyFound
	}
	if len(found.Headers) > 0 {
		// Proc-Type/DEK-Info headers mark legacy encrypted PEM, which we do not support.
		return nil, fmt.Errorf("unsupported PEM headers in %s block", found.Type)
	}
	return found, nil
}

