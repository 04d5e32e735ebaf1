package cryptography

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
)

// All signatures are RSASSA-PKCS1-v1_5 over SHA-256. The scheme is deterministic,
// so a (body, key) pair always produces the same signature.
const signatureHash = crypto.SHA256

var textEncoding = base64.StdEncoding

// HashBody returns the base64 encoded SHA-256 digest of body.
func HashBody(body []byte) string {
	digest := sha256.Sum256(body)
	return textEncoding.EncodeToString(digest[:])
}

// EncodeSignature returns the base64 wire form of signature.
func EncodeSignature(signature []byte) string {
	return textEncoding.EncodeToString(signature)
}

// DecodeSignature parses the base64 wire form of a signature.
func DecodeSignature(signatureBase64 string) ([]byte, error) {
	return textEncoding.DecodeString(signatureBase64)
}

func (k *PrivateKey) Sign(body []byte) ([]byte, error) {
	digest := sha256.Sum256(body)
	// rand is unused for PKCS#1 v1.5
	return rsa.SignPKCS1v15(nil, k.key, signatureHash, digest[:])
}

func (k *PublicKey) Verify(body []byte, signature []byte) bool {
	if len(signature) != k.key.Size() {
		return false
	}
	digest := sha256.Sum256(body)
	return rsa.VerifyPKCS1v15(k.key, signatureHash, digest[:], signature) == nil
}

// GenerateDigitalSignature imports privateKeyPEM and signs body with it.
func GenerateDigitalSignature(body []byte, privateKeyPEM string) ([]byte, error) {
	privateKey, err := ImportPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return privateKey.Sign(body)
}

// VerifyDigitalSignature reports whether signatureBase64 is a valid signature of body
// for publicKeyPEM. An error is only returned if publicKeyPEM can not be imported;
// undecodable or mismatching signatures simply yield false.
func VerifyDigitalSignature(signatureBase64 string, body []byte, publicKeyPEM string) (bool, error) {
	publicKey, err := ImportPublicKey(publicKeyPEM)
	if err != nil {
		return false, err
	}
	signature, err := DecodeSignature(signatureBase64)
	if err != nil {
		return false, nil
	}
	return publicKey.Verify(body, signature), nil
}
