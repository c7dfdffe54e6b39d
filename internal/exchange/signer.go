package exchange

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Signer signs the query string of an authenticated request.
type Signer interface {
	Sign(payload string) (string, error)
}

// HMACSigner signs with HMAC-SHA256 over the secret key, hex encoded.
type HMACSigner struct {
	secretKey []byte
}

func NewHMACSigner(secretKey string) *HMACSigner {
	return &HMACSigner{secretKey: []byte(secretKey)}
}

func (s *HMACSigner) Sign(payload string) (string, error) {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Wipe clears the key from memory.
func (s *HMACSigner) Wipe() {
	for i := range s.secretKey {
		s.secretKey[i] = 0
	}
}

// Ed25519Signer signs with an Ed25519 private key, base64 encoded.
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func NewEd25519Signer(key ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{key: key}
}

// LoadEd25519Signer reads an unencrypted PKCS#8 PEM private key.
func LoadEd25519Signer(path string) (*Ed25519Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("private key: no PEM block found")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key: expected ed25519, got %T", parsed)
	}
	return NewEd25519Signer(key), nil
}

func (s *Ed25519Signer) Sign(payload string) (string, error) {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.key, []byte(payload))), nil
}

// NewSigner prefers the private key when its file exists, then the secret key.
func NewSigner(secretKey, privateKeyPath string) (Signer, error) {
	if privateKeyPath != "" {
		if _, err := os.Stat(privateKeyPath); err == nil {
			return LoadEd25519Signer(privateKeyPath)
		}
	}
	if secretKey != "" {
		return NewHMACSigner(secretKey), nil
	}
	return nil, errors.New("either a private key or a secret key must be set")
}
