package host

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidKey indicates malformed signing key material.
var ErrInvalidKey = errors.New("host: invalid signing key")

// Ed25519Signer signs with an Ed25519 private key. Signatures are 64 bytes.
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

// NewEd25519Signer creates a signer from a 32-byte seed.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed is %d bytes, want %d: %w", len(seed), ed25519.SeedSize, ErrInvalidKey)
	}
	return &Ed25519Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// LoadEd25519Signer reads a hex-encoded 32-byte seed from path.
func LoadEd25519Signer(path string) (*Ed25519Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("host: read key file: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", ErrInvalidKey)
	}
	return NewEd25519Signer(seed)
}

// PublicKey returns the public half of the signing key.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// Sign implements Signer.
func (s *Ed25519Signer) Sign(data []byte) ([64]byte, error) {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(s.key, data))
	return sig, nil
}
