package model

import (
	"encoding/base64"
	"fmt"
)

const KeySize = 32

type (
	// PublicKey is a Curve25519 public key. It travels on the wire as base64.
	PublicKey [KeySize]byte

	// SecretKey is a Curve25519 secret key. It never leaves its holder.
	SecretKey [KeySize]byte

	KeyPair struct {
		PublicKey PublicKey
		SecretKey SecretKey
	}
)

func (k PublicKey) MarshalText() ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(KeySize))
	base64.StdEncoding.Encode(out, k[:])
	return out, nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(raw, text)
	if err != nil {
		return fmt.Errorf("public key: %w", err)
	}
	if n != KeySize {
		return fmt.Errorf("public key: want %d bytes, got %d", KeySize, n)
	}
	copy(k[:], raw[:n])
	return nil
}

func (k PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

func (SecretKey) String() string {
	return "[redacted]"
}

// PublicKeyFromBytes copies b into a PublicKey, rejecting a wrong length.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != KeySize {
		return k, fmt.Errorf("public key: want %d bytes, got %d", KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// SecretKeyFromBytes copies b into a SecretKey, rejecting a wrong length.
func SecretKeyFromBytes(b []byte) (SecretKey, error) {
	var k SecretKey
	if len(b) != KeySize {
		return k, fmt.Errorf("secret key: want %d bytes, got %d", KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}
