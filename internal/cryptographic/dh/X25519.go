package dh

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"quietdrop/internal/model"
)

// randReader is the entropy source for key generation. Tests may replace it.
var randReader io.Reader = rand.Reader

// GenerateKeyPair returns a fresh Curve25519 key pair for crypto_box.
// An unavailable entropy source is fatal and panics.
func GenerateKeyPair() model.KeyPair {
	pub, priv, err := box.GenerateKey(randReader)
	if err != nil {
		panic(fmt.Sprintf("dh: entropy source unavailable: %v", err))
	}
	return model.KeyPair{
		PublicKey: model.PublicKey(*pub),
		SecretKey: model.SecretKey(*priv),
	}
}

// PublicKeyFromSecret recomputes the public half of a persisted secret key.
func PublicKeyFromSecret(sk model.SecretKey) (model.PublicKey, error) {
	pub, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		return model.PublicKey{}, fmt.Errorf("curve25519.X25519: %w", err)
	}
	return model.PublicKeyFromBytes(pub)
}
