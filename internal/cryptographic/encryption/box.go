package encryption

import (
	"crypto/rand"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/nacl/box"

	"quietdrop/internal/errs"
	"quietdrop/internal/model"
)

const (
	NonceSize = 24
	Overhead  = box.Overhead
)

var randReader io.Reader = rand.Reader

// Encrypt seals plaintext for recipientPub with senderSec and returns
// nonce || box. A fresh random nonce is drawn on every call.
func Encrypt(plaintext string, recipientPub model.PublicKey, senderSec model.SecretKey) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(randReader, nonce[:]); err != nil {
		return nil, fmt.Errorf("rand.Read nonce: %w", err)
	}

	pub := [model.KeySize]byte(recipientPub)
	sec := [model.KeySize]byte(senderSec)
	return box.Seal(nonce[:], []byte(plaintext), &nonce, &pub, &sec), nil
}

// Decrypt opens nonce || box produced by Encrypt. It fails with
// errs.ErrMalformedInput when data cannot hold a nonce, with
// errs.ErrAuthenticationFailure when the box does not open and with
// errs.ErrEncoding when the plaintext is not UTF-8.
func Decrypt(data []byte, senderPub model.PublicKey, recipientSec model.SecretKey) (string, error) {
	if len(data) < NonceSize {
		return "", fmt.Errorf("ciphertext is %d bytes, need at least %d: %w", len(data), NonceSize, errs.ErrMalformedInput)
	}

	var nonce [NonceSize]byte
	copy(nonce[:], data[:NonceSize])
	pub := [model.KeySize]byte(senderPub)
	sec := [model.KeySize]byte(recipientSec)

	plain, ok := box.Open(nil, data[NonceSize:], &nonce, &pub, &sec)
	if !ok {
		return "", fmt.Errorf("box.Open: %w", errs.ErrAuthenticationFailure)
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("plaintext is not valid UTF-8: %w", errs.ErrEncoding)
	}
	return string(plain), nil
}
