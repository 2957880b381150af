package keyfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"quietdrop/internal/cryptographic/dh"
	"quietdrop/internal/model"
)

const (
	PublicKeyFile = "server_public_key.key"
	SecretKeyFile = "server_secret_key.key"
)

// LoadOrCreate returns the key pair stored in dir. When no secret key file
// exists a fresh pair is generated and written. The public key file is
// always rewritten from the secret key.
func LoadOrCreate(dir string) (kp model.KeyPair, created bool, err error) {
	sk, err := ReadSecretKey(filepath.Join(dir, SecretKeyFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		kp = dh.GenerateKeyPair()
		created = true
	case err != nil:
		return kp, false, err
	default:
		pub, err := dh.PublicKeyFromSecret(sk)
		if err != nil {
			return kp, false, err
		}
		kp = model.KeyPair{PublicKey: pub, SecretKey: sk}
	}

	if err := WriteKeyPair(dir, kp); err != nil {
		return kp, created, err
	}
	return kp, created, nil
}

func WriteKeyPair(dir string, kp model.KeyPair) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, SecretKeyFile), kp.SecretKey[:], 0o600); err != nil {
		return fmt.Errorf("write secret key: %w", err)
	}
	if err := writeFile(filepath.Join(dir, PublicKeyFile), kp.PublicKey[:], 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

func ReadPublicKey(path string) (model.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.PublicKey{}, err
	}
	return model.PublicKeyFromBytes(b)
}

func ReadSecretKey(path string) (model.SecretKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.SecretKey{}, err
	}
	return model.SecretKeyFromBytes(b)
}

// FindPublicKey looks for the server public key in dir and up to two
// parent directories.
func FindPublicKey(dir string) (model.PublicKey, string, error) {
	var lastErr error
	for _, rel := range []string{".", "..", filepath.Join("..", "..")} {
		path := filepath.Join(dir, rel, PublicKeyFile)
		pk, err := ReadPublicKey(path)
		if err == nil {
			return pk, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			lastErr = fmt.Errorf("%s: %w", path, err)
		}
	}
	if lastErr != nil {
		return model.PublicKey{}, "", lastErr
	}
	return model.PublicKey{}, "", fmt.Errorf("%s not found from %s: %w", PublicKeyFile, dir, os.ErrNotExist)
}

// writeFile writes b to a temp file in the same directory and renames it
// over path.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
