// Package credential stores and checks account passwords with Argon2id.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"quietdrop/internal/cryptographic/kdf"
	"quietdrop/internal/model"
	"quietdrop/internal/repository/account"
	"quietdrop/internal/utils/log"
)

var ErrInvalidCredentials = errors.New("name and password must not be empty")

type (
	Service struct {
		accounts account.Store
		saltFile string
		// dummyHash is verified against for unknown names so a lookup
		// miss costs the same as a wrong password.
		dummyHash string
	}

	Option func(*Service)
)

// WithSaltFile makes Register also write each new salt to path.
func WithSaltFile(path string) Option {
	return func(s *Service) { s.saltFile = path }
}

func New(accounts account.Store, opts ...Option) (*Service, error) {
	if err := kdf.DefaultParams.Validate(); err != nil {
		return nil, err
	}
	hash, _, err := kdf.HashPassword("quietdrop-dummy")
	if err != nil {
		return nil, err
	}
	s := &Service{
		accounts:  accounts,
		dummyHash: hash,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Service) Register(ctx context.Context, name, password string) (*model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, salt, err := kdf.HashPassword(password)
	if err != nil {
		return nil, err
	}

	acc := &model.Account{
		Name:         name,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}

	if s.saltFile != "" {
		if err := SaveSalt(s.saltFile, salt); err != nil {
			log.Warn("save salt failed", zap.String("path", s.saltFile), zap.Error(err))
		}
	}

	log.Info("account registered", zap.String("name", name))
	return acc, nil
}

// Authenticate reports whether password matches the stored hash for name.
// Unknown names return false, not an error.
func (s *Service) Authenticate(ctx context.Context, name, password string) (bool, error) {
	acc, err := s.accounts.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}

	if acc == nil {
		_, _ = kdf.VerifyPassword(s.dummyHash, password)
		return false, nil
	}

	ok, err := kdf.VerifyPassword(acc.PasswordHash, password)
	if err != nil {
		log.Error("stored hash is malformed", zap.String("name", acc.Name), zap.Error(err))
		return false, err
	}
	return ok, nil
}

// SaveSalt writes salt to path as raw bytes.
func SaveSalt(path, salt string) error {
	if _, err := kdf.DecodeSalt(salt); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.WriteString(salt); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSalt reads a salt written by SaveSalt.
func LoadSalt(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	salt := string(b)
	if _, err := kdf.DecodeSalt(salt); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return salt, nil
}
