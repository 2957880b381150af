package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quietdrop/internal/cryptographic/kdf"
	"quietdrop/internal/errs"
	"quietdrop/internal/model"
	"quietdrop/internal/repository/account"
)

func newService(t *testing.T) (*Service, *account.MemoryRepo) {
	t.Helper()
	repo := account.NewMemoryRepo()
	svc, err := New(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestRegisterAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	acc, err := svc.Register(ctx, " alice ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Name)
	assert.Contains(t, acc.PasswordHash, "$"+acc.Salt+"$")

	ok, err := svc.Authenticate(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Authenticate(ctx, "alice", "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Authenticate(ctx, "mallory", "hunter2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Register(ctx, "bob", "pw")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "other")
	require.ErrorIs(t, err, account.ErrExists)
}

func TestRegister_Empty(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), "  ", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Register(context.Background(), "carol", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_MalformedStoredHash(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	require.NoError(t, repo.Create(ctx, &model.Account{Name: "eve", PasswordHash: "garbage"}))

	ok, err := svc.Authenticate(ctx, "eve", "pw")
	require.ErrorIs(t, err, errs.ErrMalformedInput)
	assert.False(t, ok)
}

func TestSaltFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt.txt")

	salt, err := kdf.GenerateSalt(kdf.DefaultParams)
	require.NoError(t, err)
	require.NoError(t, SaveSalt(path, salt))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, salt, string(raw))

	got, err := LoadSalt(path)
	require.NoError(t, err)
	assert.Equal(t, salt, got)

	// The stored salt reproduces the hash it was generated for.
	hash, err := kdf.HashPasswordWithSalt("pw", salt, kdf.DefaultParams)
	require.NoError(t, err)
	again, err := kdf.HashPasswordWithSalt("pw", got, kdf.DefaultParams)
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestSaltFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt.txt")
	require.Error(t, SaveSalt(path, "!!"))

	require.NoError(t, os.WriteFile(path, []byte("not a salt!"), 0o600))
	_, err := LoadSalt(path)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = LoadSalt(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegister_WritesSaltFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt.txt")
	svc, err := New(account.NewMemoryRepo(), WithSaltFile(path))
	require.NoError(t, err)

	acc, err := svc.Register(context.Background(), "dave", "pw")
	require.NoError(t, err)

	salt, err := LoadSalt(path)
	require.NoError(t, err)
	assert.Equal(t, acc.Salt, salt)
}
