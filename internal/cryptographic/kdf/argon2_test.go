package kdf

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"quietdrop/internal/errs"
)

var phc = regexp.MustCompile(`^\$argon2id\$v=19\$m=4096,t=3,p=1\$[A-Za-z0-9+/]{22}\$[A-Za-z0-9+/]{43}$`)

func TestDefaultParamsValid(t *testing.T) {
	require.NoError(t, DefaultParams.Validate())
}

func TestHashPassword_Format(t *testing.T) {
	hash, salt, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Regexp(t, phc, hash)
	assert.Contains(t, hash, "$"+salt+"$")
}

func TestHashPassword_DeterministicWithSameSalt(t *testing.T) {
	salt, err := GenerateSalt(DefaultParams)
	require.NoError(t, err)

	first, err := HashPasswordWithSalt("pw", salt, DefaultParams)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := HashPasswordWithSalt("pw", salt, DefaultParams)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHashPassword_UniqueWithFreshSalts(t *testing.T) {
	const n = 5
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		hash, _, err := HashPassword("pw")
		require.NoError(t, err)
		seen[hash] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestHashPassword_MatchesArgon2id(t *testing.T) {
	salt := "c29tZXNhbHRzb21lc2FsdA"
	raw, err := DecodeSalt(salt)
	require.NoError(t, err)

	hash, err := HashPasswordWithSalt("pw", salt, DefaultParams)
	require.NoError(t, err)

	key := argon2.IDKey([]byte("pw"), raw, 3, 4096, 1, 32)
	assert.True(t, strings.HasSuffix(hash, "$"+b64.EncodeToString(key)))
}

func TestVerifyPassword(t *testing.T) {
	hash, _, err := HashPassword("s3cret")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, wrong := range []string{"", "s3cre", "s3cret ", "S3cret"} {
		ok, err := VerifyPassword(hash, wrong)
		require.NoError(t, err)
		assert.False(t, ok, wrong)
	}
}

func TestVerifyPassword_UsesEmbeddedParams(t *testing.T) {
	p := Params{Time: 1, Memory: 64, Threads: 2, KeyLen: 16, SaltLen: 8}
	salt, err := GenerateSalt(p)
	require.NoError(t, err)
	hash, err := HashPasswordWithSalt("pw", salt, p)
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	hash, _, err := HashPassword("pw")
	require.NoError(t, err)
	parts := strings.Split(hash, "$")

	cases := map[string]string{
		"empty":          "",
		"plain text":     "not a hash",
		"wrong algo":     strings.Replace(hash, "argon2id", "argon2i", 1),
		"wrong version":  strings.Replace(hash, "v=19", "v=16", 1),
		"bad params":     strings.Replace(hash, "m=4096,t=3,p=1", "m=x,t=3,p=1", 1),
		"huge memory":    strings.Replace(hash, "m=4096", "m=99999999", 1),
		"zero time":      strings.Replace(hash, "t=3", "t=0", 1),
		"bad salt":       strings.Join([]string{"", parts[1], parts[2], parts[3], "!!", parts[5]}, "$"),
		"short salt":     strings.Join([]string{"", parts[1], parts[2], parts[3], "AAAA", parts[5]}, "$"),
		"bad key":        strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], "%%%"}, "$"),
		"missing fields": strings.Join(parts[:5], "$"),
		"version suffix": strings.Replace(hash, "v=19", "v=19junk", 1),
		"extra param":    strings.Replace(hash, "m=4096,t=3,p=1", "m=4096,t=3,p=1,x=garbage", 1),
		"param suffix":   strings.Replace(hash, "p=1", "p=1x", 1),
		"param order":    strings.Replace(hash, "m=4096,t=3,p=1", "t=3,m=4096,p=1", 1),
		"signed param":   strings.Replace(hash, "t=3", "t=-3", 1),
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := VerifyPassword(h, "pw")
			require.ErrorIs(t, err, errs.ErrMalformedInput)
			assert.False(t, ok)
		})
	}
}

func TestParamsValidate_Invalid(t *testing.T) {
	cases := []Params{
		{Time: 0, Memory: 4096, Threads: 1, KeyLen: 32, SaltLen: 16},
		{Time: 3, Memory: 4, Threads: 1, KeyLen: 32, SaltLen: 16},
		{Time: 3, Memory: 4096, Threads: 0, KeyLen: 32, SaltLen: 16},
		{Time: 3, Memory: 4096, Threads: 1, KeyLen: 2, SaltLen: 16},
		{Time: 3, Memory: 4096, Threads: 1, KeyLen: 32, SaltLen: 4},
	}
	for _, p := range cases {
		require.ErrorIs(t, p.Validate(), errs.ErrConfiguration)
		_, err := HashPasswordWithSalt("pw", "c29tZXNhbHRzb21lc2FsdA", p)
		require.ErrorIs(t, err, errs.ErrConfiguration)
	}
}
