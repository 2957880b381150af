package kdf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"quietdrop/internal/errs"
)

const algorithm = "argon2id"

// Upper bounds accepted from a stored hash string.
const (
	maxTime    = 64
	maxMemory  = 1 << 20 // KiB
	maxThreads = 64
	maxKeyLen  = 1024
)

// Params is the Argon2id cost configuration. Hash and verify must agree on
// it; verify reads it back from the PHC string.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams is the v1 password configuration.
var DefaultParams = Params{
	Time:    3,
	Memory:  4096,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

var (
	b64        = base64.RawStdEncoding
	randReader io.Reader = rand.Reader
)

func (p Params) Validate() error {
	switch {
	case p.Time < 1 || p.Time > maxTime:
		return fmt.Errorf("argon2 time cost %d out of range: %w", p.Time, errs.ErrConfiguration)
	case p.Threads < 1 || p.Threads > maxThreads:
		return fmt.Errorf("argon2 parallelism %d out of range: %w", p.Threads, errs.ErrConfiguration)
	case p.Memory < 8*uint32(p.Threads) || p.Memory > maxMemory:
		return fmt.Errorf("argon2 memory %d KiB out of range: %w", p.Memory, errs.ErrConfiguration)
	case p.KeyLen < 4 || p.KeyLen > maxKeyLen:
		return fmt.Errorf("argon2 output length %d out of range: %w", p.KeyLen, errs.ErrConfiguration)
	case p.SaltLen < 8:
		return fmt.Errorf("argon2 salt length %d too short: %w", p.SaltLen, errs.ErrConfiguration)
	}
	return nil
}

// GenerateSalt returns p.SaltLen random bytes as an unpadded base64 string.
func GenerateSalt(p Params) (string, error) {
	raw := make([]byte, p.SaltLen)
	if _, err := io.ReadFull(randReader, raw); err != nil {
		return "", fmt.Errorf("rand.Read salt: %w", err)
	}
	return b64.EncodeToString(raw), nil
}

// HashPassword hashes password under DefaultParams with a fresh salt and
// returns the PHC hash string and the salt.
func HashPassword(password string) (hash string, salt string, err error) {
	if err := DefaultParams.Validate(); err != nil {
		return "", "", err
	}
	salt, err = GenerateSalt(DefaultParams)
	if err != nil {
		return "", "", err
	}
	hash, err = HashPasswordWithSalt(password, salt, DefaultParams)
	if err != nil {
		return "", "", err
	}
	return hash, salt, nil
}

// HashPasswordWithSalt is the deterministic form of HashPassword.
func HashPasswordWithSalt(password, salt string, p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	rawSalt, err := DecodeSalt(salt)
	if err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), rawSalt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version, p.Memory, p.Time, p.Threads, salt, b64.EncodeToString(key)), nil
}

// VerifyPassword re-derives password with the parameters embedded in hash
// and compares in constant time. A mismatch is (false, nil); only a
// structurally invalid hash returns an error.
func VerifyPassword(hash, password string) (bool, error) {
	p, rawSalt, want, err := decode(hash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), rawSalt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// DecodeSalt validates a salt string and returns its raw bytes.
func DecodeSalt(salt string) ([]byte, error) {
	raw, err := b64.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("salt is not unpadded base64: %w", errs.ErrMalformedInput)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("salt is %d bytes, need at least 8: %w", len(raw), errs.ErrMalformedInput)
	}
	return raw, nil
}

func decode(hash string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("hash has %d fields: %w", len(parts), errs.ErrMalformedInput)
	}
	if parts[1] != algorithm {
		return p, nil, nil, fmt.Errorf("unsupported algorithm %q: %w", parts[1], errs.ErrMalformedInput)
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, fmt.Errorf("unsupported version %q: %w", parts[2], errs.ErrMalformedInput)
	}

	var err error
	if p, err = parseParams(parts[3]); err != nil {
		return p, nil, nil, err
	}

	rawSalt, err := DecodeSalt(parts[4])
	if err != nil {
		return p, nil, nil, err
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("hash is not unpadded base64: %w", errs.ErrMalformedInput)
	}
	p.SaltLen = len(rawSalt)
	p.KeyLen = uint32(len(key))

	if err := p.Validate(); err != nil {
		return p, nil, nil, fmt.Errorf("%v: %w", err, errs.ErrMalformedInput)
	}
	return p, rawSalt, key, nil
}

// parseParams reads exactly "m=<KiB>,t=<passes>,p=<lanes>" in that order.
func parseParams(field string) (Params, error) {
	var p Params

	kvs := strings.Split(field, ",")
	if len(kvs) != 3 {
		return p, fmt.Errorf("bad parameters %q: %w", field, errs.ErrMalformedInput)
	}

	var vals [3]uint64
	for i, name := range []string{"m", "t", "p"} {
		k, v, ok := strings.Cut(kvs[i], "=")
		if !ok || k != name {
			return p, fmt.Errorf("bad parameters %q: %w", field, errs.ErrMalformedInput)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return p, fmt.Errorf("bad parameter %s=%q: %w", name, v, errs.ErrMalformedInput)
		}
		vals[i] = n
	}
	if vals[2] > maxThreads {
		return p, fmt.Errorf("parallelism %d out of range: %w", vals[2], errs.ErrMalformedInput)
	}

	p.Memory = uint32(vals[0])
	p.Time = uint32(vals[1])
	p.Threads = uint8(vals[2])
	return p, nil
}
