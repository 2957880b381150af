package dh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerateKeyPair_Distinct(t *testing.T) {
	a := GenerateKeyPair()
	b := GenerateKeyPair()
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
	assert.NotEqual(t, a.SecretKey, b.SecretKey)
}

func TestPublicKeyFromSecret_MatchesGenerated(t *testing.T) {
	kp := GenerateKeyPair()
	pub, err := PublicKeyFromSecret(kp.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, pub)
}

func TestGenerateKeyPair_PanicsWithoutEntropy(t *testing.T) {
	prev := randReader
	randReader = failingReader{}
	t.Cleanup(func() { randReader = prev })

	assert.Panics(t, func() { GenerateKeyPair() })
}
