package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	algorithms := []Algorithm{AlgorithmBcrypt, AlgorithmArgon2, AlgorithmSHA256, AlgorithmSimple}

	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			svc := NewHashService(alg)

			hash, err := svc.Hash("s3cret")
			require.NoError(t, err)
			assert.NotEmpty(t, hash)

			assert.True(t, svc.Verify(hash, "s3cret"))
			assert.False(t, svc.Verify(hash, "wrong"))
		})
	}
}

func TestBcryptAndArgonAreSalted(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmBcrypt, AlgorithmArgon2} {
		t.Run(string(alg), func(t *testing.T) {
			svc := NewHashService(alg)
			h1, err := svc.Hash("s3cret")
			require.NoError(t, err)
			h2, err := svc.Hash("s3cret")
			require.NoError(t, err)
			assert.NotEqual(t, h1, h2, "salted hashes of the same input must differ")
		})
	}
}

func TestSHA256IsDeterministic(t *testing.T) {
	svc := NewHashService(AlgorithmSHA256)
	h1, err := svc.Hash("s3cret")
	require.NoError(t, err)
	h2, err := svc.Hash("s3cret")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSimpleStoresPlaintext(t *testing.T) {
	svc := NewHashService(AlgorithmSimple)
	hash, err := svc.Hash("s3cret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", hash)
}

func TestArgonRejectsMalformedHash(t *testing.T) {
	svc := NewHashService(AlgorithmArgon2)
	assert.False(t, svc.Verify("not-a-valid-encoding", "s3cret"))
	assert.False(t, svc.Verify("zz:zz", "s3cret"))
}

func TestUnknownAlgorithmDefaultsToBcrypt(t *testing.T) {
	svc := NewHashService("unknown")
	hash, err := svc.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, NewHashService(AlgorithmBcrypt).Verify(hash, "s3cret"))
}
