package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a password hashing strategy.
type Algorithm string

const (
	AlgorithmBcrypt Algorithm = "bcrypt"
	AlgorithmArgon2 Algorithm = "argon2"
	AlgorithmSHA256 Algorithm = "sha256"
	// AlgorithmSimple stores the password as-is. Local development only.
	AlgorithmSimple Algorithm = "simple"
)

// HashService hashes and verifies passwords. The storage layer never touches
// passwords; hashing happens in the application service when server-side
// hashing is enabled, and verification backs the password request header.
type HashService interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// NewHashService returns the strategy for the configured algorithm,
// defaulting to bcrypt for unknown names.
func NewHashService(algorithm Algorithm) HashService {
	switch algorithm {
	case AlgorithmArgon2:
		return argonService{}
	case AlgorithmSHA256:
		return shaService{}
	case AlgorithmSimple:
		return simpleService{}
	default:
		return bcryptService{}
	}
}

type bcryptService struct{}

func (bcryptService) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (bcryptService) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// argon2id with the RFC 9106 low-memory parameters, encoded as salt:key hex.
type argonService struct{}

const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

func (argonService) Hash(plain string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%s:%s", hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

func (argonService) Verify(hash, plain string) bool {
	saltHex, keyHex, ok := strings.Cut(hash, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(computed, key) == 1
}

type shaService struct{}

func (shaService) Hash(plain string) (string, error) {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:]), nil
}

func (shaService) Verify(hash, plain string) bool {
	sum := sha256.Sum256([]byte(plain))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hash)) == 1
}

type simpleService struct{}

func (simpleService) Hash(plain string) (string, error) { return plain, nil }

func (simpleService) Verify(hash, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(plain)) == 1
}
