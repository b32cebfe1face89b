package password

import "errors"

// Algorithm names accepted by New.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

var (
	// ErrEmptyPassword is returned by Hash for a blank secret.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrUnsupportedAlgorithm is returned by New and by Verify for foreign hash formats.
	ErrUnsupportedAlgorithm = errors.New("unsupported password hash algorithm")
	// ErrMalformedHash is returned by Verify when the stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher derives and checks stored credential hashes. Verify must compare in
// constant time with respect to the secret.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Config selects an algorithm and its cost parameters.
type Config struct {
	Algorithm string

	// argon2id
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int

	// bcrypt
	BcryptCost int
}

// New builds the Hasher named by cfg.Algorithm ("argon2id" when empty).
func New(cfg Config) (Hasher, error) {
	switch cfg.Algorithm {
	case "", AlgorithmArgon2id:
		return NewArgon2(cfg)
	case AlgorithmBcrypt:
		return NewBcrypt(cfg.BcryptCost)
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}
