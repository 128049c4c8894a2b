// Package auth provides password hashing and access token primitives.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Upper bounds accepted when decoding a stored hash. A tampered row must not
// be able to make Verify allocate gigabytes or spin for minutes.
const (
	maxArgon2Memory  = 1 << 20 // 1 GiB in KiB
	maxArgon2Time    = 16
	maxArgon2KeyLen  = 128
	minArgon2KeyLen  = 16
	minArgon2SaltLen = 8
)

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	// ErrEntropy indicates the system random source failed.
	ErrEntropy = errors.New("entropy source unavailable")
)

// PasswordHasher turns plaintext passwords into storable hashes and checks them.
type PasswordHasher interface {
	// Hash returns an encoded hash with a fresh random salt.
	Hash(password string) (string, error)
	// Verify reports whether password matches encoded. Malformed hashes never match.
	Verify(password, encoded string) bool
	// NeedsRehash reports whether encoded was produced with different parameters.
	NeedsRehash(encoded string) bool
}

// Argon2Params are the Argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params follow the OWASP 2024 recommended minimum.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    3,
		Memory:  64 * 1024, // 64 MB
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Argon2idHasher implements PasswordHasher using Argon2id in PHC string format.
type Argon2idHasher struct {
	params Argon2Params
	rand   func([]byte) (int, error)
}

// NewArgon2idHasher creates a hasher with the given parameters.
// Zero fields fall back to DefaultArgon2Params.
func NewArgon2idHasher(params Argon2Params) *Argon2idHasher {
	def := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	if params.SaltLen == 0 {
		params.SaltLen = def.SaltLen
	}
	if params.KeyLen == 0 {
		params.KeyLen = def.KeyLen
	}
	return &Argon2idHasher{params: params, rand: rand.Read}
}

// Params returns the parameters new hashes are produced with.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash creates an Argon2id hash of the given password.
// Returns the hash in PHC string format.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := h.rand(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w: %v", ErrEntropy, err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		h.params.KeyLen,
	)

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
// Uses constant-time comparison to prevent timing attacks.
func (h *Argon2idHasher) Verify(password, encoded string) bool {
	decoded, err := ParseHash(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(password),
		decoded.Salt,
		decoded.Params.Time,
		decoded.Params.Memory,
		decoded.Params.Threads,
		decoded.Params.KeyLen,
	)

	return subtle.ConstantTimeCompare(computed, decoded.Key) == 1
}

// NeedsRehash returns true if encoded is unparseable or uses other parameters.
func (h *Argon2idHasher) NeedsRehash(encoded string) bool {
	decoded, err := ParseHash(encoded)
	if err != nil {
		return true
	}
	p := decoded.Params
	return p.Time != h.params.Time ||
		p.Memory != h.params.Memory ||
		p.Threads != h.params.Threads ||
		p.KeyLen != h.params.KeyLen ||
		uint32(len(decoded.Salt)) != h.params.SaltLen
}

// DecodedHash is a parsed PHC Argon2id string.
type DecodedHash struct {
	Params Argon2Params
	Salt   []byte
	Key    []byte
}

// ParseHash decodes a PHC-formatted Argon2id hash and bounds-checks its parameters.
func ParseHash(encoded string) (*DecodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrInvalidHash
	}

	if parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, ErrIncompatibleVersion
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, ErrInvalidHash
	}
	if memory == 0 || memory > maxArgon2Memory || time == 0 || time > maxArgon2Time || threads == 0 || threads > 255 {
		return nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minArgon2SaltLen {
		return nil, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < minArgon2KeyLen || len(key) > maxArgon2KeyLen {
		return nil, ErrInvalidHash
	}

	return &DecodedHash{
		Params: Argon2Params{
			Time:    time,
			Memory:  memory,
			Threads: uint8(threads),
			SaltLen: uint32(len(salt)),
			KeyLen:  uint32(len(key)),
		},
		Salt: salt,
		Key:  key,
	}, nil
}
