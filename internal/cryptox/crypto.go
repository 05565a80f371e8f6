// Package cryptox holds the low-level password derivation primitives: argon2id
// key derivation and the PHC string format used to persist its output
// together with the salt and cost parameters.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned by ParseArgon2id for anything that is not a
// well-formed argon2id PHC string.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	MemoryKiB  uint32
	Iterations uint32
	Lanes      uint8
	SaltLen    uint32
	KeyLen     uint32
}

// DefaultArgon2Params are the parameters used for new password hashes.
var DefaultArgon2Params = Argon2Params{
	MemoryKiB:  64 * 1024,
	Iterations: 1,
	Lanes:      4,
	SaltLen:    16,
	KeyLen:     32,
}

var b64 = base64.RawStdEncoding

// GenerateRandByteArray returns size bytes from crypto/rand.
func GenerateRandByteArray(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeriveKey runs argon2id over password and salt with p.
func DeriveKey(password, salt []byte, p Argon2Params) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.MemoryKiB, p.Lanes, p.KeyLen)
}

// EncodeArgon2id renders a derived key in PHC format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
func EncodeArgon2id(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Iterations, p.Lanes,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

// ParseArgon2id is the inverse of EncodeArgon2id. The returned params carry
// SaltLen and KeyLen taken from the decoded values.
func ParseArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Lanes); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Lanes == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

// Equal compares a and b in constant time with respect to their contents.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
