package auth

import (
	"fmt"

	"github.com/dmitrijs2005/blogd/internal/cryptox"
)

// PasswordHasher derives and checks argon2id password hashes. The zero value
// is not usable; construct with NewPasswordHasher.
type PasswordHasher struct {
	params cryptox.Argon2Params
}

func NewPasswordHasher(params cryptox.Argon2Params) *PasswordHasher {
	return &PasswordHasher{params: params}
}

// Hash derives a key from plaintext with a fresh random salt and returns it
// in PHC string form. The plaintext is never retained.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	salt, err := cryptox.GenerateRandByteArray(int(h.params.SaltLen))
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := cryptox.DeriveKey([]byte(plaintext), salt, h.params)
	return cryptox.EncodeArgon2id(h.params, salt, key), nil
}

// Verify re-derives the key using the parameters embedded in encoded. A
// malformed hash never verifies.
func (h *PasswordHasher) Verify(plaintext, encoded string) bool {
	p, salt, key, err := cryptox.ParseArgon2id(encoded)
	if err != nil {
		return false
	}
	candidate := cryptox.DeriveKey([]byte(plaintext), salt, p)
	return cryptox.Equal(candidate, key)
}
