package testutil

import (
	"gitdrop/internal/drop"
	"gitdrop/internal/encryption"
)

// NewTestEncryptor creates a deterministic encryptor that needs no keys.
func NewTestEncryptor() drop.Encryptor {
	return encryption.NewTestEncryptor()
}
