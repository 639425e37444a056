package store

import (
	"context"
	"fmt"

	"github.com/mediguide/assistant/internal/security"
)

// EncryptedStore encrypts values before handing them to the wrapped store.
// Keys are left in the clear so lookups stay possible.
type EncryptedStore struct {
	inner     Store
	encryptor *security.Encryptor
}

// NewEncryptedStore wraps inner with AES-256-GCM value encryption
func NewEncryptedStore(inner Store, encryptor *security.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, encryptor: encryptor}
}

func (s *EncryptedStore) Get(ctx context.Context, key string) (string, error) {
	ciphertext, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	plaintext, err := s.encryptor.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return plaintext, nil
}

func (s *EncryptedStore) Set(ctx context.Context, key, value string) error {
	ciphertext, err := s.encryptor.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, ciphertext)
}

func (s *EncryptedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *EncryptedStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	ciphertext, err := s.encryptor.Encrypt(value)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return SetIfAbsent(ctx, s.inner, key, ciphertext)
}

var _ ConditionalStore = (*EncryptedStore)(nil)
