package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has no value
var ErrNotFound = errors.New("key not found")

// Store is durable key-value storage for client state.
// Values are opaque strings, JSON in practice. Every Set is durable before it returns.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ConditionalStore is implemented by backends that can write a key only if it
// is absent in a single atomic step
type ConditionalStore interface {
	Store
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
}

const keyPrefix = "mediGuide_"

// Logical keys
const (
	ActiveUserKey = keyPrefix + "activeUser"
	UsersKey      = keyPrefix + "users"
)

// SessionsKey holds the session index of a user
func SessionsKey(userID string) string { return keyPrefix + "sessions_" + userID }

// LegacyHistoryKey holds the single-thread transcript written by older clients
func LegacyHistoryKey(userID string) string { return keyPrefix + "chatHistory_" + userID }

// LegacyModeKey holds the mode of the legacy transcript
func LegacyModeKey(userID string) string { return keyPrefix + "chatMode_" + userID }

// SymptomLogsKey holds a user's symptom log
func SymptomLogsKey(userID string) string { return keyPrefix + "symptomLogs_" + userID }

// RemindersKey holds a user's medication reminders
func RemindersKey(userID string) string { return keyPrefix + "reminders_" + userID }

// AuditKey holds a user's audit trail
func AuditKey(userID string) string { return keyPrefix + "audit_" + userID }

// GetJSON reads key and decodes it into v
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

// SetIfAbsent writes value under key only when the key has no value.
// Backends without an atomic primitive fall back to check-then-write.
func SetIfAbsent(ctx context.Context, s Store, key, value string) (bool, error) {
	if cs, ok := s.(ConditionalStore); ok {
		return cs.SetIfAbsent(ctx, key, value)
	}
	_, err := s.Get(ctx, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := s.Set(ctx, key, value); err != nil {
		return false, err
	}
	return true, nil
}
