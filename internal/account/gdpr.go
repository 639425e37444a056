package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// UserDataExport represents all user data for export
type UserDataExport struct {
	User        model.UserProfile          `json:"user"`
	Sessions    []model.ChatSession        `json:"sessions"`
	SymptomLogs []model.SymptomLogEntry    `json:"symptomLogs"`
	Reminders   []model.MedicationReminder `json:"reminders"`
	AuditTrail  []audit.Entry              `json:"auditTrail"`
	ExportedAt  time.Time                  `json:"exportedAt"`
}

// ExportData bundles everything stored for the signed-in user as JSON
func (s *Service) ExportData(ctx context.Context) ([]byte, error) {
	user, err := s.Current()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Starting user data export", zap.String("user_id", user.Identifier))

	export := UserDataExport{
		User:        *user,
		Sessions:    []model.ChatSession{},
		SymptomLogs: []model.SymptomLogEntry{},
		Reminders:   []model.MedicationReminder{},
		ExportedAt:  time.Now(),
	}

	sources := []struct {
		key  string
		dest any
	}{
		{store.SessionsKey(user.Identifier), &export.Sessions},
		{store.SymptomLogsKey(user.Identifier), &export.SymptomLogs},
		{store.RemindersKey(user.Identifier), &export.Reminders},
	}
	for _, src := range sources {
		err := store.GetJSON(ctx, s.store, src.key, src.dest)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to read %s: %w", src.key, err)
		}
	}

	export.AuditTrail, err = s.audit.Entries(ctx, user.Identifier, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}

	if err := s.audit.Log(ctx, audit.Entry{UserID: user.Identifier, OperationType: audit.OperationRead, ResourceType: audit.ResourceUserData}); err != nil {
		s.logger.Error("Failed to log audit entry for data export", zap.Error(err))
	}

	s.logger.Info("User data export completed",
		zap.String("user_id", user.Identifier),
		zap.Int("export_size_bytes", len(data)),
	)
	return data, nil
}

// DeleteData erases the signed-in user's profile, conversations and logs,
// then signs them out. The audit trail is kept.
func (s *Service) DeleteData(ctx context.Context) error {
	user, err := s.Current()
	if err != nil {
		return err
	}
	s.logger.Info("Starting user data deletion", zap.String("user_id", user.Identifier))

	keys := []string{
		store.SessionsKey(user.Identifier),
		store.LegacyHistoryKey(user.Identifier),
		store.LegacyModeKey(user.Identifier),
		store.SymptomLogsKey(user.Identifier),
		store.RemindersKey(user.Identifier),
	}
	for _, key := range keys {
		if err := s.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	s.mu.Lock()
	users, err := s.users(ctx)
	if err == nil {
		delete(users, user.Identifier)
		err = store.SetJSON(ctx, s.store, store.UsersKey, users)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.sessions.Logout()
	if err := s.store.Remove(ctx, store.ActiveUserKey); err != nil {
		return fmt.Errorf("failed to clear active user: %w", err)
	}

	if err := s.audit.LogDelete(ctx, user.Identifier, audit.ResourceUserData, user.ID); err != nil {
		s.logger.Error("Failed to log audit entry for user deletion", zap.Error(err))
	}

	s.logger.Info("User data deletion completed", zap.String("user_id", user.Identifier))
	return nil
}
