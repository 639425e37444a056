package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mediguide/assistant/internal/store"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationRead   OperationType = "READ"
	OperationLogin  OperationType = "LOGIN"
	OperationLogout OperationType = "LOGOUT"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceUser       ResourceType = "user"
	ResourceProfile    ResourceType = "profile"
	ResourceSession    ResourceType = "chat_session"
	ResourceReport     ResourceType = "report"
	ResourceSymptomLog ResourceType = "symptom_log"
	ResourceReminder   ResourceType = "medication_reminder"
	ResourceUserData   ResourceType = "user_data"
)

// DefaultRetention is the number of entries kept per user
const DefaultRetention = 200

// Entry represents an audit log entry
type Entry struct {
	UserID         string                 `json:"userId"`
	OperationType  OperationType          `json:"operation"`
	ResourceType   ResourceType           `json:"resourceType"`
	ResourceID     string                 `json:"resourceId,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	IPAddress      string                 `json:"ipAddress,omitempty"`
	UserAgent      string                 `json:"userAgent,omitempty"`
	AdditionalData map[string]interface{} `json:"additionalData,omitempty"`
}

// Logger keeps a bounded per-user audit trail in the client store
type Logger struct {
	store     store.Store
	retention int
	logger    *zap.Logger

	mu sync.Mutex
}

// NewLogger creates a new audit logger
func NewLogger(s store.Store, logger *zap.Logger) *Logger {
	return &Logger{
		store:     s,
		retention: DefaultRetention,
		logger:    logger,
	}
}

// Log appends an audit entry, dropping the oldest beyond the retention limit
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.UserID == "" {
		return fmt.Errorf("audit entry requires a user id")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("Audit log entry",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx, entry.UserID)
	if err != nil {
		l.logger.Warn("Discarding unreadable audit trail", zap.String("user_id", entry.UserID), zap.Error(err))
		entries = nil
	}
	entries = append(entries, entry)
	if len(entries) > l.retention {
		entries = entries[len(entries)-l.retention:]
	}

	if err := store.SetJSON(ctx, l.store, store.AuditKey(entry.UserID), entries); err != nil {
		l.logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return err
	}
	return nil
}

// LogCreate logs a CREATE operation
func (l *Logger) LogCreate(ctx context.Context, userID string, resource ResourceType, resourceID string) error {
	return l.Log(ctx, Entry{UserID: userID, OperationType: OperationCreate, ResourceType: resource, ResourceID: resourceID})
}

// LogUpdate logs an UPDATE operation
func (l *Logger) LogUpdate(ctx context.Context, userID string, resource ResourceType, resourceID string) error {
	return l.Log(ctx, Entry{UserID: userID, OperationType: OperationUpdate, ResourceType: resource, ResourceID: resourceID})
}

// LogDelete logs a DELETE operation
func (l *Logger) LogDelete(ctx context.Context, userID string, resource ResourceType, resourceID string) error {
	return l.Log(ctx, Entry{UserID: userID, OperationType: OperationDelete, ResourceType: resource, ResourceID: resourceID})
}

// Entries retrieves up to limit audit entries for a user, newest first
func (l *Logger) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	l.mu.Lock()
	entries, err := l.read(ctx, userID)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

func (l *Logger) read(ctx context.Context, userID string) ([]Entry, error) {
	var entries []Entry
	err := store.GetJSON(ctx, l.store, store.AuditKey(userID), &entries)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return entries, err
}
