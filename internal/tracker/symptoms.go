// Package tracker keeps the symptom log and medication refill reminders.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

const (
	// DefaultFrequency is recorded when a log entry leaves frequency blank
	DefaultFrequency = "Intermittent"
	// OverviewLimit caps the per-symptom overview
	OverviewLimit = 5

	day = 24 * time.Hour
)

var (
	ErrEmptySymptom    = errors.New("symptom is required")
	ErrInvalidSeverity = errors.New("severity must be between 1 and 10")
	ErrNotFound        = errors.New("entry not found")
)

// Range limits logs to a recent window
type Range string

const (
	RangeAll   Range = "all"
	RangeWeek  Range = "7"
	RangeMonth Range = "30"
)

// AllSymptoms disables the symptom filter
const AllSymptoms = "All"

// Filter selects log entries
type Filter struct {
	Symptom string `form:"symptom"`
	Range   Range  `form:"range"`
}

// SymptomInput is a new log entry as submitted
type SymptomInput struct {
	Symptom   string    `json:"symptom"`
	Severity  int       `json:"severity"`
	Duration  string    `json:"duration"`
	Frequency string    `json:"frequency"`
	Notes     string    `json:"notes"`
	LoggedAt  time.Time `json:"loggedAt"`
}

// Stats summarizes a set of log entries
type Stats struct {
	AverageSeverity float64 `json:"averageSeverity"`
	MaxSeverity     int     `json:"maxSeverity"`
	Count           int     `json:"count"`
}

// SymptomSummary is one row of the per-symptom overview
type SymptomSummary struct {
	Symptom         string  `json:"symptom"`
	AverageSeverity float64 `json:"averageSeverity"`
	Count           int     `json:"count"`
}

// OverviewOrder ranks the overview
type OverviewOrder string

const (
	BySeverity  OverviewOrder = "severity"
	ByFrequency OverviewOrder = "frequency"
)

// Service stores symptom logs and reminders per user
type Service struct {
	store  store.Store
	audit  *audit.Logger
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

// NewService creates the tracker service
func NewService(s store.Store, auditLogger *audit.Logger, logger *zap.Logger) *Service {
	return &Service{
		store:  s,
		audit:  auditLogger,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// AddLog records a symptom observation
func (s *Service) AddLog(ctx context.Context, userID string, in SymptomInput) (model.SymptomLogEntry, error) {
	symptom := strings.TrimSpace(in.Symptom)
	if symptom == "" {
		return model.SymptomLogEntry{}, ErrEmptySymptom
	}
	if in.Severity < 1 || in.Severity > 10 {
		return model.SymptomLogEntry{}, ErrInvalidSeverity
	}
	loggedAt := in.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}
	frequency := strings.TrimSpace(in.Frequency)
	if frequency == "" {
		frequency = DefaultFrequency
	}

	entry := model.SymptomLogEntry{
		ID:        s.newID(),
		Timestamp: model.Millis(loggedAt),
		Symptom:   symptom,
		Severity:  in.Severity,
		Duration:  strings.TrimSpace(in.Duration),
		Frequency: frequency,
		Notes:     strings.TrimSpace(in.Notes),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logs := s.loadLogs(ctx, userID)
	logs = append(logs, entry)
	sortLogs(logs)
	if err := store.SetJSON(ctx, s.store, store.SymptomLogsKey(userID), logs); err != nil {
		return model.SymptomLogEntry{}, fmt.Errorf("failed to save symptom log: %w", err)
	}

	if err := s.audit.LogCreate(ctx, userID, audit.ResourceSymptomLog, entry.ID); err != nil {
		s.logger.Error("Failed to log audit entry for symptom log", zap.Error(err))
	}
	s.logger.Info("symptom logged",
		zap.String("user_id", userID),
		zap.String("symptom", symptom),
		zap.Int("severity", in.Severity),
	)
	return entry, nil
}

// DeleteLog removes one entry
func (s *Service) DeleteLog(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := s.loadLogs(ctx, userID)
	kept := logs[:0]
	for _, l := range logs {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(logs) {
		return ErrNotFound
	}
	if err := store.SetJSON(ctx, s.store, store.SymptomLogsKey(userID), kept); err != nil {
		return fmt.Errorf("failed to save symptom log: %w", err)
	}
	if err := s.audit.LogDelete(ctx, userID, audit.ResourceSymptomLog, id); err != nil {
		s.logger.Error("Failed to log audit entry for symptom log deletion", zap.Error(err))
	}
	return nil
}

// Logs returns the user's entries matching f, newest first
func (s *Service) Logs(ctx context.Context, userID string, f Filter) []model.SymptomLogEntry {
	s.mu.Lock()
	logs := s.loadLogs(ctx, userID)
	s.mu.Unlock()
	return Apply(logs, f, s.now())
}

// Symptoms lists the distinct symptom names the user has logged
func (s *Service) Symptoms(ctx context.Context, userID string) []string {
	s.mu.Lock()
	logs := s.loadLogs(ctx, userID)
	s.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	for _, l := range logs {
		if !seen[l.Symptom] {
			seen[l.Symptom] = true
			names = append(names, l.Symptom)
		}
	}
	sort.Strings(names)
	return names
}

// loadLogs reads the log; unreadable data counts as empty
func (s *Service) loadLogs(ctx context.Context, userID string) []model.SymptomLogEntry {
	var logs []model.SymptomLogEntry
	err := store.GetJSON(ctx, s.store, store.SymptomLogsKey(userID), &logs)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("Failed to load logs", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	sortLogs(logs)
	return logs
}

func sortLogs(logs []model.SymptomLogEntry) {
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp > logs[j].Timestamp })
}

// Apply filters logs by symptom name and recency relative to now
func Apply(logs []model.SymptomLogEntry, f Filter, now time.Time) []model.SymptomLogEntry {
	var cutoff int64
	switch f.Range {
	case RangeWeek:
		cutoff = model.Millis(now.Add(-7 * day))
	case RangeMonth:
		cutoff = model.Millis(now.Add(-30 * day))
	}

	out := []model.SymptomLogEntry{}
	for _, l := range logs {
		if f.Symptom != "" && f.Symptom != AllSymptoms && l.Symptom != f.Symptom {
			continue
		}
		if cutoff > 0 && l.Timestamp < cutoff {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Summarize computes severity stats; nil for no entries
func Summarize(logs []model.SymptomLogEntry) *Stats {
	if len(logs) == 0 {
		return nil
	}
	total, maxSev := 0, 0
	for _, l := range logs {
		total += l.Severity
		if l.Severity > maxSev {
			maxSev = l.Severity
		}
	}
	return &Stats{
		AverageSeverity: round1(float64(total) / float64(len(logs))),
		MaxSeverity:     maxSev,
		Count:           len(logs),
	}
}

// Overview aggregates logs per symptom and returns the top entries
func Overview(logs []model.SymptomLogEntry, order OverviewOrder) []SymptomSummary {
	type agg struct{ total, count int }
	bySymptom := make(map[string]*agg)
	var names []string
	for _, l := range logs {
		a, ok := bySymptom[l.Symptom]
		if !ok {
			a = &agg{}
			bySymptom[l.Symptom] = a
			names = append(names, l.Symptom)
		}
		a.total += l.Severity
		a.count++
	}

	out := make([]SymptomSummary, 0, len(names))
	for _, name := range names {
		a := bySymptom[name]
		out = append(out, SymptomSummary{
			Symptom:         name,
			AverageSeverity: round1(float64(a.total) / float64(a.count)),
			Count:           a.count,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == ByFrequency {
			return out[i].Count > out[j].Count
		}
		return out[i].AverageSeverity > out[j].AverageSeverity
	})
	if len(out) > OverviewLimit {
		out = out[:OverviewLimit]
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
