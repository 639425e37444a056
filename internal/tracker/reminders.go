package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

var (
	ErrEmptyMedication = errors.New("medication name is required")
	ErrInvalidQuantity = errors.New("quantity and daily dose must be positive")
)

// ReminderInput is a new reminder as submitted
type ReminderInput struct {
	MedicationName string `json:"medicationName"`
	TotalQuantity  int    `json:"totalQuantity"`
	DosagePerDay   int    `json:"dosagePerDay"`
	Notes          string `json:"notes"`
}

// ReminderStatus is a reminder with its countdown evaluated
type ReminderStatus struct {
	model.MedicationReminder
	DaysRemaining    int     `json:"daysRemaining"`
	PercentRemaining float64 `json:"percentRemaining"`
}

// DaysLasting is how many whole days a pack lasts
func DaysLasting(total, perDay int) int {
	if perDay <= 0 {
		return 0
	}
	return total / perDay
}

// RefillDate is the day a pack started at start runs out
func RefillDate(start time.Time, total, perDay int) time.Time {
	return start.Add(time.Duration(DaysLasting(total, perDay)) * day)
}

// DaysRemaining counts partial days as whole ones and never goes negative
func DaysRemaining(refill, now time.Time) int {
	days := int(math.Ceil(float64(refill.Sub(now)) / float64(day)))
	if days < 0 {
		return 0
	}
	return days
}

// AddReminder starts tracking a medication pack from now
func (s *Service) AddReminder(ctx context.Context, userID string, in ReminderInput) (model.MedicationReminder, error) {
	name := strings.TrimSpace(in.MedicationName)
	if name == "" {
		return model.MedicationReminder{}, ErrEmptyMedication
	}
	if in.TotalQuantity <= 0 || in.DosagePerDay <= 0 {
		return model.MedicationReminder{}, ErrInvalidQuantity
	}

	now := s.now()
	reminder := model.MedicationReminder{
		ID:             s.newID(),
		MedicationName: name,
		TotalQuantity:  in.TotalQuantity,
		DosagePerDay:   in.DosagePerDay,
		StartDate:      model.Millis(now),
		RefillDate:     model.Millis(RefillDate(now, in.TotalQuantity, in.DosagePerDay)),
		Notes:          strings.TrimSpace(in.Notes),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := s.loadReminders(ctx, userID)
	reminders = append(reminders, reminder)
	if err := store.SetJSON(ctx, s.store, store.RemindersKey(userID), reminders); err != nil {
		return model.MedicationReminder{}, fmt.Errorf("failed to save reminders: %w", err)
	}
	if err := s.audit.LogCreate(ctx, userID, audit.ResourceReminder, reminder.ID); err != nil {
		s.logger.Error("Failed to log audit entry for reminder", zap.Error(err))
	}

	s.logger.Info("medication reminder added",
		zap.String("user_id", userID),
		zap.String("medication", name),
		zap.Int("days_lasting", DaysLasting(in.TotalQuantity, in.DosagePerDay)),
	)
	return reminder, nil
}

// Reminders returns the user's reminders in creation order with countdowns
func (s *Service) Reminders(ctx context.Context, userID string) []ReminderStatus {
	s.mu.Lock()
	reminders := s.loadReminders(ctx, userID)
	s.mu.Unlock()

	now := s.now()
	out := make([]ReminderStatus, 0, len(reminders))
	for _, r := range reminders {
		left := DaysRemaining(time.UnixMilli(r.RefillDate), now)
		percent := 0.0
		if total := DaysLasting(r.TotalQuantity, r.DosagePerDay); total > 0 {
			percent = math.Max(0, math.Min(100, float64(left)/float64(total)*100))
		}
		out = append(out, ReminderStatus{MedicationReminder: r, DaysRemaining: left, PercentRemaining: percent})
	}
	return out
}

// DeleteReminder removes one reminder
func (s *Service) DeleteReminder(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders := s.loadReminders(ctx, userID)
	kept := reminders[:0]
	for _, r := range reminders {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(reminders) {
		return ErrNotFound
	}
	if err := store.SetJSON(ctx, s.store, store.RemindersKey(userID), kept); err != nil {
		return fmt.Errorf("failed to save reminders: %w", err)
	}
	if err := s.audit.LogDelete(ctx, userID, audit.ResourceReminder, id); err != nil {
		s.logger.Error("Failed to log audit entry for reminder deletion", zap.Error(err))
	}
	return nil
}

func (s *Service) loadReminders(ctx context.Context, userID string) []model.MedicationReminder {
	var reminders []model.MedicationReminder
	err := store.GetJSON(ctx, s.store, store.RemindersKey(userID), &reminders)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("Failed to load reminders", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return reminders
}
