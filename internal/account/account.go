// Package account implements the simulated one-time-code login and the user
// profile table. The fixed code is a development stand-in, not an
// authentication mechanism.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// DevCode is the only code Verify accepts
const DevCode = "123456"

// DefaultGender is used when a profile leaves gender blank
const DefaultGender = "Prefer not to say"

var (
	ErrEmptyIdentifier = errors.New("email or phone is required")
	ErrCodeNotSent     = errors.New("no verification code was requested")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrProfileRequired = errors.New("profile required for new user")
	ErrNotVerified     = errors.New("identifier has not been verified")
	ErrInvalidProfile  = errors.New("name and age are required")
	ErrNotSignedIn     = errors.New("not signed in")
	ErrUnknownLanguage = errors.New("unsupported language")
)

// ProfileInput holds the editable profile fields
type ProfileInput struct {
	Name           string `json:"name"`
	Age            string `json:"age"`
	Gender         string `json:"gender"`
	MedicalHistory string `json:"medicalHistory"`
	Language       string `json:"language"`
}

// Service manages login state and profiles
type Service struct {
	store    store.Store
	sessions *session.Manager
	audit    *audit.Logger
	logger   *zap.Logger
	newID    func() string

	mu       sync.Mutex
	sent     map[string]bool
	verified map[string]bool
}

// NewService creates the account service
func NewService(s store.Store, sessions *session.Manager, auditLogger *audit.Logger, logger *zap.Logger) *Service {
	return &Service{
		store:    s,
		sessions: sessions,
		audit:    auditLogger,
		logger:   logger,
		newID:    uuid.NewString,
		sent:     make(map[string]bool),
		verified: make(map[string]bool),
	}
}

// RequestCode simulates sending a verification code to identifier
func (s *Service) RequestCode(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ErrEmptyIdentifier
	}

	s.mu.Lock()
	s.sent[identifier] = true
	s.mu.Unlock()

	s.logger.Info("[DEV SIMULATION] verification code sent",
		zap.String("identifier", identifier),
		zap.String("code", DevCode),
	)
	return nil
}

// Verify checks the code. A known identifier is signed in and its profile
// returned; an unknown one gets ErrProfileRequired and may then Register.
func (s *Service) Verify(ctx context.Context, identifier, code string) (*model.UserProfile, error) {
	identifier = strings.TrimSpace(identifier)

	s.mu.Lock()
	sent := s.sent[identifier]
	s.mu.Unlock()
	if !sent {
		return nil, ErrCodeNotSent
	}
	if strings.TrimSpace(code) != DevCode {
		s.logger.Warn("verification failed", zap.String("identifier", identifier))
		return nil, ErrInvalidCode
	}

	s.mu.Lock()
	delete(s.sent, identifier)
	s.verified[identifier] = true
	s.mu.Unlock()

	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	profile, ok := users[identifier]
	if !ok {
		return nil, ErrProfileRequired
	}
	if err := s.activate(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Register creates the profile of a verified new user and signs them in
func (s *Service) Register(ctx context.Context, identifier string, in ProfileInput) (*model.UserProfile, error) {
	identifier = strings.TrimSpace(identifier)

	s.mu.Lock()
	verified := s.verified[identifier]
	s.mu.Unlock()
	if !verified {
		return nil, ErrNotVerified
	}
	if err := validateProfile(in); err != nil {
		return nil, err
	}

	profile := model.UserProfile{
		ID:         s.newID(),
		Identifier: identifier,
		Verified:   true,
	}
	applyProfile(&profile, in)

	if err := s.saveUser(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.audit.LogCreate(ctx, identifier, audit.ResourceUser, profile.ID); err != nil {
		s.logger.Error("Failed to log audit entry for registration", zap.Error(err))
	}
	if err := s.activate(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", identifier),
		zap.String("language", profile.Language),
	)
	return &profile, nil
}

// Restore signs back in the user recorded as active, if any
func (s *Service) Restore(ctx context.Context) (*model.UserProfile, error) {
	identifier, err := s.store.Get(ctx, store.ActiveUserKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active user: %w", err)
	}

	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	profile, ok := users[identifier]
	if !ok {
		s.logger.Warn("active user has no profile", zap.String("user_id", identifier))
		return nil, nil
	}
	s.sessions.Load(ctx, profile)
	return &profile, nil
}

// Current returns the signed-in user
func (s *Service) Current() (*model.UserProfile, error) {
	user := s.sessions.User()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	return user, nil
}

// Logout signs the user out, keeping their data
func (s *Service) Logout(ctx context.Context) error {
	user := s.sessions.User()
	if user == nil {
		return ErrNotSignedIn
	}
	s.sessions.Logout()
	if err := s.store.Remove(ctx, store.ActiveUserKey); err != nil {
		s.logger.Error("failed to clear active user", zap.Error(err))
	}
	if err := s.audit.Log(ctx, audit.Entry{UserID: user.Identifier, OperationType: audit.OperationLogout, ResourceType: audit.ResourceUser}); err != nil {
		s.logger.Error("Failed to log audit entry for logout", zap.Error(err))
	}
	return nil
}

// UpdateProfile replaces the editable fields of the signed-in user's profile
func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (*model.UserProfile, error) {
	user, err := s.Current()
	if err != nil {
		return nil, err
	}
	if err := validateProfile(in); err != nil {
		return nil, err
	}
	if in.Language == "" {
		in.Language = user.Language
	}
	applyProfile(user, in)
	return user, s.update(ctx, *user)
}

// SetLanguage changes the signed-in user's language. The choice takes effect
// in memory even if it cannot be persisted.
func (s *Service) SetLanguage(ctx context.Context, language string) (*model.UserProfile, error) {
	user, err := s.Current()
	if err != nil {
		return nil, err
	}
	if !locale.Supported(language) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}
	user.Language = locale.Lookup(language).Name
	s.sessions.SetUser(*user)
	if err := s.saveUser(ctx, *user); err != nil {
		s.logger.Error("Failed to update user language in storage", zap.Error(err))
	}
	return user, nil
}

func (s *Service) update(ctx context.Context, profile model.UserProfile) error {
	s.sessions.SetUser(profile)
	if err := s.saveUser(ctx, profile); err != nil {
		return err
	}
	if err := s.audit.LogUpdate(ctx, profile.Identifier, audit.ResourceProfile, profile.ID); err != nil {
		s.logger.Error("Failed to log audit entry for profile update", zap.Error(err))
	}
	return nil
}

func (s *Service) activate(ctx context.Context, profile model.UserProfile) error {
	if err := s.store.Set(ctx, store.ActiveUserKey, profile.Identifier); err != nil {
		return fmt.Errorf("failed to store active user: %w", err)
	}
	s.sessions.Load(ctx, profile)
	if err := s.audit.Log(ctx, audit.Entry{UserID: profile.Identifier, OperationType: audit.OperationLogin, ResourceType: audit.ResourceUser}); err != nil {
		s.logger.Error("Failed to log audit entry for login", zap.Error(err))
	}
	return nil
}

// users reads the profile table; an unreadable table counts as empty
func (s *Service) users(ctx context.Context) (map[string]model.UserProfile, error) {
	users := make(map[string]model.UserProfile)
	err := store.GetJSON(ctx, s.store, store.UsersKey, &users)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		s.logger.Error("failed to read user table", zap.Error(err))
		users = make(map[string]model.UserProfile)
	}
	return users, nil
}

func (s *Service) saveUser(ctx context.Context, profile model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	users[profile.Identifier] = profile
	if err := store.SetJSON(ctx, s.store, store.UsersKey, users); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

func validateProfile(in ProfileInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Age) == "" {
		return ErrInvalidProfile
	}
	if in.Language != "" && !locale.Supported(in.Language) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, in.Language)
	}
	return nil
}

func applyProfile(p *model.UserProfile, in ProfileInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Age = strings.TrimSpace(in.Age)
	p.Gender = strings.TrimSpace(in.Gender)
	if p.Gender == "" {
		p.Gender = DefaultGender
	}
	p.MedicalHistory = strings.TrimSpace(in.MedicalHistory)
	p.Language = locale.Lookup(in.Language).Name
}
