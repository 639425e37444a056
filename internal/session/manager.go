// Package session owns the active conversation and the per-user sessions index.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/store"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoUser is returned when an operation needs a signed-in user
	ErrNoUser = errors.New("no active user")
	// ErrNoActiveSession is returned when no conversation is open
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionNotFound is returned for an unknown session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrMessageNotFound is returned when a pending message is no longer present
	ErrMessageNotFound = errors.New("message not found")
)

const (
	// NewSessionPreview is the preview of a session with only its greeting
	NewSessionPreview = "New conversation started"
	// CareSessionTitle titles a session opened by the find-care shortcut
	CareSessionTitle = "Nearby Care"
	// LegacySessionTitle titles the session migrated from single-thread history
	LegacySessionTitle = "Previous Chat"

	legacyPreview     = "Chat history"
	greetingReasoning = "Initial greeting"
)

// Conversation is a snapshot of the active conversation
type Conversation struct {
	SessionID string          `json:"sessionId,omitempty"`
	Mode      model.Mode      `json:"mode,omitempty"`
	Messages  []model.Message `json:"messages"`
}

// Manager owns the active conversation and the sessions index of the
// signed-in user. Every mutation that should survive a reload is written
// through to the store before the call returns; store failures are logged
// and the in-memory state stays authoritative.
type Manager struct {
	store      store.Store
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
	migrations singleflight.Group

	mu       sync.Mutex
	user     *model.UserProfile
	sessions []model.ChatSession
	activeID string
	mode     model.Mode
}

// NewManager creates a session manager over s
func NewManager(s store.Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:  s,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Load signs user in: migrates legacy history once, loads the sessions index
// and clears the active conversation
func (m *Manager) Load(ctx context.Context, user model.UserProfile) {
	if err := m.MigrateLegacy(ctx, user.Identifier); err != nil {
		m.logger.Warn("legacy history migration failed",
			zap.String("user_id", user.Identifier),
			zap.Error(err),
		)
	}

	sessions := m.readIndex(ctx, user.Identifier)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	m.sessions = sessions
	m.activeID = ""
	m.mode = ""

	m.logger.Info("sessions loaded",
		zap.String("user_id", user.Identifier),
		zap.Int("session_count", len(sessions)),
	)
}

// SetUser replaces the cached profile of the signed-in user, e.g. after a
// language change
func (m *Manager) SetUser(user model.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil && m.user.Identifier == user.Identifier {
		m.user = &user
	}
}

// User returns the signed-in user, or nil
func (m *Manager) User() *model.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Logout drops the user and all in-memory state. Persisted data is kept.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.sessions = nil
	m.activeID = ""
	m.mode = ""
}

// Reset closes the active conversation without touching persisted data
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeID = ""
	m.mode = ""
}

// CreateSession starts a session in mode seeded with a localized greeting,
// makes it active and persists the index
func (m *Manager) CreateSession(ctx context.Context, mode model.Mode) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("invalid mode: %q", mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return "", ErrNoUser
	}

	sess := m.newSession(mode)
	m.sessions = append([]model.ChatSession{sess}, m.sessions...)
	m.activeID = sess.ID
	m.mode = mode
	m.persistLocked(ctx)

	m.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(mode)),
	)
	return sess.ID, nil
}

// StartCareSession cold-starts a SYMPTOM session for the find-care shortcut:
// greeting and the user's request are added in one step
func (m *Manager) StartCareSession(ctx context.Context, text string) (string, model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return "", model.Message{}, ErrNoUser
	}

	sess := m.newSession(model.ModeSymptom)
	userMsg := model.Message{
		ID:        m.newID(),
		Role:      model.RoleUser,
		Text:      text,
		Timestamp: model.Millis(m.now()),
	}
	sess.Messages = append(sess.Messages, userMsg)
	sess.Title = CareSessionTitle
	sess.PlaceholderTitle = false
	sess.Preview = Truncate(text, PreviewLimit)

	m.sessions = append([]model.ChatSession{sess}, m.sessions...)
	m.activeID = sess.ID
	m.mode = model.ModeSymptom
	m.persistLocked(ctx)

	m.logger.Info("care session created", zap.String("session_id", sess.ID))
	return sess.ID, userMsg, nil
}

func (m *Manager) newSession(mode model.Mode) model.ChatSession {
	now := model.Millis(m.now())
	greeting := model.Message{
		ID:   m.newID(),
		Role: model.RoleModel,
		Result: &model.StructuredResult{
			Advice:            locale.Greeting(m.user.Language, m.user.Name),
			Urgency:           model.UrgencyLow,
			Reasoning:         greetingReasoning,
			FollowUpQuestions: []string{},
		},
		Timestamp: now,
		State:     model.MessageResolved,
	}

	return model.ChatSession{
		ID:               m.newID(),
		UserID:           m.user.Identifier,
		Mode:             mode,
		Title:            locale.ModeTitle(m.user.Language, mode),
		PlaceholderTitle: true,
		Preview:          NewSessionPreview,
		Timestamp:        now,
		Messages:         []model.Message{greeting},
	}
}

// SelectSession makes an existing session the active conversation
func (m *Manager) SelectSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return ErrNoUser
	}
	i := m.indexLocked(id)
	if i < 0 {
		return ErrSessionNotFound
	}
	m.activeID = id
	m.mode = m.sessions[i].Mode
	return nil
}

// Active returns a snapshot of the active conversation
func (m *Manager) Active() Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := Conversation{SessionID: m.activeID, Mode: m.mode, Messages: []model.Message{}}
	if i := m.indexLocked(m.activeID); i >= 0 {
		conv.Messages = append(conv.Messages, m.sessions[i].Messages...)
	}
	return conv
}

// Sessions returns a copy of the sessions index, most recent first
func (m *Manager) Sessions() []model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.ChatSession, len(m.sessions))
	for i, s := range m.sessions {
		s.Messages = append([]model.Message(nil), s.Messages...)
		out[i] = s
	}
	return out
}

// AppendAndPersist appends msg to the active session, refreshes its preview
// from previewSource (msg content when empty), derives the title from the
// first user message while the title is still the placeholder, re-sorts the
// index and persists it
func (m *Manager) AppendAndPersist(ctx context.Context, msg model.Message, previewSource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(m.activeID)
	if i < 0 {
		return ErrNoActiveSession
	}
	m.sessions[i].Messages = append(m.sessions[i].Messages, msg)
	if previewSource == "" {
		previewSource = msg.Content()
	}
	m.touchLocked(ctx, i, previewSource)
	return nil
}

// AddPending appends an in-flight placeholder to the active session. The
// placeholder lives in memory only.
func (m *Manager) AddPending(msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(m.activeID)
	if i < 0 {
		return ErrNoActiveSession
	}
	msg.Role = model.RoleModel
	msg.State = model.MessagePending
	m.sessions[i].Messages = append(m.sessions[i].Messages, msg)
	return nil
}

// UpdatePending replaces the text of a pending message in place
func (m *Manager) UpdatePending(id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	si, mi := m.findMessageLocked(id)
	if mi < 0 || !m.sessions[si].Messages[mi].IsPending() {
		return ErrMessageNotFound
	}
	m.sessions[si].Messages[mi].Text = text
	return nil
}

// ReplacePending swaps a pending message for its resolved form, keeping the
// id and position, then refreshes and persists the session
func (m *Manager) ReplacePending(ctx context.Context, id string, resolved model.Message, previewSource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	si, mi := m.findMessageLocked(id)
	if mi < 0 || !m.sessions[si].Messages[mi].IsPending() {
		return ErrMessageNotFound
	}
	resolved.ID = id
	resolved.State = model.MessageResolved
	m.sessions[si].Messages[mi] = resolved
	if previewSource == "" {
		previewSource = resolved.Content()
	}
	m.touchLocked(ctx, si, previewSource)
	return nil
}

// RemoveMessage drops a pending message, restoring the conversation to its
// state before the placeholder was added
func (m *Manager) RemoveMessage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	si, mi := m.findMessageLocked(id)
	if mi < 0 {
		return ErrMessageNotFound
	}
	msgs := m.sessions[si].Messages
	m.sessions[si].Messages = append(msgs[:mi:mi], msgs[mi+1:]...)
	return nil
}

// touchLocked applies the bookkeeping that follows a session change
func (m *Manager) touchLocked(ctx context.Context, i int, previewSource string) {
	sess := &m.sessions[i]
	sess.Timestamp = model.Millis(m.now())
	sess.Preview = Truncate(previewSource, PreviewLimit)

	if sess.PlaceholderTitle {
		for _, msg := range sess.Messages {
			if msg.Role == model.RoleUser && msg.Text != "" {
				sess.Title = Truncate(msg.Text, TitleLimit)
				sess.PlaceholderTitle = false
				break
			}
		}
	}

	sortSessions(m.sessions)
	m.persistLocked(ctx)
}

func (m *Manager) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// findMessageLocked locates a message by id, searching the active session
// first. A reply keeps resolving into its own session after the user switches.
func (m *Manager) findMessageLocked(id string) (int, int) {
	active := m.indexLocked(m.activeID)
	if active >= 0 {
		if mi := messageIndex(m.sessions[active].Messages, id); mi >= 0 {
			return active, mi
		}
	}
	for si := range m.sessions {
		if si == active {
			continue
		}
		if mi := messageIndex(m.sessions[si].Messages, id); mi >= 0 {
			return si, mi
		}
	}
	return -1, -1
}

func messageIndex(msgs []model.Message, id string) int {
	for i, msg := range msgs {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// sortSessions orders by last activity, most recent first. Ties keep their
// relative order.
func sortSessions(sessions []model.ChatSession) {
	sort.SliceStable(sessions, func(a, b int) bool {
		return sessions[a].Timestamp > sessions[b].Timestamp
	})
}

// persistLocked writes the whole index for the signed-in user. Pending
// placeholders are never written.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.user == nil {
		return
	}

	out := make([]model.ChatSession, len(m.sessions))
	for i, s := range m.sessions {
		msgs := make([]model.Message, 0, len(s.Messages))
		for _, msg := range s.Messages {
			if !msg.IsPending() {
				msgs = append(msgs, msg)
			}
		}
		s.Messages = msgs
		out[i] = s
	}

	if err := store.SetJSON(ctx, m.store, store.SessionsKey(m.user.Identifier), out); err != nil {
		m.logger.Error("failed to persist sessions",
			zap.String("user_id", m.user.Identifier),
			zap.Int("session_count", len(out)),
			zap.Error(err),
		)
	}
}

// readIndex loads a user's sessions; a missing or unreadable index is empty
func (m *Manager) readIndex(ctx context.Context, userID string) []model.ChatSession {
	var sessions []model.ChatSession
	err := store.GetJSON(ctx, m.store, store.SessionsKey(userID), &sessions)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		m.logger.Error("failed to load sessions, starting empty",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	sortSessions(sessions)
	return sessions
}

// MigrateLegacy wraps a user's single-thread history into a first session.
// It only acts when no sessions index exists; concurrent calls for a user
// share one run, and the write itself only lands if the index is still absent.
func (m *Manager) MigrateLegacy(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	_, err, _ := m.migrations.Do(userID, func() (interface{}, error) {
		return nil, m.migrateLegacy(ctx, userID)
	})
	return err
}

func (m *Manager) migrateLegacy(ctx context.Context, userID string) error {
	_, err := m.store.Get(ctx, store.SessionsKey(userID))
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check sessions index: %w", err)
	}

	history, err := m.store.Get(ctx, store.LegacyHistoryKey(userID))
	if err != nil {
		return ignoreNotFound(err)
	}
	legacyMode, err := m.store.Get(ctx, store.LegacyModeKey(userID))
	if err != nil {
		return ignoreNotFound(err)
	}
	if history == "" || history == "[]" {
		return nil
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(history), &messages); err != nil {
		return fmt.Errorf("failed to decode legacy history: %w", err)
	}
	for i := range messages {
		if messages[i].State == "" {
			messages[i].State = model.MessageResolved
		}
	}

	preview := legacyPreview
	if n := len(messages); n > 0 && messages[n-1].Text != "" {
		preview = Truncate(messages[n-1].Text, PreviewLimit)
	}

	sess := model.ChatSession{
		ID:        m.newID(),
		UserID:    userID,
		Mode:      legacyModeOf(legacyMode),
		Title:     LegacySessionTitle,
		Preview:   preview,
		Timestamp: model.Millis(m.now()),
		Messages:  messages,
	}

	data, err := json.Marshal([]model.ChatSession{sess})
	if err != nil {
		return fmt.Errorf("failed to encode migrated session: %w", err)
	}
	wrote, err := store.SetIfAbsent(ctx, m.store, store.SessionsKey(userID), string(data))
	if err != nil {
		return fmt.Errorf("failed to store migrated session: %w", err)
	}

	m.logger.Info("legacy history migrated",
		zap.String("user_id", userID),
		zap.Int("message_count", len(messages)),
		zap.Bool("written", wrote),
	)
	return nil
}

// legacyModeOf maps the old single-thread mode; the retired lab report mode
// becomes MEDICINE
func legacyModeOf(s string) model.Mode {
	if s == "LAB_REPORT" {
		return model.ModeMedicine
	}
	if mode := model.Mode(s); mode.Valid() {
		return mode
	}
	return model.ModeSymptom
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
