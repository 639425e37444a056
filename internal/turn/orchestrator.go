// Package turn runs one conversational turn: the optimistic user message, the
// streamed placeholder, and its reconciliation with the parsed reply.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/internal/parser"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// MaxInputRunes bounds the text of a single turn
const MaxInputRunes = 2000

// CareQuery is the text submitted by the find-care shortcut
const CareQuery = "find nearby care near me"

// Rejections leave the conversation untouched
var (
	ErrNoActiveMode    = errors.New("no active mode")
	ErrTurnInFlight    = errors.New("a turn is already in flight")
	ErrEmptyInput      = errors.New("turn has neither text nor image")
	ErrInputTooLong    = fmt.Errorf("turn text exceeds %d characters", MaxInputRunes)
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrNoLocation wraps the locator failure that stopped a find-care request
	ErrNoLocation = errors.New("device location unknown")
)

// Rejected reports whether err is a guard rejection rather than a turn failure
func Rejected(err error) bool {
	return errors.Is(err, ErrNoActiveMode) ||
		errors.Is(err, ErrTurnInFlight) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInputTooLong) ||
		errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrEmptyTranscript) ||
		errors.Is(err, ErrNoLocation)
}

// Input is what the user submits for one turn
type Input struct {
	Text string
	// Image is a data URL, e.g. data:image/png;base64,...
	Image       string
	VoiceOrigin bool
	Focus       bool
	// Location overrides the cached device location
	Location *model.Location
}

// Backend is the part of the gateway a turn needs
type Backend interface {
	gateway.Replier
	gateway.Transcriber
}

// LocationSource provides the device location: the last known fix, or a
// fresh one when nothing is cached
type LocationSource interface {
	Last() (model.Location, bool)
	Resolve(ctx context.Context) (model.Location, error)
}

// Orchestrator runs turns against the active conversation, one at a time
type Orchestrator struct {
	sessions  *session.Manager
	backend   Backend
	locations LocationSource
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	inFlight atomic.Bool
}

// NewOrchestrator creates a turn orchestrator. locations may be nil.
func NewOrchestrator(sessions *session.Manager, backend Backend, locations LocationSource, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		backend:   backend,
		locations: locations,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// InFlight reports whether a turn is currently running
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) acquire() bool {
	return o.inFlight.CompareAndSwap(false, true)
}

func (o *Orchestrator) release() {
	o.inFlight.Store(false)
}

// SubmitTurn appends the user's message and streams the reply into the
// active conversation. It blocks until the reply resolves or fails. Guard
// rejections return before anything is changed; a failed reply leaves the
// user's message in place and returns the cause.
func (o *Orchestrator) SubmitTurn(ctx context.Context, in Input, obs Observer) error {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if o.sessions.Active().Mode == "" {
		return ErrNoActiveMode
	}
	image, err := checkInput(in)
	if err != nil {
		return err
	}
	if !o.acquire() {
		return ErrTurnInFlight
	}
	defer o.release()

	return o.submit(ctx, in, image, obs)
}

// activeMode is the mode of the open conversation; a reset between the
// caller's check and this one turns into a rejection
func (o *Orchestrator) activeMode() (model.Mode, error) {
	mode := o.sessions.Active().Mode
	if mode == "" {
		return "", ErrNoActiveMode
	}
	return mode, nil
}

// SubmitVoice transcribes recorded audio and submits the transcript as a
// voice-origin turn. An empty transcript submits nothing.
func (o *Orchestrator) SubmitVoice(ctx context.Context, audio []byte, mimeType string, obs Observer) (string, error) {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if o.sessions.Active().Mode == "" {
		return "", ErrNoActiveMode
	}
	if !o.acquire() {
		return "", ErrTurnInFlight
	}
	defer o.release()

	language := ""
	if user := o.sessions.User(); user != nil {
		language = user.Language
	}

	obs.OnLoading(true)
	text, err := o.backend.Transcribe(ctx, audio, mimeType, language)
	obs.OnLoading(false)
	if err != nil {
		o.logger.Error("failed to transcribe voice turn",
			zap.Int("audio_size_bytes", len(audio)),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}

	in := Input{Text: text, VoiceOrigin: true}
	if _, err := checkInput(in); err != nil {
		return text, err
	}
	return text, o.submit(ctx, in, nil, obs)
}

// FindCare asks for nearby care at loc, resolving the device location when
// loc is nil. Nothing is sent when no location can be found. Without an
// active mode it opens a SYMPTOM session holding the greeting and the request
// in one step; otherwise the request is submitted as a normal turn.
func (o *Orchestrator) FindCare(ctx context.Context, loc *model.Location, obs Observer) error {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if o.InFlight() {
		return ErrTurnInFlight
	}
	if loc == nil {
		resolved, err := o.resolveLocation(ctx)
		if err != nil {
			return err
		}
		loc = &resolved
	}
	if o.sessions.Active().Mode != "" {
		return o.SubmitTurn(ctx, Input{Text: CareQuery, Location: loc}, obs)
	}
	if !o.acquire() {
		return ErrTurnInFlight
	}
	defer o.release()

	_, userMsg, err := o.sessions.StartCareSession(ctx, CareQuery)
	if err != nil {
		return err
	}
	obs.OnUserMessage(userMsg)

	return o.reply(ctx, model.ModeSymptom, Input{Text: CareQuery, Location: loc}, nil, obs)
}

func (o *Orchestrator) resolveLocation(ctx context.Context) (model.Location, error) {
	if o.locations == nil {
		return model.Location{}, fmt.Errorf("%w: %w", ErrNoLocation, location.ErrUnavailable)
	}
	loc, err := o.locations.Resolve(ctx)
	if err != nil {
		o.logger.Warn("find care needs a location", zap.Error(err))
		return model.Location{}, fmt.Errorf("%w: %w", ErrNoLocation, err)
	}
	return loc, nil
}

// submit runs steps that follow the guards; the caller holds the in-flight slot
func (o *Orchestrator) submit(ctx context.Context, in Input, image *gateway.Image, obs Observer) error {
	mode, err := o.activeMode()
	if err != nil {
		return err
	}

	userMsg := model.Message{
		ID:        o.newID(),
		Role:      model.RoleUser,
		Text:      in.Text,
		Image:     in.Image,
		Timestamp: model.Millis(o.now()),
	}
	if err := o.sessions.AppendAndPersist(ctx, userMsg, in.Text); err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			return ErrNoActiveMode
		}
		return err
	}
	obs.OnUserMessage(userMsg)

	return o.reply(ctx, mode, in, image, obs)
}

// reply streams the model's answer into a pending placeholder and resolves
// or discards it
func (o *Orchestrator) reply(ctx context.Context, mode model.Mode, in Input, image *gateway.Image, obs Observer) error {
	startTime := time.Now()
	history := o.sessions.Active().Messages

	pending := model.Message{
		ID:        o.newID(),
		Role:      model.RoleModel,
		State:     model.MessagePending,
		Timestamp: model.Millis(o.now()),
	}
	if err := o.sessions.AddPending(pending); err != nil {
		return err
	}
	obs.OnPending(pending)
	obs.OnLoading(true)

	req := gateway.ReplyRequest{
		Mode:     mode,
		History:  history,
		Text:     in.Text,
		Image:    image,
		Focus:    in.Focus,
		Location: o.effectiveLocation(in.Location),
	}
	if user := o.sessions.User(); user != nil {
		req.Language = user.Language
		req.Profile = user
	}

	loading := true
	reply, err := o.stream(ctx, pending.ID, req, obs, &loading)
	if loading {
		obs.OnLoading(false)
	}
	if err != nil {
		if rmErr := o.sessions.RemoveMessage(pending.ID); rmErr != nil {
			o.logger.Warn("pending reply already gone", zap.String("message_id", pending.ID))
		}
		o.logger.Error("turn failed",
			zap.String("mode", string(mode)),
			zap.String("message_id", pending.ID),
			zap.Duration("processing_time", time.Since(startTime)),
			zap.Error(err),
		)
		obs.OnFailed(pending.ID, err)
		return fmt.Errorf("failed to generate reply: %w", err)
	}

	result := parser.Parse(reply.FullText)
	resolved := model.Message{
		ID:          pending.ID,
		Role:        model.RoleModel,
		Result:      &result,
		Citations:   reply.Citations,
		Timestamp:   model.Millis(o.now()),
		State:       model.MessageResolved,
		VoiceOrigin: in.VoiceOrigin,
	}
	if err := o.sessions.ReplacePending(ctx, pending.ID, resolved, result.Advice); err != nil {
		o.logger.Warn("resolved reply has no placeholder", zap.String("message_id", pending.ID), zap.Error(err))
		obs.OnFailed(pending.ID, err)
		return err
	}
	obs.OnResolved(resolved)

	o.logger.Info("turn resolved",
		zap.String("mode", string(mode)),
		zap.String("message_id", pending.ID),
		zap.String("urgency", string(result.Urgency)),
		zap.Int("citation_count", len(reply.Citations)),
		zap.Bool("location", req.Location != nil),
		zap.Duration("processing_time", time.Since(startTime)),
	)
	return nil
}

// stream consumes the reply events, pushing the visible advice into the
// placeholder. Updates only ever extend the previous text.
func (o *Orchestrator) stream(ctx context.Context, pendingID string, req gateway.ReplyRequest, obs Observer, loading *bool) (*gateway.Reply, error) {
	// Cancelling on return stops the producer when the loop exits early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := o.backend.StreamReply(ctx, req)
	if err != nil {
		return nil, err
	}

	var full strings.Builder
	visible := ""
	for ev := range events {
		switch ev.Kind {
		case gateway.EventText:
			if *loading {
				*loading = false
				obs.OnLoading(false)
			}
			full.WriteString(ev.Delta)
			next := parser.VisibleAdvice(full.String())
			if next == visible {
				continue
			}
			visible = next
			if err := o.sessions.UpdatePending(pendingID, visible); err != nil {
				return nil, err
			}
			obs.OnPartial(pendingID, visible)
		case gateway.EventDone:
			return ev.Reply, nil
		case gateway.EventError:
			return nil, ev.Err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, gateway.ErrStreamClosed
}

func (o *Orchestrator) effectiveLocation(override *model.Location) *model.Location {
	if override != nil {
		loc := *override
		return &loc
	}
	if o.locations == nil {
		return nil
	}
	if loc, ok := o.locations.Last(); ok {
		return &loc
	}
	return nil
}

func checkInput(in Input) (*gateway.Image, error) {
	if strings.TrimSpace(in.Text) == "" && in.Image == "" {
		return nil, ErrEmptyInput
	}
	if utf8.RuneCountInString(in.Text) > MaxInputRunes {
		return nil, ErrInputTooLong
	}
	if in.Image == "" {
		return nil, nil
	}
	image, err := DecodeDataURL(in.Image)
	if err != nil {
		return nil, err
	}
	return &image, nil
}
