// Package location acquires the device position for location-grounded replies.
package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

var (
	// ErrPermissionDenied means the user refused location access
	ErrPermissionDenied = errors.New("location access denied")
	// ErrUnavailable means no position could be determined
	ErrUnavailable = errors.New("location information is unavailable")
	// ErrTimeout means the locator did not answer in time
	ErrTimeout = errors.New("location request timed out")
)

// Request describes one position fix attempt
type Request struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaxAge accepts a cached fix no older than this
	MaxAge time.Duration
}

// Locator produces a position fix. It returns ErrPermissionDenied,
// ErrUnavailable or ErrTimeout for the corresponding device failures.
type Locator interface {
	Locate(ctx context.Context, req Request) (model.Location, error)
}

// Policy is the tiered acquisition policy: a precise fix first, then a
// coarse one with a longer budget if the first times out or finds nothing
type Policy struct {
	Precise Request
	Coarse  Request
}

// DefaultPolicy returns the standard 5s precise / 10s coarse policy
func DefaultPolicy() Policy {
	return Policy{
		Precise: Request{HighAccuracy: true, Timeout: 5 * time.Second},
		Coarse:  Request{HighAccuracy: false, Timeout: 10 * time.Second, MaxAge: time.Minute},
	}
}

// Service acquires positions and remembers the last good fix
type Service struct {
	locator Locator
	policy  Policy
	logger  *zap.Logger

	mu   sync.RWMutex
	last *model.Location
}

// NewService creates a location service. locator may be nil when positions
// only ever arrive through Remember.
func NewService(locator Locator, logger *zap.Logger) *Service {
	return &Service{
		locator: locator,
		policy:  DefaultPolicy(),
		logger:  logger,
	}
}

// Last returns the cached device location
func (s *Service) Last() (model.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return model.Location{}, false
	}
	return *s.last, true
}

// Remember caches a position reported by the device
func (s *Service) Remember(loc model.Location) error {
	if err := Validate(loc); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &loc
	return nil
}

// Resolve returns the cached location, acquiring one if none is known
func (s *Service) Resolve(ctx context.Context) (model.Location, error) {
	if loc, ok := s.Last(); ok {
		return loc, nil
	}
	return s.Acquire(ctx)
}

// Acquire runs the tiered policy and caches the result. Permission denial
// is final; timeouts and unavailability fall back to the coarse attempt.
func (s *Service) Acquire(ctx context.Context) (model.Location, error) {
	if s.locator == nil {
		return model.Location{}, ErrUnavailable
	}
	startTime := time.Now()

	loc, err := s.attempt(ctx, s.policy.Precise)
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		s.logger.Warn("precise location failed, retrying with low accuracy", zap.Error(err))
		loc, err = s.attempt(ctx, s.policy.Coarse)
	}
	if err != nil {
		s.logger.Warn("location unavailable",
			zap.Error(err),
			zap.Duration("processing_time", time.Since(startTime)),
		)
		return model.Location{}, err
	}

	if err := s.Remember(loc); err != nil {
		return model.Location{}, err
	}
	s.logger.Info("location acquired", zap.Duration("processing_time", time.Since(startTime)))
	return loc, nil
}

func (s *Service) attempt(ctx context.Context, req Request) (model.Location, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	loc, err := s.locator.Locate(attemptCtx, req)
	switch {
	case err == nil:
		return loc, nil
	case ctx.Err() != nil:
		return model.Location{}, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return model.Location{}, ErrTimeout
	}
	return model.Location{}, err
}

// Validate checks that loc is a plausible coordinate pair
func Validate(loc model.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("invalid coordinates: %f,%f", loc.Latitude, loc.Longitude)
	}
	return nil
}

// StaticLocator answers with a fixed configured position
type StaticLocator struct {
	Location *model.Location
}

// Locate returns the configured position or ErrUnavailable
func (l StaticLocator) Locate(ctx context.Context, req Request) (model.Location, error) {
	if err := ctx.Err(); err != nil {
		return model.Location{}, err
	}
	if l.Location == nil {
		return model.Location{}, ErrUnavailable
	}
	return *l.Location, nil
}
