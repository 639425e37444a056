package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mediguide/assistant/internal/retry"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// emitter accumulates one reply and forwards increments to the consumer
type emitter struct {
	ctx       context.Context
	events    chan<- Event
	full      strings.Builder
	citations []model.Citation
	seen      map[string]bool
	delivered bool
}

// text forwards a text increment; false means the consumer has gone away
func (e *emitter) text(delta string) bool {
	if delta == "" {
		return true
	}
	e.delivered = true
	e.full.WriteString(delta)
	return e.send(Event{Kind: EventText, Delta: delta})
}

// cite forwards citations not seen earlier in this reply
func (e *emitter) cite(citations []model.Citation) bool {
	var fresh []model.Citation
	for _, c := range citations {
		key := citationKey(c)
		if key == "" || e.seen[key] {
			continue
		}
		e.seen[key] = true
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return true
	}
	e.citations = append(e.citations, fresh...)
	return e.send(Event{Kind: EventCitations, Citations: fresh})
}

func (e *emitter) send(ev Event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func citationKey(c model.Citation) string {
	switch {
	case c.Web != nil:
		return "web:" + c.Web.URI
	case c.Place != nil:
		return "maps:" + c.Place.URI + "#" + c.Place.PlaceID
	}
	return ""
}

// attemptFunc runs one streaming attempt, pushing increments through e
type attemptFunc func(ctx context.Context, e *emitter) error

// runStream drives a reply on its own goroutine. A failed attempt is retried
// under policy only while no text has reached the consumer, so the text a
// consumer sees only ever grows.
func runStream(ctx context.Context, policy retry.Policy, logger *zap.Logger, op string, attempt attemptFunc) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)
		startTime := time.Now()
		e := &emitter{ctx: ctx, events: events, seen: make(map[string]bool)}

		for n := 0; ; n++ {
			if n > 0 {
				logger.Info("retrying reply stream",
					zap.String("operation", op),
					zap.Int("attempt", n+1),
					zap.Duration("delay", policy.Delay(n)),
				)
				if err := policy.Wait(ctx, n); err != nil {
					e.send(Event{Kind: EventError, Err: err})
					return
				}
			}

			err := attempt(ctx, e)
			if err == nil {
				logger.Info("reply stream completed",
					zap.String("operation", op),
					zap.Int("attempts", n+1),
					zap.Int("reply_length", e.full.Len()),
					zap.Int("citations", len(e.citations)),
					zap.Duration("processing_time", time.Since(startTime)),
				)
				e.send(Event{Kind: EventDone, Reply: &Reply{
					FullText:  e.full.String(),
					Citations: e.citations,
				}})
				return
			}

			if e.delivered || !policy.ShouldRetry(ctx, err, n) {
				logger.Error("reply stream failed",
					zap.String("operation", op),
					zap.Error(err),
					zap.Int("attempts", n+1),
					zap.Bool("partial_delivered", e.delivered),
				)
				e.send(Event{Kind: EventError, Err: err})
				return
			}

			logger.Warn("reply stream failed before first token, will retry",
				zap.String("operation", op),
				zap.Error(err),
				zap.Int("attempt", n+1),
			)
		}
	}()

	return events
}

// ErrStreamClosed reports a stream that ended without a terminal event
var ErrStreamClosed = errors.New("reply stream closed without a result")

// Collect drains a stream and returns its terminal outcome
func Collect(ctx context.Context, events <-chan Event) (*Reply, error) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, ErrStreamClosed
			}
			switch ev.Kind {
			case EventDone:
				return ev.Reply, nil
			case EventError:
				return nil, ev.Err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
