package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/mediguide/assistant/internal/turn"
	"github.com/mediguide/assistant/pkg/model"
)

// SSE event names
const (
	eventUser     = "user"
	eventPending  = "pending"
	eventPartial  = "partial"
	eventLoading  = "loading"
	eventResolved = "resolved"
	eventFailed   = "failed"
)

type partialEvent struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type loadingEvent struct {
	Loading bool `json:"loading"`
}

type failedEvent struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// eventStream relays turn updates as server-sent events. The stream opens on
// the first event, so a turn rejected by its guards can still get a normal
// error response.
type eventStream struct {
	c       *gin.Context
	started bool
	failed  bool
}

var _ turn.Observer = (*eventStream)(nil)

func newEventStream(c *gin.Context) *eventStream {
	return &eventStream{c: c}
}

func (s *eventStream) send(name string, data any) {
	if !s.started {
		s.started = true
		s.c.Header("Content-Type", "text/event-stream")
		s.c.Header("Cache-Control", "no-cache")
		s.c.Header("Connection", "keep-alive")
		s.c.Header("X-Accel-Buffering", "no")
	}
	s.c.SSEvent(name, data)
	s.c.Writer.Flush()
}

// Started reports whether any event was written
func (s *eventStream) Started() bool {
	return s.started
}

func (s *eventStream) OnUserMessage(msg model.Message) { s.send(eventUser, msg) }
func (s *eventStream) OnPending(msg model.Message)     { s.send(eventPending, msg) }
func (s *eventStream) OnPartial(id, text string) {
	s.send(eventPartial, partialEvent{ID: id, Text: text})
}
func (s *eventStream) OnLoading(loading bool)       { s.send(eventLoading, loadingEvent{Loading: loading}) }
func (s *eventStream) OnResolved(msg model.Message) { s.send(eventResolved, msg) }
func (s *eventStream) OnFailed(id string, err error) {
	s.failed = true
	s.send(eventFailed, failedEvent{ID: id, Error: err.Error()})
}

// finish reports err on an open stream that has not yet carried a failure
func (s *eventStream) finish(err error) {
	if err != nil && s.started && !s.failed {
		s.OnFailed("", err)
	}
}
