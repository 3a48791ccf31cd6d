// Package notify collects the toast notices produced while handling one
// request and hands them to the browser through the HX-Trigger header.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func Success(msg string) Notice { return Notice{Level: LevelSuccess, Message: msg} }
func Failure(msg string) Notice { return Notice{Level: LevelError, Message: msg} }

// TriggerEvent is the client-side event name the layout script listens for.
const TriggerEvent = "notify"

// Collector accumulates notices for one request.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Add(n Notice) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

type contextKey struct{}

// NewContext returns a context carrying a fresh collector.
func NewContext(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, contextKey{}, c), c
}

func FromContext(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(contextKey{}).(*Collector)
	return c, ok
}

// Sink delivers notices to the collector of the request context. Notices sent
// with a context that has no collector are dropped.
type Sink struct{}

func (Sink) Notify(ctx context.Context, n Notice) {
	if c, ok := FromContext(ctx); ok {
		c.Add(n)
	}
}

// WriteTrigger sets the HX-Trigger header for the collected notices and any
// extra client events. It must run before the response header is written.
func WriteTrigger(w http.ResponseWriter, notices []Notice, events ...string) {
	if len(notices) == 0 && len(events) == 0 {
		return
	}
	triggers := make(map[string]any, len(events)+1)
	if len(notices) > 0 {
		triggers[TriggerEvent] = notices
	}
	for _, ev := range events {
		triggers[ev] = true
	}
	b, err := json.Marshal(triggers)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(b))
}
