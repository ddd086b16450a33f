package events

import (
	"context"
	"sync"

	"github.com/mcoot/typerace/internal/model"
)

// Publisher delivers room and match events to interested parties
type Publisher interface {
	Publish(ctx context.Context, event model.Event)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, event model.Event)

// Publish calls f
func (f PublisherFunc) Publish(ctx context.Context, event model.Event) {
	f(ctx, event)
}

// Nop discards every event
var Nop Publisher = PublisherFunc(func(context.Context, model.Event) {})

// Multi fans each event out to several publishers in order
type Multi []Publisher

// Publish forwards the event to every publisher
func (m Multi) Publish(ctx context.Context, event model.Event) {
	for _, p := range m {
		p.Publish(ctx, event)
	}
}

// Recorder keeps every published event in memory
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the event
func (r *Recorder) Publish(_ context.Context, event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of the given type
func (r *Recorder) OfType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
