package events

import (
	"context"
	"sync"
)

// Recorder is an in-memory Publisher that keeps every published envelope.
type Recorder struct {
	mu        sync.Mutex
	Envelopes []Envelope
}

func (r *Recorder) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Envelopes = append(r.Envelopes, env)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Keys returns the event types in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.Envelopes))
	for _, env := range r.Envelopes {
		keys = append(keys, env.EventType)
	}
	return keys
}
