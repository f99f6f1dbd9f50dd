package testutils

import (
	"context"
	"sync"

	"github.com/corpusd/corpusd/pkg/eventstream"
)

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []eventstream.DocumentEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) PublishDocument(_ context.Context, event *eventstream.DocumentEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []eventstream.DocumentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]eventstream.DocumentEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *RecordingPublisher) Close() error {
	return nil
}
