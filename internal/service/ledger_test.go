package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-ledger/internal/clock"
	"github.com/ignatzorin/escrow-ledger/internal/events"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingPublisher запоминает события; onPublish вызывается до записи.
type recordingPublisher struct {
	mu        sync.Mutex
	events    []events.Event
	onPublish func(events.Event)
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	if p.onPublish != nil {
		p.onPublish(event)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type mockTransferer struct {
	mock.Mock
}

func (m *mockTransferer) Transfer(ctx context.Context, from, to transfer.Account, amount uint64) error {
	args := m.Called(ctx, from, to, amount)
	return args.Error(0)
}

func newTestClock() *clock.Fixed {
	return clock.NewFixed(testNow)
}
