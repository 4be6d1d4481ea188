package events

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/goroutine"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
)

// Broadcaster: получатель персональных уведомлений (WebSocket хаб).
type Broadcaster interface {
	BroadcastToUser(userID string, event string, data any) error
}

// HubPublisher рассылает событие всем участникам контракта.
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, event Event) error {
	var errs []error
	for _, party := range event.Parties {
		if err := p.hub.BroadcastToUser(party, event.Type, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Multi публикует во все издатели и собирает ошибки.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async публикует в фоне, не задерживая ответ реестра. Ошибки только логируются.
type Async struct {
	next     Publisher
	recovery *goroutine.RecoveryHandler
	timeout  time.Duration
}

func NewAsync(next Publisher, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Async{
		next:     next,
		recovery: goroutine.DefaultRecoveryHandler,
		timeout:  timeout,
	}
}

func (a *Async) Publish(ctx context.Context, event Event) error {
	// Запрос может завершиться раньше публикации
	ctx = context.WithoutCancel(ctx)

	a.recovery.SafeGo("events.async."+event.Type, func() {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		if err := a.next.Publish(ctx, event); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"event_id":    event.ID,
				"event_type":  event.Type,
				"contract_id": event.ContractID,
			}).WithError(err).Warn("failed to publish event")
		}
	})
	return nil
}
