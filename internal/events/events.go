package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Типы событий эскроу
const (
	TypeFundsDeposited     = "funds_deposited"
	TypeMilestoneSubmitted = "milestone_submitted"
	TypeMilestoneApproved  = "milestone_approved"
	TypeContractDisputed   = "contract_disputed"
	TypeContractCompleted  = "contract_completed"
)

// Типы событий авторизаций
const (
	TypeAuthorizationCreated = "authorization_created"
	TypePaymentProcessed     = "payment_processed"
	TypeAuthorizationRevoked = "authorization_revoked"
	TypeAuthorizationUpdated = "authorization_updated"
	TypeAuthorizationFrozen  = "authorization_frozen"

	TypeAuthorizationLimitWarning = "authorization_limit_warning"
)

// Каналы Redis
const (
	StreamEscrow        = "events:escrow"
	StreamAuthorization = "events:authorization"
)

// Event: уведомление о зафиксированном изменении. В Parties те, кому его доставить.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ContractID string         `json:"contract_id"`
	Parties    []string       `json:"parties"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func New(eventType, contractID string, occurredAt time.Time, parties []string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ContractID: contractID,
		Parties:    parties,
		OccurredAt: occurredAt,
		Payload:    payload,
	}
}

// Stream возвращает канал, в который публикуется событие.
func (e Event) Stream() string {
	if strings.HasPrefix(e.Type, "authorization_") || e.Type == TypePaymentProcessed {
		return StreamAuthorization
	}
	return StreamEscrow
}

// Publisher доставляет события после фиксации изменений. Ошибка публикации
// не отменяет уже зафиксированную операцию.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

type nop struct{}

func (nop) Publish(context.Context, Event) error { return nil }

// Nop отбрасывает события.
func Nop() Publisher { return nop{} }
