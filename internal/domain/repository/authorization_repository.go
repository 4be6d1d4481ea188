package repository

import (
	"context"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
)

type AuthorizationUpdateFunc func(ctx context.Context, auth *entity.PaymentAuthorization) error

type AuthorizationRepository interface {
	// Create возвращает ErrDuplicateAuthorization, если ключ занят.
	Create(ctx context.Context, auth *entity.PaymentAuthorization) error
	Find(ctx context.Context, key entity.AuthorizationKey) (*entity.PaymentAuthorization, error)
	ListByClient(ctx context.Context, client valueobject.PartyID) ([]*entity.PaymentAuthorization, error)
	// Update работает как EscrowRepository.Update, но для одной авторизации.
	Update(ctx context.Context, key entity.AuthorizationKey, fn AuthorizationUpdateFunc) (*entity.PaymentAuthorization, error)
}
