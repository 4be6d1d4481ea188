package repository

import (
	"context"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
)

// EscrowUpdateFunc получает рабочую копию агрегата. Если функция вернула
// ошибку, ничего не сохраняется. ctx может нести транзакцию хранилища,
// поэтому переводы внутри fn нужно делать именно с ним.
type EscrowUpdateFunc func(ctx context.Context, agg *entity.EscrowAggregate) error

type EscrowRepository interface {
	// Create возвращает ErrDuplicateContract, если контракт уже есть.
	Create(ctx context.Context, contract *entity.EscrowContract) error
	FindByID(ctx context.Context, contractID string) (*entity.EscrowContract, error)
	FindMilestone(ctx context.Context, contractID string, index uint8) (*entity.Milestone, error)
	ListMilestones(ctx context.Context, contractID string) ([]*entity.Milestone, error)
	// Update атомарно загружает агрегат, применяет fn и сохраняет результат.
	Update(ctx context.Context, contractID string, fn EscrowUpdateFunc) (*entity.EscrowAggregate, error)
}
