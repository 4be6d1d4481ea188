package memory

import (
	"context"
	"sync"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/lock"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// EscrowStore хранит контракты в памяти. Update работает с копией агрегата
// и подменяет запись только при успехе fn.
type EscrowStore struct {
	mu        sync.RWMutex
	contracts map[string]*entity.EscrowAggregate
	keys      *lock.KeyedMutex
}

var _ repository.EscrowRepository = (*EscrowStore)(nil)

func NewEscrowStore() *EscrowStore {
	return &EscrowStore{
		contracts: make(map[string]*entity.EscrowAggregate),
		keys:      lock.NewKeyedMutex(),
	}
}

func (s *EscrowStore) Create(_ context.Context, contract *entity.EscrowContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contracts[contract.ContractID]; exists {
		return apperror.ErrDuplicateContract
	}
	s.contracts[contract.ContractID] = entity.NewEscrowAggregate(contract, nil).Clone()
	return nil
}

func (s *EscrowStore) snapshot(contractID string) (*entity.EscrowAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.contracts[contractID]
	if !ok {
		return nil, apperror.ErrContractNotFound
	}
	return agg.Clone(), nil
}

func (s *EscrowStore) FindByID(_ context.Context, contractID string) (*entity.EscrowContract, error) {
	agg, err := s.snapshot(contractID)
	if err != nil {
		return nil, err
	}
	return agg.Contract, nil
}

func (s *EscrowStore) FindMilestone(_ context.Context, contractID string, index uint8) (*entity.Milestone, error) {
	agg, err := s.snapshot(contractID)
	if err != nil {
		return nil, err
	}
	m, ok := agg.Milestone(index)
	if !ok {
		return nil, apperror.ErrMilestoneNotFound
	}
	return m, nil
}

func (s *EscrowStore) ListMilestones(_ context.Context, contractID string) ([]*entity.Milestone, error) {
	agg, err := s.snapshot(contractID)
	if err != nil {
		return nil, err
	}
	return agg.Milestones(), nil
}

func (s *EscrowStore) Update(ctx context.Context, contractID string, fn repository.EscrowUpdateFunc) (*entity.EscrowAggregate, error) {
	var result *entity.EscrowAggregate

	err := s.keys.WithLock(ctx, contractID, func(ctx context.Context) error {
		working, err := s.snapshot(contractID)
		if err != nil {
			return err
		}
		if err := fn(ctx, working); err != nil {
			return err
		}

		committed := entity.NewEscrowAggregate(working.Contract, working.Milestones()).Clone()
		s.mu.Lock()
		s.contracts[contractID] = committed
		s.mu.Unlock()

		result = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
