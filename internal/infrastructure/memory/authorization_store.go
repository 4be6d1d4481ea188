package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/lock"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

type AuthorizationStore struct {
	mu    sync.RWMutex
	auths map[entity.AuthorizationKey]*entity.PaymentAuthorization
	keys  *lock.KeyedMutex
}

var _ repository.AuthorizationRepository = (*AuthorizationStore)(nil)

func NewAuthorizationStore() *AuthorizationStore {
	return &AuthorizationStore{
		auths: make(map[entity.AuthorizationKey]*entity.PaymentAuthorization),
		keys:  lock.NewKeyedMutex(),
	}
}

func (s *AuthorizationStore) Create(_ context.Context, auth *entity.PaymentAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := auth.Key()
	if _, exists := s.auths[key]; exists {
		return apperror.ErrDuplicateAuthorization
	}
	s.auths[key] = auth.Clone()
	return nil
}

func (s *AuthorizationStore) Find(_ context.Context, key entity.AuthorizationKey) (*entity.PaymentAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auth, ok := s.auths[key]
	if !ok {
		return nil, apperror.ErrAuthorizationNotFound
	}
	return auth.Clone(), nil
}

func (s *AuthorizationStore) ListByClient(_ context.Context, client valueobject.PartyID) ([]*entity.PaymentAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entity.PaymentAuthorization, 0)
	for key, auth := range s.auths {
		if key.Client == client {
			result = append(result, auth.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ContractID < result[j].ContractID })
	return result, nil
}

func (s *AuthorizationStore) Update(ctx context.Context, key entity.AuthorizationKey, fn repository.AuthorizationUpdateFunc) (*entity.PaymentAuthorization, error) {
	var result *entity.PaymentAuthorization

	err := s.keys.WithLock(ctx, key.String(), func(ctx context.Context) error {
		working, err := s.Find(ctx, key)
		if err != nil {
			return err
		}
		if err := fn(ctx, working); err != nil {
			return err
		}

		s.mu.Lock()
		s.auths[key] = working.Clone()
		s.mu.Unlock()

		result = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
