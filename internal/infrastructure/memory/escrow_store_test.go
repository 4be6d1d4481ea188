package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newContract(t *testing.T, id string) *entity.EscrowContract {
	t.Helper()
	c, err := entity.NewEscrowContract(id, 1000, 3, "bob", "alice", now)
	require.NoError(t, err)
	return c
}

func TestEscrowStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewEscrowStore()
	c := newContract(t, "C1")

	require.NoError(t, s.Create(ctx, c))
	assert.ErrorIs(t, s.Create(ctx, newContract(t, "C1")), apperror.ErrDuplicateContract)

	got, err := s.FindByID(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, c.TotalAmount, got.TotalAmount)

	// Изменение возвращённой копии не трогает хранилище
	got.EscrowBalance = 999
	again, _ := s.FindByID(ctx, "C1")
	assert.Zero(t, again.EscrowBalance)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrContractNotFound)

	_, err = s.FindMilestone(ctx, "C1", 0)
	assert.ErrorIs(t, err, apperror.ErrMilestoneNotFound)
}

func TestEscrowStore_UpdateCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewEscrowStore()
	require.NoError(t, s.Create(ctx, newContract(t, "C1")))

	_, err := s.Update(ctx, "C1", func(ctx context.Context, agg *entity.EscrowAggregate) error {
		agg.Contract.EscrowBalance = 500
		m, err := entity.NewMilestone("C1", 1, "ipfs://proof", now)
		require.NoError(t, err)
		agg.PutMilestone(m)
		return nil
	})
	require.NoError(t, err)

	got, _ := s.FindByID(ctx, "C1")
	assert.Equal(t, uint64(500), got.EscrowBalance)

	milestones, err := s.ListMilestones(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Equal(t, uint8(1), milestones[0].Index)
}

func TestEscrowStore_UpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewEscrowStore()
	require.NoError(t, s.Create(ctx, newContract(t, "C1")))
	boom := errors.New("transfer failed")

	_, err := s.Update(ctx, "C1", func(ctx context.Context, agg *entity.EscrowAggregate) error {
		agg.Contract.EscrowBalance = 500
		m, _ := entity.NewMilestone("C1", 0, "ipfs://proof", now)
		agg.PutMilestone(m)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.FindByID(ctx, "C1")
	assert.Zero(t, got.EscrowBalance)
	milestones, _ := s.ListMilestones(ctx, "C1")
	assert.Empty(t, milestones)

	_, err = s.Update(ctx, "missing", func(ctx context.Context, agg *entity.EscrowAggregate) error { return nil })
	assert.ErrorIs(t, err, apperror.ErrContractNotFound)
}

func TestEscrowStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewEscrowStore()
	require.NoError(t, s.Create(ctx, newContract(t, "C1")))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "C1", func(ctx context.Context, agg *entity.EscrowAggregate) error {
				agg.Contract.EscrowBalance++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := s.FindByID(ctx, "C1")
	assert.Equal(t, uint64(100), got.EscrowBalance)
}
