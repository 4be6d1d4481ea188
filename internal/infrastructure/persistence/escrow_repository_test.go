package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
)

func newContract(t *testing.T, id string, now time.Time) *entity.EscrowContract {
	t.Helper()
	c, err := entity.NewEscrowContract(id, 1000, 3, "freelancer-1", "client-1", now)
	require.NoError(t, err)
	return c
}

func TestEscrowRepository_CreateAndFind(t *testing.T) {
	conn := openTestDB(t)
	repo := NewEscrowRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	id := uniqueID("escrow")
	c := newContract(t, id, now)
	require.NoError(t, repo.Create(ctx, c))

	err := repo.Create(ctx, c)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeDuplicateContract))

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, c.EscrowAccount, got.EscrowAccount)
	assert.Equal(t, uint64(1000), got.TotalAmount)
	assert.Equal(t, uint8(3), got.MilestoneCount)
	assert.Equal(t, valueobject.ContractStatusCreated, got.Status)

	_, err = repo.FindByID(ctx, uniqueID("missing"))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeContractNotFound))
}

func TestEscrowRepository_UpdatePersistsMilestones(t *testing.T) {
	conn := openTestDB(t)
	repo := NewEscrowRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	id := uniqueID("escrow")
	require.NoError(t, repo.Create(ctx, newContract(t, id, now)))

	_, err := repo.Update(ctx, id, func(_ context.Context, agg *entity.EscrowAggregate) error {
		plan, err := agg.Contract.PlanDeposit("client-1", 1000)
		if err != nil {
			return err
		}
		agg.Contract.ApplyDeposit(plan, now)
		_, err = agg.SubmitMilestone("freelancer-1", 0, "ipfs://proof-0", now)
		return err
	})
	require.NoError(t, err)

	agg, err := repo.Update(ctx, id, func(_ context.Context, agg *entity.EscrowAggregate) error {
		plan, err := agg.PlanApproval("client-1", 0)
		if err != nil {
			return err
		}
		_, err = agg.ApplyApproval(plan, now)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(667), agg.Contract.EscrowBalance)

	m, err := repo.FindMilestone(ctx, id, 0)
	require.NoError(t, err)
	assert.True(t, m.Approved)
	assert.Equal(t, uint64(333), m.PaymentAmount)
	assert.Equal(t, "ipfs://proof-0", m.ProofURI)

	_, err = repo.FindMilestone(ctx, id, 1)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeMilestoneNotFound))

	list, err := repo.ListMilestones(ctx, id)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEscrowRepository_UpdateRollsBackOnError(t *testing.T) {
	conn := openTestDB(t)
	repo := NewEscrowRepository(conn)
	ledger := transfer.NewPostgresLedger(conn, nil)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	id := uniqueID("escrow")
	require.NoError(t, repo.Create(ctx, newContract(t, id, now)))

	client := transfer.PartyAccount(valueobject.PartyID(uniqueID("client")))
	_, err := ledger.Seed(ctx, client, 500)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, id, func(ctx context.Context, agg *entity.EscrowAggregate) error {
		if err := ledger.Transfer(ctx, client, transfer.Account(agg.Contract.EscrowAccount), 500); err != nil {
			return err
		}
		agg.Contract.EscrowBalance = 500
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Перевод откатился вместе с состоянием контракта.
	balance, err := ledger.Balance(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balance)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, got.EscrowBalance)
}
