package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

func TestAuthorizationRepository_Lifecycle(t *testing.T) {
	conn := openTestDB(t)
	repo := NewAuthorizationRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	client := valueobject.PartyID(uniqueID("client"))
	auth, err := entity.NewPaymentAuthorization("contract-1", client, "freelancer-1", 500, 1000, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, auth))

	err = repo.Create(ctx, auth)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeDuplicateAuthorization))

	key := auth.Key()
	updated, err := repo.Update(ctx, key, func(_ context.Context, a *entity.PaymentAuthorization) error {
		plan, err := a.PlanPayment(client, "freelancer-1", 400)
		if err != nil {
			return err
		}
		a.ApplyPayment(plan, now)
		_, err = a.Revoke(client, now)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(400), updated.TotalSpent)

	got, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, uint64(400), got.TotalSpent)
	require.NotNil(t, got.DeactivatedBy)
	assert.Equal(t, client, *got.DeactivatedBy)

	list, err := repo.ListByClient(ctx, client)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "contract-1", list[0].ContractID)

	_, err = repo.Find(ctx, entity.AuthorizationKey{Client: client, ContractID: "missing"})
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeAuthorizationNotFound))
}
