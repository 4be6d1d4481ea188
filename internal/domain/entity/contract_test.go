package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

var (
	testNow        = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testClient     = valueobject.PartyID("alice")
	testFreelancer = valueobject.PartyID("bob")
)

func newTestContract(t *testing.T, total uint64, count uint8) *EscrowContract {
	t.Helper()
	c, err := NewEscrowContract("C1", total, count, testFreelancer, testClient, testNow)
	require.NoError(t, err)
	return c
}

func TestNewEscrowContract(t *testing.T) {
	c := newTestContract(t, 1000, 3)

	assert.Equal(t, valueobject.ContractStatusCreated, c.Status)
	assert.Zero(t, c.EscrowBalance)
	assert.Zero(t, c.AmountReleased)
	assert.Nil(t, c.CompletedAt)
	assert.Equal(t, EscrowAccountFor("C1"), c.EscrowAccount)
	assert.Equal(t, uint64(333), c.MilestonePayment())
	assert.Equal(t, uint64(1), c.Dust())
}

func TestNewEscrowContract_Validation(t *testing.T) {
	_, err := NewEscrowContract("C1", 1000, 0, testFreelancer, testClient, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidMilestone))

	_, err = NewEscrowContract("C1", 0, 3, testFreelancer, testClient, testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidAmount))

	_, err = NewEscrowContract(strings.Repeat("x", 65), 1000, 3, testFreelancer, testClient, testNow)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewEscrowContract("C1", 1000, 3, "", testClient, testNow)
	assert.True(t, apperror.IsValidation(err))
}

func TestEscrowAccountFor(t *testing.T) {
	a := EscrowAccountFor("C1")
	assert.True(t, strings.HasPrefix(a, "escrow:"))
	assert.Len(t, a, len("escrow:")+32)
	assert.Equal(t, a, EscrowAccountFor("C1"))
	assert.NotEqual(t, a, EscrowAccountFor("C2"))
}

func TestPlanDeposit(t *testing.T) {
	c := newTestContract(t, 1000, 3)

	_, err := c.PlanDeposit(testFreelancer, 100)
	assert.ErrorIs(t, err, apperror.ErrUnauthorizedClient)

	_, err = c.PlanDeposit(testClient, 0)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidAmount))

	_, err = c.PlanDeposit(testClient, 1001)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeExceedsTotal))

	plan, err := c.PlanDeposit(testClient, 1000)
	require.NoError(t, err)
	assert.True(t, plan.Activates)
	assert.Equal(t, uint64(1000), plan.NewBalance)

	// План не меняет контракт
	assert.Equal(t, valueobject.ContractStatusCreated, c.Status)
	assert.Zero(t, c.EscrowBalance)

	c.ApplyDeposit(plan, testNow)
	assert.Equal(t, valueobject.ContractStatusActive, c.Status)
	assert.Equal(t, uint64(1000), c.EscrowBalance)
	assert.Zero(t, c.RemainingToFund())
}

func TestPlanDeposit_ExceedsRemainingToFund(t *testing.T) {
	c := newTestContract(t, 1000, 3)
	plan, err := c.PlanDeposit(testClient, 400)
	require.NoError(t, err)
	c.ApplyDeposit(plan, testNow)
	assert.Equal(t, uint64(600), c.RemainingToFund())

	_, err = c.PlanDeposit(testClient, 700)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeExceedsTotal))
	assert.Contains(t, err.Error(), "остаток к внесению 600")

	_, err = c.PlanDeposit(testClient, 600)
	assert.NoError(t, err)
}

func TestPlanDeposit_RejectedInTerminalStatus(t *testing.T) {
	for _, status := range []valueobject.ContractStatus{valueobject.ContractStatusDisputed, valueobject.ContractStatusCompleted} {
		c := newTestContract(t, 1000, 3)
		c.Status = status
		_, err := c.PlanDeposit(testClient, 10)
		assert.ErrorIs(t, err, apperror.ErrContractNotActive, "status %s", status)
	}
}

func TestPlanDispute(t *testing.T) {
	c := newTestContract(t, 1000, 3)

	_, err := c.PlanDispute(testClient, "reason")
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidContractState))

	c.Status = valueobject.ContractStatusActive
	c.EscrowBalance = 667

	_, err = c.PlanDispute(testFreelancer, "reason")
	assert.ErrorIs(t, err, apperror.ErrUnauthorizedClient)

	_, err = c.PlanDispute(testClient, strings.Repeat("r", 501))
	assert.True(t, apperror.IsValidation(err))

	plan, err := c.PlanDispute(testClient, "work not delivered")
	require.NoError(t, err)
	assert.Equal(t, uint64(667), plan.Refund)

	c.ApplyDispute(plan, testNow)
	assert.Equal(t, valueobject.ContractStatusDisputed, c.Status)
	assert.Zero(t, c.EscrowBalance)
	assert.Equal(t, "work not delivered", c.DisputeReason)

	_, err = c.PlanDispute(testClient, "again")
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidContractState))
}
