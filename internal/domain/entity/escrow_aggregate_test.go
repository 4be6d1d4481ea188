package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

func newFundedAggregate(t *testing.T, total uint64, count uint8, deposit uint64) *EscrowAggregate {
	t.Helper()
	c := newTestContract(t, total, count)
	plan, err := c.PlanDeposit(testClient, deposit)
	require.NoError(t, err)
	c.ApplyDeposit(plan, testNow)
	return NewEscrowAggregate(c, nil)
}

func submitAndApprove(t *testing.T, agg *EscrowAggregate, index uint8) ReleasePlan {
	t.Helper()
	_, err := agg.SubmitMilestone(testFreelancer, index, "ipfs://proof", testNow)
	require.NoError(t, err)
	plan, err := agg.PlanApproval(testClient, index)
	require.NoError(t, err)
	_, err = agg.ApplyApproval(plan, testNow)
	require.NoError(t, err)
	return plan
}

func TestSubmitMilestone(t *testing.T) {
	c := newTestContract(t, 1000, 3)
	agg := NewEscrowAggregate(c, nil)

	_, err := agg.SubmitMilestone(testFreelancer, 0, "ipfs://proof", testNow)
	assert.ErrorIs(t, err, apperror.ErrContractNotActive)

	c.Status = valueobject.ContractStatusActive

	_, err = agg.SubmitMilestone(testClient, 0, "ipfs://proof", testNow)
	assert.ErrorIs(t, err, apperror.ErrUnauthorizedFreelancer)

	_, err = agg.SubmitMilestone(testFreelancer, 3, "ipfs://proof", testNow)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidMilestone))

	_, err = agg.SubmitMilestone(testFreelancer, 1, "", testNow)
	assert.True(t, apperror.IsValidation(err))

	m, err := agg.SubmitMilestone(testFreelancer, 1, "ipfs://proof", testNow)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), m.Index)
	assert.False(t, m.Approved)
	assert.Len(t, agg.DirtyMilestones(), 1)

	_, err = agg.SubmitMilestone(testFreelancer, 1, "ipfs://other", testNow)
	assert.ErrorIs(t, err, apperror.ErrMilestoneAlreadySubmitted)
}

func TestApproval_CompletesOnLastMilestone(t *testing.T) {
	agg := newFundedAggregate(t, 1000, 3, 1000)

	for i := uint8(0); i < 3; i++ {
		plan := submitAndApprove(t, agg, i)
		assert.Equal(t, uint64(333), plan.Payment)
		assert.Equal(t, i == 2, plan.Completes)
	}

	c := agg.Contract
	assert.Equal(t, valueobject.ContractStatusCompleted, c.Status)
	assert.Equal(t, uint64(999), c.AmountReleased)
	assert.Equal(t, uint64(1), c.EscrowBalance)
	assert.Equal(t, uint8(3), c.CompletedMilestones)
	require.NotNil(t, c.CompletedAt)

	for _, m := range agg.Milestones() {
		assert.True(t, m.Approved)
		assert.Equal(t, uint64(333), m.PaymentAmount)
	}

	_, err := agg.PlanApproval(testClient, 0)
	assert.ErrorIs(t, err, apperror.ErrContractNotActive)
}

func TestApproval_DoubleApprovalReportedBeforeArithmetic(t *testing.T) {
	// Баланса хватает ровно на один этап
	agg := newFundedAggregate(t, 1000, 2, 500)
	submitAndApprove(t, agg, 0)
	require.Zero(t, agg.Contract.EscrowBalance)

	_, err := agg.PlanApproval(testClient, 0)
	assert.ErrorIs(t, err, apperror.ErrMilestoneAlreadyApproved)
	assert.False(t, apperror.IsFatal(err))
}

func TestApproval_UnderfundedIsFatal(t *testing.T) {
	agg := newFundedAggregate(t, 1000, 2, 100)
	_, err := agg.SubmitMilestone(testFreelancer, 0, "ipfs://proof", testNow)
	require.NoError(t, err)

	_, err = agg.PlanApproval(testClient, 0)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeArithmeticUnderflow))
	assert.True(t, apperror.IsFatal(err))
	assert.Equal(t, uint64(100), agg.Contract.EscrowBalance)

	m, _ := agg.Milestone(0)
	assert.False(t, m.Approved)
}

func TestApproval_Validation(t *testing.T) {
	agg := newFundedAggregate(t, 1000, 2, 1000)

	_, err := agg.PlanApproval(testFreelancer, 0)
	assert.ErrorIs(t, err, apperror.ErrUnauthorizedClient)

	_, err = agg.PlanApproval(testClient, 2)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidMilestone))

	_, err = agg.PlanApproval(testClient, 1)
	assert.ErrorIs(t, err, apperror.ErrMilestoneNotFound)
}
