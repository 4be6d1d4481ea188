package entity

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/validation"
)

const escrowAccountPrefix = "escrow:"

type EscrowContract struct {
	ContractID          string
	EscrowAccount       string
	Client              valueobject.PartyID
	Freelancer          valueobject.PartyID
	TotalAmount         uint64
	MilestoneCount      uint8
	CompletedMilestones uint8
	AmountReleased      uint64
	EscrowBalance       uint64
	Status              valueobject.ContractStatus
	DisputeReason       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
}

// EscrowAccountFor выводит детерминированный счёт эскроу из идентификатора контракта.
func EscrowAccountFor(contractID string) string {
	h := blake2b.Sum256([]byte("escrow" + contractID))
	return escrowAccountPrefix + hex.EncodeToString(h[:])[:32]
}

func NewEscrowContract(contractID string, totalAmount uint64, milestoneCount uint8, freelancer, client valueobject.PartyID, now time.Time) (*EscrowContract, error) {
	if err := validation.ValidateContractID(contractID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePartyID(string(freelancer)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePartyID(string(client)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if milestoneCount == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidMilestone, "количество этапов должно быть положительным")
	}
	if totalAmount == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidAmount, "сумма контракта должна быть положительной")
	}

	return &EscrowContract{
		ContractID:     contractID,
		EscrowAccount:  EscrowAccountFor(contractID),
		Client:         client,
		Freelancer:     freelancer,
		TotalAmount:    totalAmount,
		MilestoneCount: milestoneCount,
		Status:         valueobject.ContractStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (c *EscrowContract) IsClient(party valueobject.PartyID) bool {
	return c.Client == party
}

func (c *EscrowContract) IsFreelancer(party valueobject.PartyID) bool {
	return c.Freelancer == party
}

// MilestonePayment: фиксированная выплата за любой этап.
func (c *EscrowContract) MilestonePayment() uint64 {
	return valueobject.MilestonePayment(c.TotalAmount, c.MilestoneCount)
}

// Dust: остаток от деления, который обычные выплаты не забирают.
func (c *EscrowContract) Dust() uint64 {
	return valueobject.Dust(c.TotalAmount, c.MilestoneCount)
}

// RemainingToFund: сколько ещё можно внести, не превысив сумму контракта.
func (c *EscrowContract) RemainingToFund() uint64 {
	committed := c.EscrowBalance + c.AmountReleased
	if committed >= c.TotalAmount {
		return 0
	}
	return c.TotalAmount - committed
}

func (c *EscrowContract) checkMilestoneIndex(index uint8) error {
	if index >= c.MilestoneCount {
		return apperror.Newf(apperror.ErrCodeInvalidMilestone, "этап %d вне диапазона 0..%d", index, c.MilestoneCount-1)
	}
	return nil
}

// DepositPlan: проверенный, но ещё не применённый взнос.
type DepositPlan struct {
	Amount     uint64
	NewBalance uint64
	Activates  bool
}

// PlanDeposit проверяет взнос клиента, не меняя контракт.
func (c *EscrowContract) PlanDeposit(caller valueobject.PartyID, amount uint64) (DepositPlan, error) {
	if !c.IsClient(caller) {
		return DepositPlan{}, apperror.ErrUnauthorizedClient
	}
	if !c.Status.AcceptsFunds() {
		return DepositPlan{}, apperror.ErrContractNotActive
	}
	if amount == 0 {
		return DepositPlan{}, apperror.New(apperror.ErrCodeInvalidAmount, "сумма взноса должна быть положительной")
	}

	newBalance, err := valueobject.CheckedAdd(c.EscrowBalance, amount)
	if err != nil {
		return DepositPlan{}, err
	}
	if _, ok, err := valueobject.CheckedAddWithinLimit(newBalance, c.AmountReleased, c.TotalAmount); err != nil {
		return DepositPlan{}, err
	} else if !ok {
		return DepositPlan{}, apperror.Newf(apperror.ErrCodeExceedsTotal,
			"взнос %d превышает остаток к внесению %d", amount, c.RemainingToFund())
	}

	return DepositPlan{
		Amount:     amount,
		NewBalance: newBalance,
		Activates:  c.Status == valueobject.ContractStatusCreated,
	}, nil
}

// ApplyDeposit фиксирует взнос после успешного перевода.
func (c *EscrowContract) ApplyDeposit(plan DepositPlan, now time.Time) {
	if plan.Activates {
		c.Status = valueobject.ContractStatusActive
	}
	c.EscrowBalance = plan.NewBalance
	c.UpdatedAt = now
}

func (c *EscrowContract) checkSubmit(caller valueobject.PartyID, index uint8) error {
	if !c.IsFreelancer(caller) {
		return apperror.ErrUnauthorizedFreelancer
	}
	if c.Status != valueobject.ContractStatusActive {
		return apperror.ErrContractNotActive
	}
	return c.checkMilestoneIndex(index)
}

// ReleasePlan: проверенная выплата за этап.
type ReleasePlan struct {
	Index        uint8
	Payment      uint64
	NewBalance   uint64
	NewReleased  uint64
	NewCompleted uint8
	Completes    bool
}

func (c *EscrowContract) checkApproval(caller valueobject.PartyID, index uint8) error {
	if !c.IsClient(caller) {
		return apperror.ErrUnauthorizedClient
	}
	if c.Status != valueobject.ContractStatusActive {
		return apperror.ErrContractNotActive
	}
	return c.checkMilestoneIndex(index)
}

// planRelease считает новые счётчики. Уход баланса в минус обнаруживается здесь, до перевода.
func (c *EscrowContract) planRelease(index uint8) (ReleasePlan, error) {
	payment := c.MilestonePayment()
	newBalance, err := valueobject.CheckedSub(c.EscrowBalance, payment)
	if err != nil {
		return ReleasePlan{}, err
	}
	newReleased, err := valueobject.CheckedAdd(c.AmountReleased, payment)
	if err != nil {
		return ReleasePlan{}, err
	}
	if c.CompletedMilestones >= c.MilestoneCount {
		return ReleasePlan{}, apperror.Newf(apperror.ErrCodeArithmeticOverflow,
			"счётчик этапов переполнен: %d из %d", c.CompletedMilestones, c.MilestoneCount)
	}
	newCompleted := c.CompletedMilestones + 1

	return ReleasePlan{
		Index:        index,
		Payment:      payment,
		NewBalance:   newBalance,
		NewReleased:  newReleased,
		NewCompleted: newCompleted,
		Completes:    newCompleted == c.MilestoneCount,
	}, nil
}

func (c *EscrowContract) applyRelease(plan ReleasePlan, now time.Time) {
	c.EscrowBalance = plan.NewBalance
	c.AmountReleased = plan.NewReleased
	c.CompletedMilestones = plan.NewCompleted
	if plan.Completes {
		c.Status = valueobject.ContractStatusCompleted
		completedAt := now
		c.CompletedAt = &completedAt
	}
	c.UpdatedAt = now
}

// DisputePlan: проверенный спор с возвратом остатка клиенту.
type DisputePlan struct {
	Refund uint64
	Reason string
}

func (c *EscrowContract) PlanDispute(caller valueobject.PartyID, reason string) (DisputePlan, error) {
	if !c.IsClient(caller) {
		return DisputePlan{}, apperror.ErrUnauthorizedClient
	}
	if err := validation.ValidateDisputeReason(reason); err != nil {
		return DisputePlan{}, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if !c.Status.CanTransitionTo(valueobject.ContractStatusDisputed) {
		return DisputePlan{}, apperror.Newf(apperror.ErrCodeInvalidContractState,
			"спор невозможен в статусе %s", c.Status)
	}
	return DisputePlan{Refund: c.EscrowBalance, Reason: reason}, nil
}

// ApplyDispute фиксирует спор после возврата средств.
func (c *EscrowContract) ApplyDispute(plan DisputePlan, now time.Time) {
	c.EscrowBalance = 0
	c.Status = valueobject.ContractStatusDisputed
	c.DisputeReason = plan.Reason
	c.UpdatedAt = now
}
