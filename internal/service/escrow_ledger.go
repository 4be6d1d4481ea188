package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/clock"
	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/events"
	"github.com/ignatzorin/escrow-ledger/internal/lock"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
)

type CreateContractInput struct {
	ContractID     string
	TotalAmount    uint64
	MilestoneCount uint8
	Freelancer     valueobject.PartyID
	Client         valueobject.PartyID
}

// ApprovalResult: состояние после оплаты этапа.
type ApprovalResult struct {
	Contract  *entity.EscrowContract
	Milestone *entity.Milestone
	Payment   uint64
}

// EscrowLedger ведёт контракты эскроу с поэтапной оплатой.
// Каждая операция: блокировка ключа, проверка, перевод, фиксация, событие.
type EscrowLedger struct {
	repo      repository.EscrowRepository
	transfers transfer.Transferer
	locker    lock.Locker
	clock     clock.Clock
	publisher events.Publisher
}

func NewEscrowLedger(repo repository.EscrowRepository, transfers transfer.Transferer, locker lock.Locker, clk clock.Clock, publisher events.Publisher) *EscrowLedger {
	if clk == nil {
		clk = clock.System()
	}
	if publisher == nil {
		publisher = events.Nop()
	}
	return &EscrowLedger{
		repo:      repo,
		transfers: transfers,
		locker:    locker,
		clock:     clk,
		publisher: publisher,
	}
}

// Create регистрирует контракт в статусе created с нулевым балансом.
func (l *EscrowLedger) Create(ctx context.Context, in CreateContractInput) (*entity.EscrowContract, error) {
	log := logger.WithContract(in.ContractID)

	contract, err := entity.NewEscrowContract(in.ContractID, in.TotalAmount, in.MilestoneCount, in.Freelancer, in.Client, l.clock.Now())
	if err != nil {
		return nil, err
	}

	err = l.locker.WithLock(ctx, lock.EscrowKey(in.ContractID), func(ctx context.Context) error {
		return l.repo.Create(ctx, contract)
	})
	if err != nil {
		log.WithField("operation", "create").WithError(err).Info("operation rejected")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"client":          contract.Client,
		"freelancer":      contract.Freelancer,
		"total_amount":    contract.TotalAmount,
		"milestone_count": contract.MilestoneCount,
		"escrow_account":  contract.EscrowAccount,
	}).Info("escrow contract created")
	return contract, nil
}

// update выполняет fn под блокировкой контракта в транзакции хранилища.
func (l *EscrowLedger) update(ctx context.Context, op, contractID string, fn func(ctx context.Context, agg *entity.EscrowAggregate, tr transfer.Transferer) error) (*entity.EscrowAggregate, error) {
	tracked := &trackedTransfers{next: l.transfers}

	var result *entity.EscrowAggregate
	err := l.locker.WithLock(ctx, lock.EscrowKey(contractID), func(ctx context.Context) error {
		agg, err := l.repo.Update(ctx, contractID, func(ctx context.Context, agg *entity.EscrowAggregate) error {
			return fn(ctx, agg, tracked)
		})
		result = agg
		return err
	})
	if err != nil {
		logOutcome(logger.WithContract(contractID), op, err, tracked)
		return nil, err
	}
	return result, nil
}

// Deposit переводит средства клиента на счёт эскроу.
func (l *EscrowLedger) Deposit(ctx context.Context, contractID string, caller valueobject.PartyID, amount uint64) (*entity.EscrowContract, error) {
	var plan entity.DepositPlan

	agg, err := l.update(ctx, "deposit", contractID, func(ctx context.Context, agg *entity.EscrowAggregate, tr transfer.Transferer) error {
		c := agg.Contract
		p, err := c.PlanDeposit(caller, amount)
		if err != nil {
			return err
		}
		if err := tr.Transfer(ctx, transfer.PartyAccount(caller), transfer.Account(c.EscrowAccount), amount); err != nil {
			return err
		}
		c.ApplyDeposit(p, l.clock.Now())
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := agg.Contract
	log := logger.WithContract(contractID)
	log.WithFields(logrus.Fields{
		"amount":         amount,
		"escrow_balance": c.EscrowBalance,
		"activated":      plan.Activates,
	}).Info("funds deposited")

	publish(ctx, l.publisher, log, events.New(events.TypeFundsDeposited, contractID, c.UpdatedAt, parties(c), map[string]any{
		"amount":         amount,
		"escrow_balance": c.EscrowBalance,
		"status":         string(c.Status),
	}))
	return c, nil
}

// SubmitMilestone фиксирует сдачу этапа исполнителем. Денег не двигает.
func (l *EscrowLedger) SubmitMilestone(ctx context.Context, contractID string, caller valueobject.PartyID, index uint8, proofURI string) (*entity.Milestone, error) {
	var milestone *entity.Milestone

	agg, err := l.update(ctx, "submit_milestone", contractID, func(ctx context.Context, agg *entity.EscrowAggregate, _ transfer.Transferer) error {
		m, err := agg.SubmitMilestone(caller, index, proofURI, l.clock.Now())
		if err != nil {
			return err
		}
		milestone = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithContract(contractID)
	log.WithField("milestone_index", index).Info("milestone submitted")

	publish(ctx, l.publisher, log, events.New(events.TypeMilestoneSubmitted, contractID, milestone.SubmittedAt, parties(agg.Contract), map[string]any{
		"milestone_index": index,
		"proof_uri":       milestone.ProofURI,
	}))
	return milestone, nil
}

// ApproveMilestone оплачивает сданный этап. Уход баланса в минус ловится до перевода.
func (l *EscrowLedger) ApproveMilestone(ctx context.Context, contractID string, caller valueobject.PartyID, index uint8) (*ApprovalResult, error) {
	var (
		plan      entity.ReleasePlan
		milestone *entity.Milestone
	)

	agg, err := l.update(ctx, "approve_milestone", contractID, func(ctx context.Context, agg *entity.EscrowAggregate, tr transfer.Transferer) error {
		p, err := agg.PlanApproval(caller, index)
		if err != nil {
			return err
		}
		c := agg.Contract
		if err := tr.Transfer(ctx, transfer.Account(c.EscrowAccount), transfer.PartyAccount(c.Freelancer), p.Payment); err != nil {
			return err
		}
		m, err := agg.ApplyApproval(p, l.clock.Now())
		if err != nil {
			return err
		}
		plan, milestone = p, m
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := agg.Contract
	log := logger.WithContract(contractID)
	log.WithFields(logrus.Fields{
		"milestone_index":      index,
		"payment":              plan.Payment,
		"escrow_balance":       c.EscrowBalance,
		"completed_milestones": c.CompletedMilestones,
	}).Info("milestone approved")

	publish(ctx, l.publisher, log, events.New(events.TypeMilestoneApproved, contractID, c.UpdatedAt, parties(c), map[string]any{
		"milestone_index": index,
		"payment":         plan.Payment,
		"amount_released": c.AmountReleased,
		"escrow_balance":  c.EscrowBalance,
	}))
	if plan.Completes {
		log.WithField("dust", c.EscrowBalance).Info("escrow contract completed")
		publish(ctx, l.publisher, log, events.New(events.TypeContractCompleted, contractID, c.UpdatedAt, parties(c), map[string]any{
			"amount_released": c.AmountReleased,
			"dust":            c.EscrowBalance,
		}))
	}

	return &ApprovalResult{Contract: c, Milestone: milestone, Payment: plan.Payment}, nil
}

// Dispute возвращает весь остаток клиенту и закрывает контракт спором.
func (l *EscrowLedger) Dispute(ctx context.Context, contractID string, caller valueobject.PartyID, reason string) (*entity.EscrowContract, error) {
	var plan entity.DisputePlan

	agg, err := l.update(ctx, "dispute", contractID, func(ctx context.Context, agg *entity.EscrowAggregate, tr transfer.Transferer) error {
		c := agg.Contract
		p, err := c.PlanDispute(caller, reason)
		if err != nil {
			return err
		}
		if p.Refund > 0 {
			if err := tr.Transfer(ctx, transfer.Account(c.EscrowAccount), transfer.PartyAccount(c.Client), p.Refund); err != nil {
				return err
			}
		}
		c.ApplyDispute(p, l.clock.Now())
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := agg.Contract
	log := logger.WithContract(contractID)
	log.WithField("refund", plan.Refund).Info("escrow contract disputed")

	publish(ctx, l.publisher, log, events.New(events.TypeContractDisputed, contractID, c.UpdatedAt, parties(c), map[string]any{
		"refund": plan.Refund,
		"reason": plan.Reason,
	}))
	return c, nil
}

func (l *EscrowLedger) GetContract(ctx context.Context, contractID string) (*entity.EscrowContract, error) {
	return l.repo.FindByID(ctx, contractID)
}

func (l *EscrowLedger) GetMilestone(ctx context.Context, contractID string, index uint8) (*entity.Milestone, error) {
	contract, err := l.repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if index >= contract.MilestoneCount {
		return nil, apperror.ErrInvalidMilestone
	}
	return l.repo.FindMilestone(ctx, contractID, index)
}

// ListMilestones возвращает сданные этапы по возрастанию индекса.
func (l *EscrowLedger) ListMilestones(ctx context.Context, contractID string) ([]*entity.Milestone, error) {
	if _, err := l.repo.FindByID(ctx, contractID); err != nil {
		return nil, err
	}
	return l.repo.ListMilestones(ctx, contractID)
}

func parties(c *entity.EscrowContract) []string {
	return []string{string(c.Client), string(c.Freelancer)}
}
