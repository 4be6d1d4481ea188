package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/authz"
	"github.com/ignatzorin/escrow-ledger/internal/clock"
	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/events"
	"github.com/ignatzorin/escrow-ledger/internal/lock"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
	"github.com/ignatzorin/escrow-ledger/internal/validation"
)

type CreateAuthorizationInput struct {
	ContractID      string
	Client          valueobject.PartyID
	Freelancer      valueobject.PartyID
	MaxPerMilestone uint64
	TotalAuthorized uint64
}

type ProcessPaymentInput struct {
	ContractID string
	Client     valueobject.PartyID
	Freelancer valueobject.PartyID
	Amount     uint64
	// MilestoneRef: необязательная ссылка на этап, только для журнала и событий.
	MilestoneRef string
}

type UpdateAuthorizationInput struct {
	ContractID string
	Client     valueobject.PartyID
	Caller     valueobject.PartyID
	NewMax     *uint64
	Additional *uint64
}

// AuthorizationLedger ведёт авторизации прямых платежей клиента исполнителю.
type AuthorizationLedger struct {
	repo      repository.AuthorizationRepository
	transfers transfer.Transferer
	locker    lock.Locker
	clock     clock.Clock
	publisher events.Publisher
	admins    authz.AdminChecker
}

func NewAuthorizationLedger(repo repository.AuthorizationRepository, transfers transfer.Transferer, locker lock.Locker, clk clock.Clock, publisher events.Publisher, admins authz.AdminChecker) *AuthorizationLedger {
	if clk == nil {
		clk = clock.System()
	}
	if publisher == nil {
		publisher = events.Nop()
	}
	if admins == nil {
		admins = authz.NewAdminSet(nil)
	}
	return &AuthorizationLedger{
		repo:      repo,
		transfers: transfers,
		locker:    locker,
		clock:     clk,
		publisher: publisher,
		admins:    admins,
	}
}

func authKey(client valueobject.PartyID, contractID string) entity.AuthorizationKey {
	return entity.AuthorizationKey{Client: client, ContractID: contractID}
}

// Create регистрирует авторизацию с нулевыми тратами.
func (l *AuthorizationLedger) Create(ctx context.Context, in CreateAuthorizationInput) (*entity.PaymentAuthorization, error) {
	log := logger.WithAuthorization(string(in.Client), in.ContractID)

	auth, err := entity.NewPaymentAuthorization(in.ContractID, in.Client, in.Freelancer, in.MaxPerMilestone, in.TotalAuthorized, l.clock.Now())
	if err != nil {
		return nil, err
	}

	err = l.locker.WithLock(ctx, lock.AuthorizationKey(string(in.Client), in.ContractID), func(ctx context.Context) error {
		return l.repo.Create(ctx, auth)
	})
	if err != nil {
		log.WithField("operation", "create").WithError(err).Info("operation rejected")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"freelancer":        auth.Freelancer,
		"max_per_milestone": auth.MaxPerMilestone,
		"total_authorized":  auth.TotalAuthorized,
	}).Info("payment authorization created")

	publish(ctx, l.publisher, log, events.New(events.TypeAuthorizationCreated, auth.ContractID, auth.AuthorizedAt, authParties(auth), map[string]any{
		"max_per_milestone": auth.MaxPerMilestone,
		"total_authorized":  auth.TotalAuthorized,
	}))
	return auth, nil
}

func (l *AuthorizationLedger) update(ctx context.Context, op string, key entity.AuthorizationKey, fn func(ctx context.Context, auth *entity.PaymentAuthorization, tr transfer.Transferer) error) (*entity.PaymentAuthorization, error) {
	tracked := &trackedTransfers{next: l.transfers}

	var result *entity.PaymentAuthorization
	err := l.locker.WithLock(ctx, lock.AuthorizationKey(string(key.Client), key.ContractID), func(ctx context.Context) error {
		auth, err := l.repo.Update(ctx, key, func(ctx context.Context, auth *entity.PaymentAuthorization) error {
			return fn(ctx, auth, tracked)
		})
		result = auth
		return err
	})
	if err != nil {
		logOutcome(logger.WithAuthorization(string(key.Client), key.ContractID), op, err, tracked)
		return nil, err
	}
	return result, nil
}

// ProcessPayment переводит средства клиента исполнителю в пределах лимитов.
func (l *AuthorizationLedger) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (*entity.PaymentAuthorization, error) {
	if err := validation.ValidateMilestoneRef(in.MilestoneRef); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var wasHigh bool
	auth, err := l.update(ctx, "process_payment", authKey(in.Client, in.ContractID), func(ctx context.Context, auth *entity.PaymentAuthorization, tr transfer.Transferer) error {
		plan, err := auth.PlanPayment(in.Client, in.Freelancer, in.Amount)
		if err != nil {
			return err
		}
		if err := tr.Transfer(ctx, transfer.PartyAccount(auth.Client), transfer.PartyAccount(auth.Freelancer), plan.Amount); err != nil {
			return err
		}
		wasHigh = auth.HighUsage()
		auth.ApplyPayment(plan, l.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithAuthorization(string(in.Client), in.ContractID)
	log.WithFields(logrus.Fields{
		"amount":        in.Amount,
		"total_spent":   auth.TotalSpent,
		"milestone_ref": in.MilestoneRef,
	}).Info("payment processed")

	publish(ctx, l.publisher, log, events.New(events.TypePaymentProcessed, auth.ContractID, auth.UpdatedAt, authParties(auth), map[string]any{
		"amount":        in.Amount,
		"total_spent":   auth.TotalSpent,
		"remaining":     auth.Remaining(),
		"milestone_ref": in.MilestoneRef,
	}))

	// Предупреждаем один раз, когда платёж переводит авторизацию через порог
	if auth.HighUsage() && !wasHigh {
		usage := valueobject.UsagePercent(auth.TotalSpent, auth.TotalAuthorized)
		log.WithFields(logrus.Fields{
			"total_spent":      auth.TotalSpent,
			"total_authorized": auth.TotalAuthorized,
			"usage_percent":    usage,
		}).Warn("authorization limit nearly exhausted")

		publish(ctx, l.publisher, log, events.New(events.TypeAuthorizationLimitWarning, auth.ContractID, auth.UpdatedAt, authParties(auth), map[string]any{
			"total_spent":      auth.TotalSpent,
			"total_authorized": auth.TotalAuthorized,
			"remaining":        auth.Remaining(),
			"usage_percent":    usage,
		}))
	}
	return auth, nil
}

// Revoke отключает авторизацию. Повторный вызов возвращает ту же неактивную запись.
func (l *AuthorizationLedger) Revoke(ctx context.Context, contractID string, client, caller valueobject.PartyID) (*entity.PaymentAuthorization, error) {
	var changed bool

	auth, err := l.update(ctx, "revoke", authKey(client, contractID), func(_ context.Context, auth *entity.PaymentAuthorization, _ transfer.Transferer) error {
		c, err := auth.Revoke(caller, l.clock.Now())
		changed = c
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithAuthorization(string(client), contractID)
	if !changed {
		log.Debug("payment authorization already inactive")
		return auth, nil
	}

	log.WithField("total_spent", auth.TotalSpent).Info("payment authorization revoked")
	publish(ctx, l.publisher, log, events.New(events.TypeAuthorizationRevoked, contractID, auth.UpdatedAt, authParties(auth), map[string]any{
		"total_spent": auth.TotalSpent,
	}))
	return auth, nil
}

// Update меняет лимит на этап и/или добавляет общий объём. Без параметров ничего не делает.
func (l *AuthorizationLedger) Update(ctx context.Context, in UpdateAuthorizationInput) (*entity.PaymentAuthorization, error) {
	var changed bool

	auth, err := l.update(ctx, "update", authKey(in.Client, in.ContractID), func(_ context.Context, auth *entity.PaymentAuthorization, _ transfer.Transferer) error {
		c, err := auth.Update(in.Caller, in.NewMax, in.Additional, l.clock.Now())
		changed = c
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return auth, nil
	}

	log := logger.WithAuthorization(string(in.Client), in.ContractID)
	log.WithFields(logrus.Fields{
		"max_per_milestone": auth.MaxPerMilestone,
		"total_authorized":  auth.TotalAuthorized,
	}).Info("payment authorization updated")

	publish(ctx, l.publisher, log, events.New(events.TypeAuthorizationUpdated, in.ContractID, auth.UpdatedAt, authParties(auth), map[string]any{
		"max_per_milestone": auth.MaxPerMilestone,
		"total_authorized":  auth.TotalAuthorized,
	}))
	return auth, nil
}

// Freeze: экстренное отключение авторизации администратором.
func (l *AuthorizationLedger) Freeze(ctx context.Context, contractID string, client, admin valueobject.PartyID) (*entity.PaymentAuthorization, error) {
	log := logger.WithAuthorization(string(client), contractID)

	if !l.admins.IsAdmin(admin) {
		log.WithField("caller", admin).Warn("freeze rejected: caller is not an admin")
		return nil, apperror.ErrUnauthorizedAdmin
	}

	var changed bool
	auth, err := l.update(ctx, "freeze", authKey(client, contractID), func(_ context.Context, auth *entity.PaymentAuthorization, _ transfer.Transferer) error {
		changed = auth.Freeze(admin, l.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"admin":   admin,
		"changed": changed,
	}).Warn("payment authorization frozen")

	if changed {
		publish(ctx, l.publisher, log, events.New(events.TypeAuthorizationFrozen, contractID, auth.UpdatedAt, authParties(auth), map[string]any{
			"frozen_by":   string(admin),
			"total_spent": auth.TotalSpent,
		}))
	}
	return auth, nil
}

func (l *AuthorizationLedger) Get(ctx context.Context, client valueobject.PartyID, contractID string) (*entity.PaymentAuthorization, error) {
	return l.repo.Find(ctx, authKey(client, contractID))
}

func (l *AuthorizationLedger) ListByClient(ctx context.Context, client valueobject.PartyID) ([]*entity.PaymentAuthorization, error) {
	return l.repo.ListByClient(ctx, client)
}

func authParties(a *entity.PaymentAuthorization) []string {
	return []string{string(a.Client), string(a.Freelancer)}
}
