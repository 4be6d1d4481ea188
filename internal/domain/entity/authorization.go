package entity

import (
	"time"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/validation"
)

// AuthorizationKey: одна авторизация на пару (клиент, контракт).
type AuthorizationKey struct {
	Client     valueobject.PartyID
	ContractID string
}

func (k AuthorizationKey) String() string {
	return string(k.Client) + "/" + k.ContractID
}

type PaymentAuthorization struct {
	ContractID      string
	Client          valueobject.PartyID
	Freelancer      valueobject.PartyID
	MaxPerMilestone uint64
	TotalAuthorized uint64
	TotalSpent      uint64
	Active          bool
	AuthorizedAt    time.Time
	UpdatedAt       time.Time
	DeactivatedAt   *time.Time
	DeactivatedBy   *valueobject.PartyID
}

func NewPaymentAuthorization(contractID string, client, freelancer valueobject.PartyID, maxPerMilestone, totalAuthorized uint64, now time.Time) (*PaymentAuthorization, error) {
	if err := validation.ValidateContractID(contractID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePartyID(string(client)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePartyID(string(freelancer)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if maxPerMilestone == 0 || totalAuthorized == 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidAmount, "лимиты авторизации должны быть положительными")
	}
	if maxPerMilestone > totalAuthorized {
		return nil, apperror.Newf(apperror.ErrCodeExceedsTotal,
			"лимит на этап %d больше общего лимита %d", maxPerMilestone, totalAuthorized)
	}

	return &PaymentAuthorization{
		ContractID:      contractID,
		Client:          client,
		Freelancer:      freelancer,
		MaxPerMilestone: maxPerMilestone,
		TotalAuthorized: totalAuthorized,
		Active:          true,
		AuthorizedAt:    now,
		UpdatedAt:       now,
	}, nil
}

func (a *PaymentAuthorization) Key() AuthorizationKey {
	return AuthorizationKey{Client: a.Client, ContractID: a.ContractID}
}

// Remaining: сколько ещё можно потратить.
func (a *PaymentAuthorization) Remaining() uint64 {
	if a.TotalSpent >= a.TotalAuthorized {
		return 0
	}
	return a.TotalAuthorized - a.TotalSpent
}

// UsageWarningPercent: порог использования лимита, после которого участников предупреждают.
const UsageWarningPercent = 80

// HighUsage: потрачено не меньше UsageWarningPercent процентов общего лимита.
func (a *PaymentAuthorization) HighUsage() bool {
	return valueobject.UsageAtLeast(a.TotalSpent, a.TotalAuthorized, UsageWarningPercent)
}

type PaymentPlan struct {
	Amount   uint64
	NewSpent uint64
}

// PlanPayment проверяет прямой платёж в том же порядке, что и исходный контракт:
// активность, сумма, лимит на этап, общий лимит, затем стороны.
func (a *PaymentAuthorization) PlanPayment(client, freelancer valueobject.PartyID, amount uint64) (PaymentPlan, error) {
	if !a.Active {
		return PaymentPlan{}, apperror.ErrAuthorizationInactive
	}
	if amount == 0 {
		return PaymentPlan{}, apperror.New(apperror.ErrCodeInvalidAmount, "сумма платежа должна быть положительной")
	}
	if !valueobject.WithinLimit(amount, a.MaxPerMilestone) {
		return PaymentPlan{}, apperror.Newf(apperror.ErrCodeExceedsPerMilestone,
			"платёж %d превышает лимит на этап %d", amount, a.MaxPerMilestone)
	}
	newSpent, ok, err := valueobject.CheckedAddWithinLimit(a.TotalSpent, amount, a.TotalAuthorized)
	if err != nil {
		return PaymentPlan{}, err
	}
	if !ok {
		return PaymentPlan{}, apperror.Newf(apperror.ErrCodeExceedsTotal,
			"платёж превышает общий лимит: %d > %d", newSpent, a.TotalAuthorized)
	}
	if a.Client != client {
		return PaymentPlan{}, apperror.ErrUnauthorizedClient
	}
	if a.Freelancer != freelancer {
		return PaymentPlan{}, apperror.ErrUnauthorizedFreelancer
	}
	return PaymentPlan{Amount: amount, NewSpent: newSpent}, nil
}

func (a *PaymentAuthorization) ApplyPayment(plan PaymentPlan, now time.Time) {
	a.TotalSpent = plan.NewSpent
	a.UpdatedAt = now
}

// Revoke деактивирует авторизацию. Повторный отзыв ничего не меняет и не ошибка.
func (a *PaymentAuthorization) Revoke(caller valueobject.PartyID, now time.Time) (bool, error) {
	if a.Client != caller {
		return false, apperror.ErrUnauthorizedClient
	}
	if !a.Active {
		return false, nil
	}
	a.deactivate(caller, now)
	return true, nil
}

// Update меняет лимиты. Новый лимит на этап проверяется до увеличения общего.
func (a *PaymentAuthorization) Update(caller valueobject.PartyID, newMax, additional *uint64, now time.Time) (bool, error) {
	if a.Client != caller {
		return false, apperror.ErrUnauthorizedClient
	}
	if !a.Active {
		return false, apperror.ErrAuthorizationInactive
	}

	maxPerMilestone := a.MaxPerMilestone
	totalAuthorized := a.TotalAuthorized

	if newMax != nil {
		if *newMax == 0 {
			return false, apperror.New(apperror.ErrCodeInvalidAmount, "лимит на этап должен быть положительным")
		}
		if *newMax > a.Remaining() {
			return false, apperror.Newf(apperror.ErrCodeExceedsTotal,
				"лимит на этап %d больше остатка %d", *newMax, a.Remaining())
		}
		maxPerMilestone = *newMax
	}

	if additional != nil {
		if *additional == 0 {
			return false, apperror.New(apperror.ErrCodeInvalidAmount, "дополнительная сумма должна быть положительной")
		}
		sum, err := valueobject.CheckedAdd(totalAuthorized, *additional)
		if err != nil {
			return false, err
		}
		totalAuthorized = sum
	}

	if newMax == nil && additional == nil {
		return false, nil
	}

	a.MaxPerMilestone = maxPerMilestone
	a.TotalAuthorized = totalAuthorized
	a.UpdatedAt = now
	return true, nil
}

// Freeze безусловно деактивирует авторизацию. Права администратора проверяет вызывающий.
func (a *PaymentAuthorization) Freeze(admin valueobject.PartyID, now time.Time) bool {
	if !a.Active {
		return false
	}
	a.deactivate(admin, now)
	return true
}

func (a *PaymentAuthorization) deactivate(by valueobject.PartyID, now time.Time) {
	a.Active = false
	deactivatedAt := now
	a.DeactivatedAt = &deactivatedAt
	a.DeactivatedBy = &by
	a.UpdatedAt = now
}

// Clone возвращает независимую копию.
func (a *PaymentAuthorization) Clone() *PaymentAuthorization {
	c := *a
	if a.DeactivatedAt != nil {
		t := *a.DeactivatedAt
		c.DeactivatedAt = &t
	}
	if a.DeactivatedBy != nil {
		p := *a.DeactivatedBy
		c.DeactivatedBy = &p
	}
	return &c
}
