package valueobject

import "github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"

type ContractStatus string

const (
	ContractStatusCreated   ContractStatus = "created"
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusDisputed  ContractStatus = "disputed"
)

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusCreated:   {ContractStatusActive},
	ContractStatusActive:    {ContractStatusCompleted, ContractStatusDisputed},
	ContractStatusCompleted: {},
	ContractStatusDisputed:  {},
}

func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusCreated, ContractStatusActive, ContractStatusCompleted, ContractStatusDisputed:
		return true
	}
	return false
}

// CanTransitionTo разрешает только движение вперёд.
func (s ContractStatus) CanTransitionTo(newStatus ContractStatus) bool {
	allowed, ok := contractTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для completed и disputed.
func (s ContractStatus) IsTerminal() bool {
	return s.IsValid() && len(contractTransitions[s]) == 0
}

// AcceptsFunds сообщает, можно ли вносить средства в контракт в этом статусе.
func (s ContractStatus) AcceptsFunds() bool {
	return s.IsValid() && !s.IsTerminal()
}

func NewContractStatus(status string) (ContractStatus, error) {
	s := ContractStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус контракта")
	}
	return s, nil
}
