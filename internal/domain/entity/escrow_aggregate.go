package entity

import (
	"sort"
	"time"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// EscrowAggregate: контракт вместе с его этапами; единица атомарного обновления.
type EscrowAggregate struct {
	Contract   *EscrowContract
	milestones map[uint8]*Milestone
	dirty      map[uint8]struct{}
}

func NewEscrowAggregate(contract *EscrowContract, milestones []*Milestone) *EscrowAggregate {
	a := &EscrowAggregate{
		Contract:   contract,
		milestones: make(map[uint8]*Milestone, len(milestones)),
		dirty:      make(map[uint8]struct{}),
	}
	for _, m := range milestones {
		a.milestones[m.Index] = m
	}
	return a
}

func (a *EscrowAggregate) Milestone(index uint8) (*Milestone, bool) {
	m, ok := a.milestones[index]
	return m, ok
}

// PutMilestone добавляет или заменяет этап и помечает его к сохранению.
func (a *EscrowAggregate) PutMilestone(m *Milestone) {
	a.milestones[m.Index] = m
	a.dirty[m.Index] = struct{}{}
}

// SubmitMilestone создаёт запись о сдаче этапа. Повторная сдача запрещена.
func (a *EscrowAggregate) SubmitMilestone(caller valueobject.PartyID, index uint8, proofURI string, now time.Time) (*Milestone, error) {
	if err := a.Contract.checkSubmit(caller, index); err != nil {
		return nil, err
	}
	if _, exists := a.milestones[index]; exists {
		return nil, apperror.ErrMilestoneAlreadySubmitted
	}

	m, err := NewMilestone(a.Contract.ContractID, index, proofURI, now)
	if err != nil {
		return nil, err
	}
	a.PutMilestone(m)
	return m, nil
}

// PlanApproval проверяет одобрение этапа: сначала контракт, затем сам этап,
// и только потом арифметику. Агрегат не меняется.
func (a *EscrowAggregate) PlanApproval(caller valueobject.PartyID, index uint8) (ReleasePlan, error) {
	if err := a.Contract.checkApproval(caller, index); err != nil {
		return ReleasePlan{}, err
	}
	m, ok := a.milestones[index]
	if !ok {
		return ReleasePlan{}, apperror.ErrMilestoneNotFound
	}
	if err := m.CheckApprove(); err != nil {
		return ReleasePlan{}, err
	}
	return a.Contract.planRelease(index)
}

// ApplyApproval фиксирует выплату после успешного перевода.
func (a *EscrowAggregate) ApplyApproval(plan ReleasePlan, now time.Time) (*Milestone, error) {
	m, ok := a.milestones[plan.Index]
	if !ok {
		return nil, apperror.ErrMilestoneNotFound
	}
	if err := m.Approve(plan.Payment, now); err != nil {
		return nil, err
	}
	a.dirty[plan.Index] = struct{}{}
	a.Contract.applyRelease(plan, now)
	return m, nil
}

// Milestones возвращает этапы по возрастанию индекса.
func (a *EscrowAggregate) Milestones() []*Milestone {
	return sortedMilestones(a.milestones, nil)
}

// DirtyMilestones возвращает этапы, изменённые с момента загрузки.
func (a *EscrowAggregate) DirtyMilestones() []*Milestone {
	return sortedMilestones(a.milestones, a.dirty)
}

// Clone делает глубокую копию, с которой работает транзакция.
func (a *EscrowAggregate) Clone() *EscrowAggregate {
	contract := *a.Contract
	if a.Contract.CompletedAt != nil {
		t := *a.Contract.CompletedAt
		contract.CompletedAt = &t
	}

	milestones := make([]*Milestone, 0, len(a.milestones))
	for _, m := range a.milestones {
		milestones = append(milestones, m.clone())
	}
	return NewEscrowAggregate(&contract, milestones)
}

func (m *Milestone) clone() *Milestone {
	c := *m
	if m.ApprovedAt != nil {
		t := *m.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

func sortedMilestones(all map[uint8]*Milestone, filter map[uint8]struct{}) []*Milestone {
	result := make([]*Milestone, 0, len(all))
	for idx, m := range all {
		if filter != nil {
			if _, ok := filter[idx]; !ok {
				continue
			}
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}
