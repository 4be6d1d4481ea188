package entity

import (
	"time"

	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/validation"
)

type Milestone struct {
	ContractID    string
	Index         uint8
	ProofURI      string
	Approved      bool
	PaymentAmount uint64
	SubmittedAt   time.Time
	ApprovedAt    *time.Time
}

func NewMilestone(contractID string, index uint8, proofURI string, now time.Time) (*Milestone, error) {
	if err := validation.ValidateProofURI(proofURI); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return &Milestone{
		ContractID:  contractID,
		Index:       index,
		ProofURI:    proofURI,
		SubmittedAt: now,
	}, nil
}

// CheckApprove проверяет, что этап ещё не оплачен.
func (m *Milestone) CheckApprove() error {
	if m.Approved {
		return apperror.ErrMilestoneAlreadyApproved
	}
	return nil
}

// Approve отмечает этап оплаченным. Флаг выставляется один раз.
func (m *Milestone) Approve(payment uint64, now time.Time) error {
	if err := m.CheckApprove(); err != nil {
		return err
	}
	m.Approved = true
	m.PaymentAmount = payment
	approvedAt := now
	m.ApprovedAt = &approvedAt
	return nil
}
