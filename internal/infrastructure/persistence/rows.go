package persistence

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// Суммы хранятся в NUMERIC(20,0) и передаются строкой: database/sql
// не принимает uint64 со старшим битом.
func numeric(v uint64) string {
	return strconv.FormatUint(v, 10)
}

type contractRow struct {
	ContractID          string     `db:"contract_id"`
	EscrowAccount       string     `db:"escrow_account"`
	Client              string     `db:"client"`
	Freelancer          string     `db:"freelancer"`
	TotalAmount         uint64     `db:"total_amount"`
	MilestoneCount      uint8      `db:"milestone_count"`
	CompletedMilestones uint8      `db:"completed_milestones"`
	AmountReleased      uint64     `db:"amount_released"`
	EscrowBalance       uint64     `db:"escrow_balance"`
	Status              string     `db:"status"`
	DisputeReason       string     `db:"dispute_reason"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	CompletedAt         *time.Time `db:"completed_at"`
}

// toEntity отклоняет строку с неизвестным статусом вместо того, чтобы протащить его в реестр.
func (r *contractRow) toEntity() (*entity.EscrowContract, error) {
	status, err := valueobject.NewContractStatus(r.Status)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError,
			fmt.Sprintf("контракт %s: в базе некорректный статус %q", r.ContractID, r.Status))
	}

	return &entity.EscrowContract{
		ContractID:          r.ContractID,
		EscrowAccount:       r.EscrowAccount,
		Client:              valueobject.PartyID(r.Client),
		Freelancer:          valueobject.PartyID(r.Freelancer),
		TotalAmount:         r.TotalAmount,
		MilestoneCount:      r.MilestoneCount,
		CompletedMilestones: r.CompletedMilestones,
		AmountReleased:      r.AmountReleased,
		EscrowBalance:       r.EscrowBalance,
		Status:              status,
		DisputeReason:       r.DisputeReason,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		CompletedAt:         r.CompletedAt,
	}, nil
}

type milestoneRow struct {
	ContractID    string     `db:"contract_id"`
	Index         uint8      `db:"milestone_index"`
	ProofURI      string     `db:"proof_uri"`
	Approved      bool       `db:"approved"`
	PaymentAmount uint64     `db:"payment_amount"`
	SubmittedAt   time.Time  `db:"submitted_at"`
	ApprovedAt    *time.Time `db:"approved_at"`
}

func (r *milestoneRow) toEntity() *entity.Milestone {
	return &entity.Milestone{
		ContractID:    r.ContractID,
		Index:         r.Index,
		ProofURI:      r.ProofURI,
		Approved:      r.Approved,
		PaymentAmount: r.PaymentAmount,
		SubmittedAt:   r.SubmittedAt,
		ApprovedAt:    r.ApprovedAt,
	}
}

type authorizationRow struct {
	Client          string     `db:"client"`
	ContractID      string     `db:"contract_id"`
	Freelancer      string     `db:"freelancer"`
	MaxPerMilestone uint64     `db:"max_per_milestone"`
	TotalAuthorized uint64     `db:"total_authorized"`
	TotalSpent      uint64     `db:"total_spent"`
	Active          bool       `db:"active"`
	AuthorizedAt    time.Time  `db:"authorized_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	DeactivatedAt   *time.Time `db:"deactivated_at"`
	DeactivatedBy   *string    `db:"deactivated_by"`
}

func (r *authorizationRow) toEntity() *entity.PaymentAuthorization {
	a := &entity.PaymentAuthorization{
		ContractID:      r.ContractID,
		Client:          valueobject.PartyID(r.Client),
		Freelancer:      valueobject.PartyID(r.Freelancer),
		MaxPerMilestone: r.MaxPerMilestone,
		TotalAuthorized: r.TotalAuthorized,
		TotalSpent:      r.TotalSpent,
		Active:          r.Active,
		AuthorizedAt:    r.AuthorizedAt,
		UpdatedAt:       r.UpdatedAt,
		DeactivatedAt:   r.DeactivatedAt,
	}
	if r.DeactivatedBy != nil {
		by := valueobject.PartyID(*r.DeactivatedBy)
		a.DeactivatedBy = &by
	}
	return a
}
