package dto

import (
	"time"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
)

// Суммы отдаются в минимальных единицах и дублируются строкой *_display.

type ContractResponse struct {
	ContractID              string     `json:"contract_id"`
	EscrowAccount           string     `json:"escrow_account"`
	Client                  string     `json:"client"`
	Freelancer              string     `json:"freelancer"`
	Status                  string     `json:"status"`
	TotalAmount             uint64     `json:"total_amount"`
	TotalAmountDisplay      string     `json:"total_amount_display"`
	MilestoneCount          uint8      `json:"milestone_count"`
	CompletedMilestones     uint8      `json:"completed_milestones"`
	MilestonePayment        uint64     `json:"milestone_payment"`
	MilestonePaymentDisplay string     `json:"milestone_payment_display"`
	AmountReleased          uint64     `json:"amount_released"`
	AmountReleasedDisplay   string     `json:"amount_released_display"`
	EscrowBalance           uint64     `json:"escrow_balance"`
	EscrowBalanceDisplay    string     `json:"escrow_balance_display"`
	Dust                    uint64     `json:"dust"`
	RemainingToFund         uint64     `json:"remaining_to_fund"`
	DisputeReason           string     `json:"dispute_reason,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
}

func NewContractResponse(c *entity.EscrowContract, decimals int32) *ContractResponse {
	return &ContractResponse{
		ContractID:              c.ContractID,
		EscrowAccount:           c.EscrowAccount,
		Client:                  c.Client.String(),
		Freelancer:              c.Freelancer.String(),
		Status:                  string(c.Status),
		TotalAmount:             c.TotalAmount,
		TotalAmountDisplay:      valueobject.FormatUnits(c.TotalAmount, decimals),
		MilestoneCount:          c.MilestoneCount,
		CompletedMilestones:     c.CompletedMilestones,
		MilestonePayment:        c.MilestonePayment(),
		MilestonePaymentDisplay: valueobject.FormatUnits(c.MilestonePayment(), decimals),
		AmountReleased:          c.AmountReleased,
		AmountReleasedDisplay:   valueobject.FormatUnits(c.AmountReleased, decimals),
		EscrowBalance:           c.EscrowBalance,
		EscrowBalanceDisplay:    valueobject.FormatUnits(c.EscrowBalance, decimals),
		Dust:                    c.Dust(),
		RemainingToFund:         c.RemainingToFund(),
		DisputeReason:           c.DisputeReason,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
		CompletedAt:             c.CompletedAt,
	}
}

type MilestoneResponse struct {
	ContractID           string     `json:"contract_id"`
	Index                uint8      `json:"index"`
	ProofURI             string     `json:"proof_uri"`
	Approved             bool       `json:"approved"`
	PaymentAmount        uint64     `json:"payment_amount"`
	PaymentAmountDisplay string     `json:"payment_amount_display"`
	SubmittedAt          time.Time  `json:"submitted_at"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty"`
}

func NewMilestoneResponse(m *entity.Milestone, decimals int32) *MilestoneResponse {
	return &MilestoneResponse{
		ContractID:           m.ContractID,
		Index:                m.Index,
		ProofURI:             m.ProofURI,
		Approved:             m.Approved,
		PaymentAmount:        m.PaymentAmount,
		PaymentAmountDisplay: valueobject.FormatUnits(m.PaymentAmount, decimals),
		SubmittedAt:          m.SubmittedAt,
		ApprovedAt:           m.ApprovedAt,
	}
}

func NewMilestoneListResponse(milestones []*entity.Milestone, decimals int32) []*MilestoneResponse {
	out := make([]*MilestoneResponse, 0, len(milestones))
	for _, m := range milestones {
		out = append(out, NewMilestoneResponse(m, decimals))
	}
	return out
}

// ApprovalResponse ответ на оплату этапа.
type ApprovalResponse struct {
	Contract       *ContractResponse  `json:"contract"`
	Milestone      *MilestoneResponse `json:"milestone"`
	Payment        uint64             `json:"payment"`
	PaymentDisplay string             `json:"payment_display"`
}

type AuthorizationResponse struct {
	ContractID             string     `json:"contract_id"`
	Client                 string     `json:"client"`
	Freelancer             string     `json:"freelancer"`
	Active                 bool       `json:"active"`
	MaxPerMilestone        uint64     `json:"max_per_milestone"`
	MaxPerMilestoneDisplay string     `json:"max_per_milestone_display"`
	TotalAuthorized        uint64     `json:"total_authorized"`
	TotalAuthorizedDisplay string     `json:"total_authorized_display"`
	TotalSpent             uint64     `json:"total_spent"`
	TotalSpentDisplay      string     `json:"total_spent_display"`
	Remaining              uint64     `json:"remaining"`
	RemainingDisplay       string     `json:"remaining_display"`
	AuthorizedAt           time.Time  `json:"authorized_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	DeactivatedAt          *time.Time `json:"deactivated_at,omitempty"`
	DeactivatedBy          string     `json:"deactivated_by,omitempty"`
}

func NewAuthorizationResponse(a *entity.PaymentAuthorization, decimals int32) *AuthorizationResponse {
	resp := &AuthorizationResponse{
		ContractID:             a.ContractID,
		Client:                 a.Client.String(),
		Freelancer:             a.Freelancer.String(),
		Active:                 a.Active,
		MaxPerMilestone:        a.MaxPerMilestone,
		MaxPerMilestoneDisplay: valueobject.FormatUnits(a.MaxPerMilestone, decimals),
		TotalAuthorized:        a.TotalAuthorized,
		TotalAuthorizedDisplay: valueobject.FormatUnits(a.TotalAuthorized, decimals),
		TotalSpent:             a.TotalSpent,
		TotalSpentDisplay:      valueobject.FormatUnits(a.TotalSpent, decimals),
		Remaining:              a.Remaining(),
		RemainingDisplay:       valueobject.FormatUnits(a.Remaining(), decimals),
		AuthorizedAt:           a.AuthorizedAt,
		UpdatedAt:              a.UpdatedAt,
		DeactivatedAt:          a.DeactivatedAt,
	}
	if a.DeactivatedBy != nil {
		resp.DeactivatedBy = a.DeactivatedBy.String()
	}
	return resp
}

func NewAuthorizationListResponse(list []*entity.PaymentAuthorization, decimals int32) []*AuthorizationResponse {
	out := make([]*AuthorizationResponse, 0, len(list))
	for _, a := range list {
		out = append(out, NewAuthorizationResponse(a, decimals))
	}
	return out
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}
