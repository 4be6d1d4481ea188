package dto

// CreateContractRequest тело POST /contracts.
// Числовые поля без тегов binding: нули отклоняет реестр со своим кодом ошибки.
type CreateContractRequest struct {
	ContractID     string `json:"contract_id" binding:"required,max=64"`
	TotalAmount    uint64 `json:"total_amount"`
	MilestoneCount uint8  `json:"milestone_count"`
	Client         string `json:"client" binding:"required,max=64"`
	Freelancer     string `json:"freelancer" binding:"required,max=64"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

type SubmitMilestoneRequest struct {
	ProofURI string `json:"proof_uri" binding:"required,max=200"`
}

type DisputeRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateAuthorizationRequest тело POST /authorizations. Клиент берётся из токена.
type CreateAuthorizationRequest struct {
	ContractID      string `json:"contract_id" binding:"required,max=64"`
	Freelancer      string `json:"freelancer" binding:"required,max=64"`
	MaxPerMilestone uint64 `json:"max_per_milestone"`
	TotalAuthorized uint64 `json:"total_authorized"`
}

type ProcessPaymentRequest struct {
	Freelancer   string `json:"freelancer" binding:"required,max=64"`
	Amount       uint64 `json:"amount"`
	MilestoneRef string `json:"milestone_ref" binding:"max=64"`
}

// UpdateAuthorizationRequest: отсутствующее поле не меняется.
type UpdateAuthorizationRequest struct {
	NewMaxPerMilestone *uint64 `json:"new_max_per_milestone"`
	AdditionalAmount   *uint64 `json:"additional_amount"`
}
