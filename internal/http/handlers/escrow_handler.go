package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-ledger/internal/authz"
	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/dto"
	"github.com/ignatzorin/escrow-ledger/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/service"
)

type EscrowHandler struct {
	escrow   *service.EscrowLedger
	admins   authz.AdminChecker
	decimals int32
}

func NewEscrowHandler(escrow *service.EscrowLedger, admins authz.AdminChecker, decimals int32) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, admins: admins, decimals: decimals}
}

// canView: контракт видят его стороны и администраторы.
func (h *EscrowHandler) canView(c *entity.EscrowContract, caller valueobject.PartyID) bool {
	return c.IsClient(caller) || c.IsFreelancer(caller) || (h.admins != nil && h.admins.IsAdmin(caller))
}

// CreateContract POST /contracts
func (h *EscrowHandler) CreateContract(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.CreateContractRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	client, err := valueobject.NewPartyID(req.Client)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	freelancer, err := valueobject.NewPartyID(req.Freelancer)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if caller != client && caller != freelancer {
		common.RespondAppError(c, apperror.New(apperror.ErrCodeForbidden, "контракт может создать только одна из его сторон"))
		return
	}

	contract, err := h.escrow.Create(c.Request.Context(), service.CreateContractInput{
		ContractID:     req.ContractID,
		TotalAmount:    req.TotalAmount,
		MilestoneCount: req.MilestoneCount,
		Freelancer:     freelancer,
		Client:         client,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewContractResponse(contract, h.decimals))
}

// GetContract GET /contracts/:id
func (h *EscrowHandler) GetContract(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	contract, err := h.escrow.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if !h.canView(contract, caller) {
		common.RespondAppError(c, apperror.ErrContractNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.decimals))
}

// Deposit POST /contracts/:id/deposit
func (h *EscrowHandler) Deposit(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.DepositRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	contract, err := h.escrow.Deposit(c.Request.Context(), c.Param("id"), caller, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.decimals))
}

// ListMilestones GET /contracts/:id/milestones
func (h *EscrowHandler) ListMilestones(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	contract, err := h.escrow.GetContract(ctx, c.Param("id"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if !h.canView(contract, caller) {
		common.RespondAppError(c, apperror.ErrContractNotFound)
		return
	}

	milestones, err := h.escrow.ListMilestones(ctx, contract.ContractID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_id": contract.ContractID,
		"milestones":  dto.NewMilestoneListResponse(milestones, h.decimals),
	})
}

// GetMilestone GET /contracts/:id/milestones/:index
func (h *EscrowHandler) GetMilestone(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	index, err := common.ParseMilestoneIndex(c, "index")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	ctx := c.Request.Context()
	contract, err := h.escrow.GetContract(ctx, c.Param("id"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if !h.canView(contract, caller) {
		common.RespondAppError(c, apperror.ErrContractNotFound)
		return
	}

	milestone, err := h.escrow.GetMilestone(ctx, contract.ContractID, index)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewMilestoneResponse(milestone, h.decimals))
}

// SubmitMilestone POST /contracts/:id/milestones/:index/submit
func (h *EscrowHandler) SubmitMilestone(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	index, err := common.ParseMilestoneIndex(c, "index")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.SubmitMilestoneRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	milestone, err := h.escrow.SubmitMilestone(c.Request.Context(), c.Param("id"), caller, index, req.ProofURI)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewMilestoneResponse(milestone, h.decimals))
}

// ApproveMilestone POST /contracts/:id/milestones/:index/approve
func (h *EscrowHandler) ApproveMilestone(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	index, err := common.ParseMilestoneIndex(c, "index")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	result, err := h.escrow.ApproveMilestone(c.Request.Context(), c.Param("id"), caller, index)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ApprovalResponse{
		Contract:       dto.NewContractResponse(result.Contract, h.decimals),
		Milestone:      dto.NewMilestoneResponse(result.Milestone, h.decimals),
		Payment:        result.Payment,
		PaymentDisplay: valueobject.FormatUnits(result.Payment, h.decimals),
	})
}

// Dispute POST /contracts/:id/dispute
func (h *EscrowHandler) Dispute(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.DisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	contract, err := h.escrow.Dispute(c.Request.Context(), c.Param("id"), caller, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.decimals))
}
