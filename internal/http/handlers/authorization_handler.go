package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/dto"
	"github.com/ignatzorin/escrow-ledger/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/service"
)

// AuthorizationHandler обслуживает авторизации прямых платежей.
// Клиент авторизации всегда берётся из токена, кроме чтения и заморозки.
type AuthorizationHandler struct {
	authorizations *service.AuthorizationLedger
	decimals       int32
}

func NewAuthorizationHandler(authorizations *service.AuthorizationLedger, decimals int32) *AuthorizationHandler {
	return &AuthorizationHandler{authorizations: authorizations, decimals: decimals}
}

// Create POST /authorizations
func (h *AuthorizationHandler) Create(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.CreateAuthorizationRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	freelancer, err := valueobject.NewPartyID(req.Freelancer)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	auth, err := h.authorizations.Create(c.Request.Context(), service.CreateAuthorizationInput{
		ContractID:      req.ContractID,
		Client:          caller,
		Freelancer:      freelancer,
		MaxPerMilestone: req.MaxPerMilestone,
		TotalAuthorized: req.TotalAuthorized,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAuthorizationResponse(auth, h.decimals))
}

// List GET /authorizations
func (h *AuthorizationHandler) List(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	list, err := h.authorizations.ListByClient(c.Request.Context(), caller)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorizations": dto.NewAuthorizationListResponse(list, h.decimals)})
}

// Get GET /authorizations/:contractId[?client=...]
// Без client читается авторизация вызывающего; исполнитель передаёт client явно.
func (h *AuthorizationHandler) Get(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	client := caller
	if q := c.Query("client"); q != "" {
		if client, err = valueobject.NewPartyID(q); err != nil {
			common.RespondAppError(c, err)
			return
		}
	}

	auth, err := h.authorizations.Get(c.Request.Context(), client, c.Param("contractId"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if auth.Client != caller && auth.Freelancer != caller {
		common.RespondAppError(c, apperror.ErrAuthorizationNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthorizationResponse(auth, h.decimals))
}

// ProcessPayment POST /authorizations/:contractId/payments
func (h *AuthorizationHandler) ProcessPayment(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.ProcessPaymentRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}
	freelancer, err := valueobject.NewPartyID(req.Freelancer)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	auth, err := h.authorizations.ProcessPayment(c.Request.Context(), service.ProcessPaymentInput{
		ContractID:   c.Param("contractId"),
		Client:       caller,
		Freelancer:   freelancer,
		Amount:       req.Amount,
		MilestoneRef: req.MilestoneRef,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthorizationResponse(auth, h.decimals))
}

// Revoke POST /authorizations/:contractId/revoke
func (h *AuthorizationHandler) Revoke(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	auth, err := h.authorizations.Revoke(c.Request.Context(), c.Param("contractId"), caller, caller)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthorizationResponse(auth, h.decimals))
}

// Update PATCH /authorizations/:contractId
func (h *AuthorizationHandler) Update(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.UpdateAuthorizationRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	auth, err := h.authorizations.Update(c.Request.Context(), service.UpdateAuthorizationInput{
		ContractID: c.Param("contractId"),
		Client:     caller,
		Caller:     caller,
		NewMax:     req.NewMaxPerMilestone,
		Additional: req.AdditionalAmount,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthorizationResponse(auth, h.decimals))
}

// Freeze POST /admin/authorizations/:client/:contractId/freeze
func (h *AuthorizationHandler) Freeze(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	client, err := valueobject.NewPartyID(c.Param("client"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	auth, err := h.authorizations.Freeze(c.Request.Context(), c.Param("contractId"), client, caller)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthorizationResponse(auth, h.decimals))
}
