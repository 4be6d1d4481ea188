package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-ledger/internal/dto"
	"github.com/ignatzorin/escrow-ledger/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
)

// AccountHandler отдаёт участнику его баланс и журнал переводов.
type AccountHandler struct {
	journal  transfer.Journal
	decimals int32
}

func NewAccountHandler(journal transfer.Journal, decimals int32) *AccountHandler {
	return &AccountHandler{journal: journal, decimals: decimals}
}

// GetMe GET /accounts/me
func (h *AccountHandler) GetMe(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	account := transfer.PartyAccount(caller)
	balance, err := h.journal.Balance(c.Request.Context(), account)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAccountResponse(account, balance, h.decimals))
}

// ListTransfers GET /accounts/me/transfers?limit=&offset=
func (h *AccountHandler) ListTransfers(c *gin.Context) {
	caller, err := common.CurrentPartyID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	limit, offset := common.GetPagination(c)
	account := transfer.PartyAccount(caller)

	records, err := h.journal.ListTransfers(c.Request.Context(), account, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transfers": dto.NewTransferListResponse(account, records, h.decimals),
		"limit":     limit,
		"offset":    offset,
	})
}
