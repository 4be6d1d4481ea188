package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-ledger/internal/dto"
	"github.com/ignatzorin/escrow-ledger/internal/validation"
)

// ContractIDValidator проверяет формат идентификатора контракта в параметре пути.
// Использование: router.GET("/contracts/:id", ContractIDValidator("id"), handler.GetContract)
func ContractIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validation.ValidateContractID(c.Param(paramName)); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:  "VALIDATION_ERROR",
				Error: "параметр " + paramName + ": " + err.Error(),
			})
			return
		}
		c.Next()
	}
}
