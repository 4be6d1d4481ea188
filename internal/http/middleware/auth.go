package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-ledger/internal/dto"
)

// Context ключи для gin.Context.
const (
	ContextPartyIDKey = "partyID"
	ContextRoleKey    = "role"
)

// AccessTokenParser проверяет access токен и возвращает идентификатор участника и роль.
type AccessTokenParser interface {
	ParseAccess(token string) (string, string, error)
}

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Error: "требуется авторизация"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		partyID, role, err := tokens.ParseAccess(raw)
		if err != nil || partyID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Error: "токен невалиден"})
			return
		}

		c.Set(ContextPartyIDKey, partyID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}
