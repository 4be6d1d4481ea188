package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/http/middleware"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// ErrPartyNotFound возвращается, если в контексте нет участника из токена.
var ErrPartyNotFound = errors.New("участник не найден в контексте")

// CurrentPartyID извлекает идентификатор участника, проверенный AuthMiddleware.
func CurrentPartyID(c *gin.Context) (valueobject.PartyID, error) {
	raw, exists := c.Get(middleware.ContextPartyIDKey)
	if !exists {
		return "", ErrPartyNotFound
	}

	id, ok := raw.(string)
	if !ok {
		return "", ErrPartyNotFound
	}
	partyID, err := valueobject.NewPartyID(id)
	if err != nil {
		return "", ErrPartyNotFound
	}

	return partyID, nil
}

// ParseMilestoneIndex читает индекс этапа (0..254) из параметра пути.
func ParseMilestoneIndex(c *gin.Context, paramName string) (uint8, error) {
	index, err := strconv.ParseUint(c.Param(paramName), 10, 8)
	if err != nil {
		return 0, apperror.ErrInvalidMilestone
	}
	return uint8(index), nil
}

// BindJSON разбирает тело запроса; ошибка биндинга становится VALIDATION_ERROR.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "ошибка валидации запроса: "+err.Error())
	}
	return nil
}

// RespondAppError отправляет ответ с кодом ошибки реестра.
func RespondAppError(c *gin.Context, err error) {
	status, body := middleware.ErrorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Log.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString(middleware.ContextRequestIDKey),
		}).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

// RespondUnauthorized отправляет 401.
func RespondUnauthorized(c *gin.Context) {
	RespondAppError(c, apperror.ErrUnauthorized)
}

// ParseIntQuery читает целый параметр запроса; пустой или некорректный даёт значение по умолчанию.
func ParseIntQuery(c *gin.Context, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetPagination извлекает limit и offset с ограничениями по умолчанию.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 50)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 200 {
		limit = 200
	}
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
