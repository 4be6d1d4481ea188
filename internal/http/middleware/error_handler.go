package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/dto"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, если ответ ещё не отправлен.
// Внутренние ошибки маскируются, ошибки реестра отдаются с кодом.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := ErrorBody(err)

		fields := logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"status":     status,
			"request_id": c.GetString(ContextRequestIDKey),
		}
		if status >= http.StatusInternalServerError {
			logger.Log.WithFields(fields).WithError(err).Error("request failed")
		} else {
			logger.Log.WithFields(fields).WithError(err).Debug("request rejected")
		}

		c.JSON(status, body)
	}
}

// ErrorBody переводит ошибку в HTTP статус и тело ответа.
func ErrorBody(err error) (int, dto.ErrorResponse) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, dto.ErrorResponse{
			Code:  string(apperror.ErrCodeInternal),
			Error: "внутренняя ошибка сервера",
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := appErr.Message
	if status >= http.StatusInternalServerError {
		message = "внутренняя ошибка сервера"
	}
	return status, dto.ErrorResponse{Code: string(appErr.Code), Error: message}
}
