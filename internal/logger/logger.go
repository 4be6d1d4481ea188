package logger

import (
	"github.com/sirupsen/logrus"
)

// Log: глобальный логгер. До вызова Init пишет в stderr с уровнем Info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// WithContract добавляет идентификатор контракта эскроу.
func WithContract(contractID string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"ledger":      "escrow",
		"contract_id": contractID,
	})
}

// WithAuthorization добавляет ключ авторизации платежей.
func WithAuthorization(client, contractID string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"ledger":      "authorization",
		"client":      client,
		"contract_id": contractID,
	})
}
