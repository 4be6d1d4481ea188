package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/escrow-ledger/internal/logger"
)

// Logger интерфейс для логирования ошибок. *logrus.Logger и *logrus.Entry подходят.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// Recover вызывается через defer и гасит panic, записывая стек.
func (rh *RecoveryHandler) Recover(name string) {
	if r := recover(); r != nil {
		rh.logger.Errorf("panic in goroutine %s: %v\nstack trace:\n%s", name, r, debug.Stack())
	}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(name string, fn func()) {
	go func() {
		defer rh.Recover(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer rh.Recover(name)
		fn(ctx)
	}()
}

// globalLogger берёт logger.Log в момент ошибки, а не при старте пакета.
type globalLogger struct{}

func (globalLogger) Errorf(format string, args ...interface{}) {
	logger.Log.Errorf(format, args...)
}

// DefaultRecoveryHandler пишет паники в общий логгер приложения.
var DefaultRecoveryHandler = NewRecoveryHandler(globalLogger{})

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(name string, fn func()) {
	DefaultRecoveryHandler.SafeGo(name, fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, name, fn)
}
