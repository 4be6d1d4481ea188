package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-ledger/internal/events"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
)

type transferRecord struct {
	From   transfer.Account
	To     transfer.Account
	Amount uint64
}

// trackedTransfers запоминает проведённые переводы операции, чтобы при сбое
// фиксации было видно, какие деньги ушли без записи в реестре.
type trackedTransfers struct {
	next transfer.Transferer
	done []transferRecord
}

func (t *trackedTransfers) Transfer(ctx context.Context, from, to transfer.Account, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.next.Transfer(ctx, from, to, amount); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Wrap(err, apperror.ErrCodeTransferFailed, "перевод не проведён")
	}
	t.done = append(t.done, transferRecord{From: from, To: to, Amount: amount})
	return nil
}

// logOutcome пишет результат неуспешной операции. Нарушения целостности
// и расхождение с реестром переводов пишутся на уровне Error.
func logOutcome(log *logrus.Entry, op string, err error, transfers *trackedTransfers) {
	log = log.WithField("operation", op)

	switch {
	case apperror.IsFatal(err):
		log.WithField("integrity_violation", true).WithError(err).Error("ledger integrity violation")
	case len(transfers.done) > 0:
		// Перевод прошёл, а состояние не сохранилось
		for _, tr := range transfers.done {
			log.WithFields(logrus.Fields{
				"ledger_drift": true,
				"from":         tr.From,
				"to":           tr.To,
				"amount":       tr.Amount,
			}).WithError(err).Error("ledger drift: transfer may have been executed without committed state")
		}
	case apperror.CodeOf(err) == "" || apperror.HasCode(err, apperror.ErrCodeTransferFailed) || apperror.HasCode(err, apperror.ErrCodeDatabaseError):
		log.WithError(err).Error("operation failed")
	case apperror.IsForbidden(err):
		log.WithField("error_code", apperror.CodeOf(err)).Warn("operation denied for caller")
	case apperror.IsValidation(err):
		log.WithError(err).Debug("operation rejected by validation")
	default:
		log.WithError(err).Info("operation rejected")
	}
}

// publish отправляет событие после фиксации. Ошибка доставки не отменяет операцию.
func publish(ctx context.Context, publisher events.Publisher, log *logrus.Entry, event events.Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).WithError(err).Warn("failed to publish event")
	}
}
