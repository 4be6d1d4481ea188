package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// Account: счёт во внешнем реестре переводов: участник или пул эскроу.
type Account string

func PartyAccount(p valueobject.PartyID) Account {
	return Account(p)
}

// Transferer переводит средства между счетами. Вызов либо проводит перевод целиком,
// либо возвращает ошибку и ничего не меняет.
type Transferer interface {
	Transfer(ctx context.Context, from, to Account, amount uint64) error
}

// Journal отдаёт баланс счёта и историю его переводов, новые первыми.
type Journal interface {
	Balance(ctx context.Context, account Account) (uint64, error)
	ListTransfers(ctx context.Context, account Account, limit, offset int) ([]Record, error)
}

// Ledger: реестр переводов с журналом и стартовым пополнением счетов.
// Seed зачисляет сумму только на ещё не заведённый счёт и сообщает, было ли зачисление,
// поэтому повторный запуск с теми же стартовыми балансами ничего не меняет.
type Ledger interface {
	Transferer
	Journal
	Seed(ctx context.Context, account Account, amount uint64) (bool, error)
}

// Record: проведённый перевод.
type Record struct {
	ID        uuid.UUID `db:"id"`
	From      Account   `db:"from_account"`
	To        Account   `db:"to_account"`
	Amount    uint64    `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

var ErrInsufficientFunds = apperror.New(apperror.ErrCodeTransferFailed, "недостаточно средств на счёте")

func validate(from, to Account, amount uint64) error {
	if amount == 0 {
		return apperror.New(apperror.ErrCodeInvalidAmount, "сумма перевода должна быть положительной")
	}
	if from == "" || to == "" {
		return apperror.New(apperror.ErrCodeTransferFailed, "не указан счёт перевода")
	}
	if from == to {
		return apperror.New(apperror.ErrCodeTransferFailed, "перевод на тот же счёт")
	}
	return nil
}
