package transfer

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-ledger/internal/clock"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/repository/common"
)

// PostgresLedger хранит балансы в account_balances и журнал в transfers.
// Если в ctx уже открыта транзакция хранилища, перевод проводится в ней,
// и фиксация состояния реестра и перевода происходит одним COMMIT.
type PostgresLedger struct {
	db    *sqlx.DB
	clock clock.Clock
}

func NewPostgresLedger(db *sqlx.DB, c clock.Clock) *PostgresLedger {
	if c == nil {
		c = clock.System()
	}
	return &PostgresLedger{db: db, clock: c}
}

// Суммы передаются строкой: database/sql не принимает uint64 со старшим битом.
func numeric(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

func (l *PostgresLedger) Transfer(ctx context.Context, from, to Account, amount uint64) error {
	if err := validate(from, to, amount); err != nil {
		return err
	}

	err := common.WithTransaction(ctx, l.db, func(ctx context.Context, tx *sqlx.Tx) error {
		// Блокируем обе строки в одном порядке, чтобы встречные переводы не вставали в deadlock
		var locked []string
		if err := tx.SelectContext(ctx, &locked, `
			SELECT account FROM account_balances
			WHERE account IN ($1, $2)
			ORDER BY account
			FOR UPDATE
		`, string(from), string(to)); err != nil {
			return err
		}

		var balance uint64
		err := tx.GetContext(ctx, &balance, `SELECT balance FROM account_balances WHERE account = $1`, string(from))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientFunds
			}
			return err
		}
		if balance < amount {
			return ErrInsufficientFunds
		}

		now := l.clock.Now()

		// Списываем
		if _, err := tx.ExecContext(ctx, `
			UPDATE account_balances SET balance = balance - $2::numeric, updated_at = $3
			WHERE account = $1
		`, string(from), numeric(amount), now); err != nil {
			return err
		}

		// Начисляем
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO account_balances (account, balance, updated_at)
			VALUES ($1, $2::numeric, $3)
			ON CONFLICT (account) DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		`, string(to), numeric(amount), now); err != nil {
			if common.IsCheckViolation(err) {
				return apperror.Wrap(err, apperror.ErrCodeArithmeticOverflow, "переполнение баланса получателя")
			}
			return err
		}

		// Журнал переводов
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transfers (id, from_account, to_account, amount, created_at)
			VALUES ($1, $2, $3, $4::numeric, $5)
		`, uuid.New(), string(from), string(to), numeric(amount), now)
		return err
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Wrap(err, apperror.ErrCodeTransferFailed, "перевод не проведён")
	}
	return nil
}

// Seed заводит счёт со стартовым балансом. Строка уже заведённого счёта не меняется,
// так что перезапуск сервиса с теми же SEED_BALANCES не начисляет средства повторно.
func (l *PostgresLedger) Seed(ctx context.Context, account Account, amount uint64) (bool, error) {
	if account == "" {
		return false, apperror.New(apperror.ErrCodeTransferFailed, "не указан счёт")
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO account_balances (account, balance, updated_at)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (account) DO NOTHING
	`, string(account), numeric(amount), l.clock.Now())
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завести счёт")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завести счёт")
	}
	return n == 1, nil
}

// Balance возвращает баланс счёта; неизвестный счёт имеет нулевой баланс.
func (l *PostgresLedger) Balance(ctx context.Context, account Account) (uint64, error) {
	var balance uint64
	err := l.db.GetContext(ctx, &balance, `SELECT balance FROM account_balances WHERE account = $1`, string(account))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить баланс")
	}
	return balance, nil
}

// ListTransfers возвращает историю переводов счёта, новые первыми.
func (l *PostgresLedger) ListTransfers(ctx context.Context, account Account, limit, offset int) ([]Record, error) {
	var records []Record
	err := l.db.SelectContext(ctx, &records, `
		SELECT id, from_account, to_account, amount, created_at
		FROM transfers WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, string(account), limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить историю переводов")
	}
	return records, nil
}
