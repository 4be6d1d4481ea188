package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/repository/common"
)

type AuthorizationRepository struct {
	db *sqlx.DB
}

var _ repository.AuthorizationRepository = (*AuthorizationRepository)(nil)

func NewAuthorizationRepository(db *sqlx.DB) *AuthorizationRepository {
	return &AuthorizationRepository{db: db}
}

func (r *AuthorizationRepository) Create(ctx context.Context, a *entity.PaymentAuthorization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_authorizations (
			client, contract_id, freelancer, max_per_milestone, total_authorized, total_spent,
			active, authorized_at, updated_at
		)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9)
	`,
		string(a.Client),
		a.ContractID,
		string(a.Freelancer),
		numeric(a.MaxPerMilestone),
		numeric(a.TotalAuthorized),
		numeric(a.TotalSpent),
		a.Active,
		a.AuthorizedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.ErrDuplicateAuthorization
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать авторизацию")
	}
	return nil
}

func (r *AuthorizationRepository) find(ctx context.Context, q sqlx.QueryerContext, key entity.AuthorizationKey, forUpdate bool) (*entity.PaymentAuthorization, error) {
	query := `SELECT * FROM payment_authorizations WHERE client = $1 AND contract_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row authorizationRow
	if err := sqlx.GetContext(ctx, q, &row, query, string(key.Client), key.ContractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrAuthorizationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить авторизацию")
	}
	return row.toEntity(), nil
}

func (r *AuthorizationRepository) Find(ctx context.Context, key entity.AuthorizationKey) (*entity.PaymentAuthorization, error) {
	return r.find(ctx, r.db, key, false)
}

func (r *AuthorizationRepository) ListByClient(ctx context.Context, client valueobject.PartyID) ([]*entity.PaymentAuthorization, error) {
	var rows []authorizationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM payment_authorizations WHERE client = $1 ORDER BY contract_id
	`, string(client))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить авторизации")
	}

	result := make([]*entity.PaymentAuthorization, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}

// Update держит строку авторизации заблокированной на всё время fn.
func (r *AuthorizationRepository) Update(ctx context.Context, key entity.AuthorizationKey, fn repository.AuthorizationUpdateFunc) (*entity.PaymentAuthorization, error) {
	var auth *entity.PaymentAuthorization

	err := common.WithTransaction(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		a, err := r.find(ctx, tx, key, true)
		if err != nil {
			return err
		}
		if err := fn(ctx, a); err != nil {
			return err
		}

		var deactivatedBy *string
		if a.DeactivatedBy != nil {
			by := string(*a.DeactivatedBy)
			deactivatedBy = &by
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE payment_authorizations SET
				max_per_milestone = $3::numeric,
				total_authorized = $4::numeric,
				total_spent = $5::numeric,
				active = $6,
				updated_at = $7,
				deactivated_at = $8,
				deactivated_by = $9
			WHERE client = $1 AND contract_id = $2
		`,
			string(a.Client),
			a.ContractID,
			numeric(a.MaxPerMilestone),
			numeric(a.TotalAuthorized),
			numeric(a.TotalSpent),
			a.Active,
			a.UpdatedAt,
			a.DeactivatedAt,
			deactivatedBy,
		)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить авторизацию")
		}

		auth = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return auth, nil
}
