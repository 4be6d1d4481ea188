package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-ledger/internal/domain/entity"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/repository/common"
)

const escrowContractsTable = "escrow_contracts"

type EscrowRepository struct {
	db *sqlx.DB
}

var _ repository.EscrowRepository = (*EscrowRepository)(nil)

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func (r *EscrowRepository) Create(ctx context.Context, c *entity.EscrowContract) error {
	query := `
		INSERT INTO escrow_contracts (
			contract_id, escrow_account, client, freelancer, total_amount, milestone_count,
			completed_milestones, amount_released, escrow_balance, status, dispute_reason,
			created_at, updated_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8::numeric, $9::numeric, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ContractID,
		c.EscrowAccount,
		string(c.Client),
		string(c.Freelancer),
		numeric(c.TotalAmount),
		c.MilestoneCount,
		c.CompletedMilestones,
		numeric(c.AmountReleased),
		numeric(c.EscrowBalance),
		string(c.Status),
		c.DisputeReason,
		c.CreatedAt,
		c.UpdatedAt,
		c.CompletedAt,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.ErrDuplicateContract
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать контракт")
	}
	return nil
}

func (r *EscrowRepository) FindByID(ctx context.Context, contractID string) (*entity.EscrowContract, error) {
	row, err := common.GetByField[contractRow](ctx, r.db, escrowContractsTable, "contract_id", contractID, apperror.ErrContractNotFound)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить контракт")
	}
	return row.toEntity()
}

func (r *EscrowRepository) FindMilestone(ctx context.Context, contractID string, index uint8) (*entity.Milestone, error) {
	var row milestoneRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM escrow_milestones WHERE contract_id = $1 AND milestone_index = $2
	`, contractID, index)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrMilestoneNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить этап")
	}
	return row.toEntity(), nil
}

func (r *EscrowRepository) ListMilestones(ctx context.Context, contractID string) ([]*entity.Milestone, error) {
	milestones, err := r.listMilestones(ctx, r.db, contractID, false)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить этапы")
	}
	return milestones, nil
}

func (r *EscrowRepository) listMilestones(ctx context.Context, q sqlx.QueryerContext, contractID string, forUpdate bool) ([]*entity.Milestone, error) {
	query := `SELECT * FROM escrow_milestones WHERE contract_id = $1 ORDER BY milestone_index`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var rows []milestoneRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, contractID); err != nil {
		return nil, err
	}

	milestones := make([]*entity.Milestone, 0, len(rows))
	for i := range rows {
		milestones = append(milestones, rows[i].toEntity())
	}
	return milestones, nil
}

// Update блокирует строку контракта (SELECT ... FOR UPDATE) на всё время fn.
// Переводы, сделанные внутри fn через PostgresLedger, попадают в ту же транзакцию.
func (r *EscrowRepository) Update(ctx context.Context, contractID string, fn repository.EscrowUpdateFunc) (*entity.EscrowAggregate, error) {
	var agg *entity.EscrowAggregate

	err := common.WithTransaction(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		var row contractRow
		if err := tx.GetContext(ctx, &row, `SELECT * FROM escrow_contracts WHERE contract_id = $1 FOR UPDATE`, contractID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrContractNotFound
			}
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось заблокировать контракт")
		}

		milestones, err := r.listMilestones(ctx, tx, contractID, true)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить этапы")
		}

		contract, err := row.toEntity()
		if err != nil {
			return err
		}
		agg = entity.NewEscrowAggregate(contract, milestones)
		if err := fn(ctx, agg); err != nil {
			return err
		}

		if err := r.saveContract(ctx, tx, agg.Contract); err != nil {
			return err
		}
		for _, m := range agg.DirtyMilestones() {
			if err := r.saveMilestone(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *EscrowRepository) saveContract(ctx context.Context, tx *sqlx.Tx, c *entity.EscrowContract) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE escrow_contracts SET
			completed_milestones = $2,
			amount_released = $3::numeric,
			escrow_balance = $4::numeric,
			status = $5,
			dispute_reason = $6,
			updated_at = $7,
			completed_at = $8
		WHERE contract_id = $1
	`,
		c.ContractID,
		c.CompletedMilestones,
		numeric(c.AmountReleased),
		numeric(c.EscrowBalance),
		string(c.Status),
		c.DisputeReason,
		c.UpdatedAt,
		c.CompletedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить контракт")
	}
	return nil
}

func (r *EscrowRepository) saveMilestone(ctx context.Context, tx *sqlx.Tx, m *entity.Milestone) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO escrow_milestones (contract_id, milestone_index, proof_uri, approved, payment_amount, submitted_at, approved_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		ON CONFLICT (contract_id, milestone_index) DO UPDATE SET
			approved = EXCLUDED.approved,
			payment_amount = EXCLUDED.payment_amount,
			approved_at = EXCLUDED.approved_at
	`,
		m.ContractID,
		m.Index,
		m.ProofURI,
		m.Approved,
		numeric(m.PaymentAmount),
		m.SubmittedAt,
		m.ApprovedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить этап")
	}
	return nil
}
