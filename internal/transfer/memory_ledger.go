package transfer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-ledger/internal/clock"
	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// MemoryLedger: реестр балансов в памяти процесса.
type MemoryLedger struct {
	mu       sync.Mutex
	clock    clock.Clock
	balances map[Account]uint64
	records  []Record
}

func NewMemoryLedger(c clock.Clock) *MemoryLedger {
	if c == nil {
		c = clock.System()
	}
	return &MemoryLedger{
		clock:    c,
		balances: make(map[Account]uint64),
	}
}

func (l *MemoryLedger) Transfer(ctx context.Context, from, to Account, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(from, to, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}
	credited, err := valueobject.CheckedAdd(l.balances[to], amount)
	if err != nil {
		return err
	}

	l.balances[from] -= amount
	l.balances[to] = credited
	l.records = append(l.records, Record{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: l.clock.Now(),
	})
	return nil
}

// Seed заводит счёт со стартовым балансом; существующий счёт не трогает.
func (l *MemoryLedger) Seed(_ context.Context, account Account, amount uint64) (bool, error) {
	if account == "" {
		return false, apperror.New(apperror.ErrCodeTransferFailed, "не указан счёт")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[account]; ok {
		return false, nil
	}
	l.balances[account] = amount
	return true, nil
}

func (l *MemoryLedger) Balance(_ context.Context, account Account) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *MemoryLedger) ListTransfers(ctx context.Context, account Account, limit, offset int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, 0)
	skipped := 0
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := l.records[i]
		if r.From != account && r.To != account {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
