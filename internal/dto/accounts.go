package dto

import (
	"time"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
)

// Направление перевода относительно счёта, для которого строится журнал
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

type AccountResponse struct {
	Account        string `json:"account"`
	Balance        uint64 `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
}

func NewAccountResponse(account transfer.Account, balance uint64, decimals int32) *AccountResponse {
	return &AccountResponse{
		Account:        string(account),
		Balance:        balance,
		BalanceDisplay: valueobject.FormatUnits(balance, decimals),
	}
}

type TransferResponse struct {
	ID            string    `json:"id"`
	Direction     string    `json:"direction"`
	Counterparty  string    `json:"counterparty"`
	Amount        uint64    `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewTransferListResponse строит журнал с точки зрения account.
func NewTransferListResponse(account transfer.Account, records []transfer.Record, decimals int32) []*TransferResponse {
	out := make([]*TransferResponse, 0, len(records))
	for _, r := range records {
		item := &TransferResponse{
			ID:            r.ID.String(),
			Direction:     DirectionIn,
			Counterparty:  string(r.From),
			Amount:        r.Amount,
			AmountDisplay: valueobject.FormatUnits(r.Amount, decimals),
			CreatedAt:     r.CreatedAt,
		}
		if r.From == account {
			item.Direction = DirectionOut
			item.Counterparty = string(r.To)
		}
		out = append(out, item)
	}
	return out
}
