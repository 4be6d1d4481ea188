package valueobject

import (
	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-ledger/internal/validation"
)

// PartyID: непрозрачный идентификатор участника (публичный ключ, id аккаунта).
type PartyID string

func NewPartyID(id string) (PartyID, error) {
	if err := validation.ValidatePartyID(id); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return PartyID(id), nil
}

func (p PartyID) String() string {
	return string(p)
}
