package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

func TestNewPartyID(t *testing.T) {
	id, err := NewPartyID("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	require.NoError(t, err)
	assert.Equal(t, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", id.String())

	for _, raw := range []string{"", "bob\n", "two words"} {
		_, err := NewPartyID(raw)
		assert.True(t, apperror.IsValidation(err), raw)
	}
}
