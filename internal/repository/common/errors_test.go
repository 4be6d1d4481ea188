package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsCheckViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(&pq.Error{Code: "23514"}))
}

func TestTxFromContext(t *testing.T) {
	_, ok := TxFromContext(context.Background())
	assert.False(t, ok)

	tx := &sqlx.Tx{}
	got, ok := TxFromContext(ContextWithTx(context.Background(), tx))
	assert.True(t, ok)
	assert.Same(t, tx, got)
}
