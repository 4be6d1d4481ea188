package lock

import (
	"context"
	"errors"
)

// ErrEmptyKey возвращается при пустом ключе блокировки.
var ErrEmptyKey = errors.New("lock: ключ блокировки пуст")

// Locker сериализует операции над одним ключом. Разные ключи не блокируют друг друга.
// Ошибка fn возвращается как есть, без обёртки.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// EscrowKey: ключ блокировки контракта эскроу.
func EscrowKey(contractID string) string {
	return "lock:escrow:" + contractID
}

// AuthorizationKey: ключ блокировки авторизации платежей.
func AuthorizationKey(client, contractID string) string {
	return "lock:authorization:" + client + ":" + contractID
}
