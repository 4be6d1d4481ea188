package valueobject

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrow-ledger/internal/pkg/apperror"
)

// Все суммы хранятся в минимальных единицах токена (для USDC это 10^-6).

// CheckedAdd складывает суммы без переполнения.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, apperror.Newf(apperror.ErrCodeArithmeticOverflow, "переполнение при сложении %d + %d", a, b)
	}
	return a + b, nil
}

// CheckedSub вычитает суммы без ухода в минус.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, apperror.Newf(apperror.ErrCodeArithmeticUnderflow, "уход в минус при вычитании %d - %d", a, b)
	}
	return a - b, nil
}

// WithinLimit проверяет, что сумма не превышает лимит.
func WithinLimit(amount, limit uint64) bool {
	return amount <= limit
}

// CheckedAddWithinLimit складывает и проверяет, что результат укладывается в лимит.
// Переполнение возвращается раньше, чем превышение лимита.
func CheckedAddWithinLimit(a, b, limit uint64) (uint64, bool, error) {
	sum, err := CheckedAdd(a, b)
	if err != nil {
		return 0, false, err
	}
	return sum, WithinLimit(sum, limit), nil
}

// UsageAtLeast: доля spent от total достигла percent процентов.
// Сравнение идёт в 128 битах, так что большие суммы не переполняются.
func UsageAtLeast(spent, total, percent uint64) bool {
	if total == 0 {
		return false
	}
	sh, sl := bits.Mul64(spent, 100)
	th, tl := bits.Mul64(total, percent)
	return sh > th || (sh == th && sl >= tl)
}

// UsagePercent: целый процент использования лимита, не больше 100.
func UsagePercent(spent, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	if spent >= total {
		return 100
	}
	hi, lo := bits.Mul64(spent, 100)
	q, _ := bits.Div64(hi, lo, total)
	return q
}

// MilestonePayment возвращает выплату за один этап: целочисленное деление
// с отбрасыванием остатка, одинаковое для всех этапов.
func MilestonePayment(total uint64, milestoneCount uint8) uint64 {
	if milestoneCount == 0 {
		return 0
	}
	return total / uint64(milestoneCount)
}

// Dust возвращает остаток, который никогда не покидает эскроу при обычных выплатах.
func Dust(total uint64, milestoneCount uint8) uint64 {
	if milestoneCount == 0 {
		return total
	}
	return total % uint64(milestoneCount)
}

// FormatUnits переводит минимальные единицы в десятичную строку ("1000000", 6 -> "1").
func FormatUnits(amount uint64, decimals int32) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals)
	return d.String()
}
