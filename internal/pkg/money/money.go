package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotExact = errors.New("amount is not representable in minor units")

// ToMinor 把展示货币金额换算为网关使用的最小货币单位，不允许产生舍入
func ToMinor(amount decimal.Decimal, factor int64) (int64, error) {
	minor := amount.Mul(decimal.NewFromInt(factor))
	if !minor.IsInteger() {
		return 0, ErrNotExact
	}
	return minor.IntPart(), nil
}

// FromMinor 把最小货币单位换算回展示货币金额
func FromMinor(minor int64, factor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(factor))
}

// FromUnits 整数展示金额
func FromUnits(units int64) decimal.Decimal {
	return decimal.NewFromInt(units)
}
