package model

import "github.com/shopspring/decimal"

// CoinScale はコイン額の小数点以下の桁数。DBのNUMERIC(20,2)に合わせる。
const CoinScale = 2

// maxCoinAmount はNUMERIC(20,2)で表現できる絶対値の上限（10^18未満）。
var maxCoinAmount = decimal.New(1, 18)

// IsStorableCoinAmount はamountが丸められずにコイン列へ保存できるかを返す。
// 小数点以下3桁以上の値や、整数部が18桁を超える値はfalse。
func IsStorableCoinAmount(amount decimal.Decimal) bool {
	if !amount.Equal(amount.Round(CoinScale)) {
		return false
	}
	return amount.Abs().LessThan(maxCoinAmount)
}
