package service

import "math/big"

func bigFromInt64(v int64) *big.Int {
	return new(big.Int).SetInt64(v)
}
