package model

import (
	"strconv"
	"strings"
)

// Address identifies an account on the token ledger
type Address string

// ZeroAddress is the canonical null account
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// IsZero reports whether the address is empty or the null account
func (a Address) IsZero() bool {
	s := strings.TrimSpace(string(a))
	return s == "" || strings.EqualFold(s, string(ZeroAddress))
}

func (a Address) String() string {
	return string(a)
}

// Amount is a quantity of token base units
type Amount uint64

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAmount parses a decimal amount of base units
func ParseAmount(s string) (Amount, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return Amount(v), nil
}
