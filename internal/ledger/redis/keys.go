package redis

import "github.com/mcoot/triviapool/internal/model"

// Key prefix for all ledger data
const keyPrefix = "triviapool:ledger"

// balancesKey returns the Redis HASH of address -> balance
func balancesKey() string {
	return keyPrefix + ":balances"
}

// allowancesKey returns the Redis HASH of owner/spender -> allowance
func allowancesKey() string {
	return keyPrefix + ":allowances"
}

// allowanceField returns the field within allowancesKey for an owner/spender pair
func allowanceField(owner, spender model.Address) string {
	return string(owner) + "|" + string(spender)
}
