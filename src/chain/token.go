package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token wraps the ERC20Votes governance token. Nil means unconfigured.
type Token struct{ c contract }

func NewToken(addr *common.Address, caller Caller) *Token {
	if addr == nil || caller == nil {
		return nil
	}
	return &Token{c: contract{address: *addr, abi: TokenABI, caller: caller}}
}

func (t *Token) Configured() bool { return t != nil }

func (t *Token) Address() *common.Address {
	if t == nil {
		return nil
	}
	a := t.c.address
	return &a
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.c.bigCall(ctx, "balanceOf", account)
}

// GetVotes returns current votes, which already account for delegation.
func (t *Token) GetVotes(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.c.bigCall(ctx, "getVotes", account)
}

func (t *Token) Delegates(ctx context.Context, account common.Address) (common.Address, error) {
	return t.c.addressCall(ctx, "delegates", account)
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.c.bigCall(ctx, "totalSupply")
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	return t.c.uint8Call(ctx, "decimals")
}

func (t *Token) Name(ctx context.Context) (string, error) {
	return t.c.stringCall(ctx, "name")
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	return t.c.stringCall(ctx, "symbol")
}

func (t *Token) Delegate(delegatee common.Address) (TxRequest, error) {
	return t.c.pack("delegate", nil, delegatee)
}
