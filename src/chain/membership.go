package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Membership wraps the ERC721 membership NFT. A nil *Membership means the
// contract is not configured.
type Membership struct{ c contract }

func NewMembership(addr *common.Address, caller Caller) *Membership {
	if addr == nil || caller == nil {
		return nil
	}
	return &Membership{c: contract{address: *addr, abi: MembershipABI, caller: caller}}
}

func (m *Membership) Configured() bool { return m != nil }

func (m *Membership) Address() *common.Address {
	if m == nil {
		return nil
	}
	a := m.c.address
	return &a
}

func (m *Membership) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return m.c.bigCall(ctx, "balanceOf", owner)
}

func (m *Membership) IsMember(ctx context.Context, owner common.Address) (bool, error) {
	return m.c.boolCall(ctx, "isMember", owner)
}

func (m *Membership) MembershipTier(ctx context.Context, owner common.Address) (uint8, error) {
	return m.c.uint8Call(ctx, "getMembershipTier", owner)
}

func (m *Membership) TotalSupply(ctx context.Context) (*big.Int, error) {
	return m.c.bigCall(ctx, "totalSupply")
}

func (m *Membership) MaxSupply(ctx context.Context) (*big.Int, error) {
	return m.c.bigCall(ctx, "maxSupply")
}

func (m *Membership) MintPrice(ctx context.Context) (*big.Int, error) {
	return m.c.bigCall(ctx, "mintPrice")
}

func (m *Membership) Name(ctx context.Context) (string, error) {
	return m.c.stringCall(ctx, "name")
}

func (m *Membership) Symbol(ctx context.Context) (string, error) {
	return m.c.stringCall(ctx, "symbol")
}

func (m *Membership) TokenURI(ctx context.Context, id *big.Int) (string, error) {
	return m.c.stringCall(ctx, "tokenURI", id)
}

func (m *Membership) OwnerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	return m.c.addressCall(ctx, "ownerOf", id)
}

func (m *Membership) Mint(price *big.Int) (TxRequest, error) {
	return m.c.pack("mint", price)
}

func (m *Membership) MintWithTier(tier uint8, price *big.Int) (TxRequest, error) {
	return m.c.pack("mintWithTier", price, tier)
}
