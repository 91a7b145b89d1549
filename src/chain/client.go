package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Addresses lists the deployed contracts. Any of them may be nil.
type Addresses struct {
	Membership  *common.Address
	Token       *common.Address
	Governor    *common.Address
	ENSRegistry *common.Address
}

// Client bundles the contract bindings for one chain.
type Client struct {
	eth     *ethclient.Client
	ChainID uint64

	Membership *Membership
	Token      *Token
	Governor   *Governor
	ENS        *ENS
}

// Dial connects to rpcURL. An empty URL yields a client with every contract
// unconfigured, which is a valid local development setup.
func Dial(ctx context.Context, rpcURL string, addrs Addresses) (*Client, error) {
	if rpcURL == "" {
		return &Client{}, nil
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	c := New(eth, id.Uint64(), addrs)
	c.eth = eth
	return c, nil
}

// New binds contracts over an arbitrary caller.
func New(caller Caller, chainID uint64, addrs Addresses) *Client {
	return &Client{
		ChainID:    chainID,
		Membership: NewMembership(addrs.Membership, caller),
		Token:      NewToken(addrs.Token, caller),
		Governor:   NewGovernor(addrs.Governor, caller),
		ENS:        NewENS(addrs.ENSRegistry, caller),
	}
}

// Backend exposes the underlying RPC client, nil when not dialed.
func (c *Client) Backend() *ethclient.Client { return c.eth }

func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}
