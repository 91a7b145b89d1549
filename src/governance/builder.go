// Package governance validates user actions against chain state and turns
// them into unsigned transactions for the user's wallet.
package governance

import (
	"fmt"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/session"
)

// Builder prepares calldata against the configured contracts. It never
// signs or sends anything.
type Builder struct {
	chain *chain.Client
}

func NewBuilder(c *chain.Client) *Builder {
	if c == nil {
		c = &chain.Client{}
	}
	return &Builder{chain: c}
}

func requireConnected(s session.WalletSession) error {
	if _, ok := s.Account(); !ok {
		return ErrNotConnected
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
