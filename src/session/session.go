package session

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// WalletSession is the connected wallet as far as the gateway knows it.
// Only the authentication flow creates one; everything else reads it.
type WalletSession struct {
	Address   *common.Address `json:"address,omitempty"`
	ChainID   uint64          `json:"chainId"`
	Connected bool            `json:"isConnected"`
}

func Disconnected() WalletSession { return WalletSession{} }

func Connected(addr common.Address, chainID uint64) WalletSession {
	return WalletSession{Address: &addr, ChainID: chainID, Connected: true}
}

// Account returns the address and whether the session is usable for
// account-scoped reads.
func (s WalletSession) Account() (common.Address, bool) {
	if !s.Connected || s.Address == nil {
		return common.Address{}, false
	}
	return *s.Address, true
}

// Provider supplies the session to derivation code.
type Provider interface {
	Session(ctx context.Context) WalletSession
}

// Static always returns the same session.
type Static WalletSession

func (s Static) Session(context.Context) WalletSession { return WalletSession(s) }

type ctxKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s WalletSession) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by WithSession, or a
// disconnected one.
func FromContext(ctx context.Context) WalletSession {
	if s, ok := ctx.Value(ctxKey{}).(WalletSession); ok {
		return s
	}
	return Disconnected()
}

// ContextProvider reads the session attached to the request context.
type ContextProvider struct{}

func (ContextProvider) Session(ctx context.Context) WalletSession { return FromContext(ctx) }
