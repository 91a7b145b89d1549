package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var (
	ErrNonceExpired   = errors.New("session: nonce expired or unknown")
	ErrMessageExpired = errors.New("session: sign-in message expired")
	ErrDomainMismatch = errors.New("session: sign-in message for another domain")
	ErrWrongChain     = errors.New("session: sign-in message for another chain")
)

const statement = "Sign in to the Spirit of Bulgaria DAO."

type AuthConfig struct {
	Domain  string
	URI     string
	ChainID uint64
	Secret  []byte
}

// Authenticator runs the sign-in handshake: Challenge hands out a message
// with a fresh nonce, Verify checks the signed message and issues a token.
type Authenticator struct {
	cfg    AuthConfig
	nonces NonceStore
	now    func() time.Time
	log    *logrus.Entry
}

func NewAuthenticator(cfg AuthConfig, nonces NonceStore) *Authenticator {
	return &Authenticator{
		cfg:    cfg,
		nonces: nonces,
		now:    time.Now,
		log:    logrus.WithField("component", "session"),
	}
}

// SetClock overrides the time source.
func (a *Authenticator) SetClock(now func() time.Time) { a.now = now }

func (a *Authenticator) Challenge(ctx context.Context, addr common.Address) (Message, error) {
	now := a.now().UTC().Truncate(time.Second)
	exp := now.Add(NonceTTL)
	msg := Message{
		Domain:         a.cfg.Domain,
		Address:        addr,
		Statement:      statement,
		URI:            a.cfg.URI,
		Version:        "1",
		ChainID:        a.cfg.ChainID,
		Nonce:          NewNonce(),
		IssuedAt:       now,
		ExpirationTime: &exp,
	}
	if err := a.nonces.PutNonce(ctx, msg.Nonce, addr.Hex(), NonceTTL); err != nil {
		return Message{}, fmt.Errorf("store nonce: %w", err)
	}
	return msg, nil
}

// Verify consumes the nonce in raw and returns a signed token for the
// recovered wallet.
func (a *Authenticator) Verify(ctx context.Context, raw, sigHex string) (string, WalletSession, error) {
	msg, err := ParseMessage(raw)
	if err != nil {
		return "", Disconnected(), err
	}
	if msg.Domain != a.cfg.Domain {
		return "", Disconnected(), ErrDomainMismatch
	}
	if a.cfg.ChainID != 0 && msg.ChainID != a.cfg.ChainID {
		return "", Disconnected(), ErrWrongChain
	}
	now := a.now()
	if msg.ExpirationTime != nil && !now.Before(*msg.ExpirationTime) {
		return "", Disconnected(), ErrMessageExpired
	}
	if msg.NotBefore != nil && now.Before(*msg.NotBefore) {
		return "", Disconnected(), ErrMessageExpired
	}

	owner, err := a.nonces.TakeNonce(ctx, msg.Nonce)
	if err != nil {
		return "", Disconnected(), fmt.Errorf("take nonce: %w", err)
	}
	if owner == "" || !strings.EqualFold(owner, msg.Address.Hex()) {
		return "", Disconnected(), ErrNonceExpired
	}

	if err := verifySignature(msg.Address, raw, sigHex); err != nil {
		a.log.WithField("addr", msg.Address.Hex()).Warn("sign-in signature rejected")
		return "", Disconnected(), err
	}

	tok, err := issueJWT(msg.Address, msg.ChainID, a.cfg.Secret, now)
	if err != nil {
		return "", Disconnected(), fmt.Errorf("issue token: %w", err)
	}
	a.log.WithField("addr", msg.Address.Hex()).Info("wallet signed in")
	return tok, Connected(msg.Address, msg.ChainID), nil
}

func (a *Authenticator) ParseToken(raw string) (WalletSession, error) {
	return ParseToken(raw, a.cfg.Secret)
}
