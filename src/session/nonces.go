package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const NonceTTL = 5 * time.Minute

// NonceStore keeps issued sign-in nonces until they are consumed once.
type NonceStore interface {
	// PutNonce remembers nonce as issued to addr.
	PutNonce(ctx context.Context, nonce, addr string, ttl time.Duration) error
	// TakeNonce atomically removes nonce and returns the address it was
	// issued to, or "" when unknown or expired.
	TakeNonce(ctx context.Context, nonce string) (string, error)
}

// MemoryNonces is a process-local NonceStore for dev mode and tests.
type MemoryNonces struct {
	mu sync.Mutex
	c  *cache.Cache
}

func NewMemoryNonces() *MemoryNonces {
	return &MemoryNonces{c: cache.New(NonceTTL, time.Minute)}
}

func (m *MemoryNonces) PutNonce(_ context.Context, nonce, addr string, ttl time.Duration) error {
	m.c.Set(nonce, strings.ToLower(addr), ttl)
	return nil
}

func (m *MemoryNonces) TakeNonce(_ context.Context, nonce string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(nonce)
	if !ok {
		return "", nil
	}
	m.c.Delete(nonce)
	return v.(string), nil
}
