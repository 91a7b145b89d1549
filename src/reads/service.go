// Package reads serves contract reads with a per-attempt timeout, retry on
// transient RPC failures and a short staleness window.
package reads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/jpillora/backoff"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/logging"
	"github.com/stake-plus/bst-governance/src/metrics"
)

type Status string

const (
	StatusUnconfigured Status = "unconfigured"
	StatusReady        Status = "ready"
	StatusUnavailable  Status = "unavailable"
)

// Snapshot is one independent read. Snapshots taken in the same request
// are not guaranteed to come from the same block.
type Snapshot[T any] struct {
	Value     T         `json:"value"`
	Status    Status    `json:"status"`
	FetchedAt time.Time `json:"fetchedAt,omitempty"`
}

func (s Snapshot[T]) Ready() bool { return s.Status == StatusReady }

type Options struct {
	Timeout    time.Duration
	Attempts   int
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Staleness  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 8 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 4 * time.Second
	}
	if o.Staleness <= 0 {
		o.Staleness = 12 * time.Second
	}
	return o
}

type cached struct {
	value     interface{}
	fetchedAt time.Time
}

type Service struct {
	chain   *chain.Client
	opts    Options
	cache   *cache.Cache
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func New(c *chain.Client, opts Options, m *metrics.Metrics) *Service {
	if c == nil {
		c = &chain.Client{}
	}
	opts = opts.withDefaults()
	return &Service{
		chain:   c,
		opts:    opts,
		cache:   cache.New(opts.Staleness, 2*opts.Staleness),
		metrics: m,
		log:     logrus.WithField("component", "reads"),
	}
}

func (s *Service) Chain() *chain.Client { return s.chain }

const (
	scopeGlobal = "global"
)

func proposalScope(id fmt.Stringer) string { return "proposal/" + id.String() }

func accountScope(addr fmt.Stringer) string { return "account/" + strings.ToLower(addr.String()) }

func cacheKey(scope, method string, args ...interface{}) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(fmt.Sprint(a))
		sb.WriteByte('|')
	}
	return scope + ":" + method + ":" + strconv.FormatUint(xxhash.ChecksumString64(sb.String()), 16)
}

// Evict drops every cached read whose scope starts with prefix.
func (s *Service) Evict(prefix string) int {
	n := 0
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Delete(k)
			n++
		}
	}
	return n
}

// HandleEvent evicts the reads a chain event invalidates.
func (s *Service) HandleEvent(ev chain.Event) {
	switch ev.Kind {
	case chain.EventVoteCast:
		if ev.ProposalID != nil {
			s.Evict(proposalScope(ev.ProposalID) + ":")
		}
		s.Evict(accountScope(ev.Account) + ":")
	case chain.EventProposalCreated, chain.EventProposalExecuted:
		if ev.ProposalID != nil {
			s.Evict(proposalScope(ev.ProposalID) + ":")
		}
	case chain.EventDelegateChanged:
		// the old and new delegates change too
		s.Evict("account/")
	}
}

// errCancelled marks a read abandoned because its caller went away.
var errCancelled = errors.New("read cancelled")

// read runs fn with the timeout, retry and caching policy. It returns the
// value, when it was fetched, and an error once every attempt failed.
func read[T any](ctx context.Context, s *Service, scope, method string, args []interface{}, fn func(context.Context) (T, error)) (T, time.Time, error) {
	var zero T
	key := cacheKey(scope, method, args...)
	if v, ok := s.cache.Get(key); ok {
		c := v.(cached)
		s.metrics.CacheHit()
		return c.value.(T), c.fetchedAt, nil
	}

	started := time.Now()
	b := &backoff.Backoff{Min: s.opts.MinBackoff, Max: s.opts.MaxBackoff, Factor: 2, Jitter: true}
	var err error
	for attempt := 1; ; attempt++ {
		var val T
		val, err = withTimeout(ctx, s.opts.Timeout, fn)
		if ctx.Err() != nil {
			s.metrics.ObserveRead(method, "cancelled", started)
			return zero, time.Time{}, fmt.Errorf("%w: %w", errCancelled, ctx.Err())
		}
		if err == nil {
			fetched := time.Now()
			s.cache.SetDefault(key, cached{value: val, fetchedAt: fetched})
			s.metrics.ObserveRead(method, "ok", started)
			return val, fetched, nil
		}
		if attempt >= s.opts.Attempts || !logging.IsTransient(err) {
			break
		}
		t := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			t.Stop()
			s.metrics.ObserveRead(method, "cancelled", started)
			return zero, time.Time{}, fmt.Errorf("%w: %w", errCancelled, ctx.Err())
		case <-t.C:
		}
	}
	s.metrics.ObserveRead(method, "error", started)
	s.log.WithError(err).WithFields(logrus.Fields{"method": method, "scope": scope}).Warn("contract read unavailable")
	return zero, time.Time{}, err
}

func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// IsCancelled reports whether err came from a read whose caller went away.
func IsCancelled(err error) bool { return errors.Is(err, errCancelled) }
