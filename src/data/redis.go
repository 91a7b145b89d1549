package data

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	noncePrefix   = "bst:nonce:"
	streamActions = "bst.governance.actions"
	streamMaxLen  = 10000
)

func ConnectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// RedisNonces stores sign-in nonces with a TTL and consumes them with GETDEL.
type RedisNonces struct {
	rdb *redis.Client
}

func NewRedisNonces(rdb *redis.Client) *RedisNonces { return &RedisNonces{rdb: rdb} }

func (n *RedisNonces) PutNonce(ctx context.Context, nonce, addr string, ttl time.Duration) error {
	return n.rdb.Set(ctx, noncePrefix+nonce, addr, ttl).Err()
}

func (n *RedisNonces) TakeNonce(ctx context.Context, nonce string) (string, error) {
	addr, err := n.rdb.GetDel(ctx, noncePrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return addr, err
}

// ActionEvent records a prepared or relayed governance action.
type ActionEvent struct {
	Action     string
	Account    string
	ProposalID string
	Method     string
	To         string
	TxHash     string
	Outcome    string
	At         time.Time
}

func (e ActionEvent) values() map[string]interface{} {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return map[string]interface{}{
		"action":      e.Action,
		"account":     e.Account,
		"proposal_id": e.ProposalID,
		"method":      e.Method,
		"to":          e.To,
		"tx_hash":     e.TxHash,
		"outcome":     e.Outcome,
		"at":          strconv.FormatInt(at.Unix(), 10),
	}
}

type ActionPublisher interface {
	PublishAction(ctx context.Context, e ActionEvent) error
}

// RedisPublisher appends action events to a capped redis stream.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher { return &RedisPublisher{rdb: rdb} }

func (p *RedisPublisher) PublishAction(ctx context.Context, e ActionEvent) error {
	_, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamActions,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: e.values(),
	}).Result()
	return err
}

// LogPublisher writes action events to the log when redis is not configured.
type LogPublisher struct{}

func (LogPublisher) PublishAction(_ context.Context, e ActionEvent) error {
	logrus.WithField("component", "actions").WithFields(logrus.Fields(e.values())).Info("governance action")
	return nil
}
