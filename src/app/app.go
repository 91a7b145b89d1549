package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stake-plus/bst-governance/src/api/webserver"
	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/config"
	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/governance"
	"github.com/stake-plus/bst-governance/src/metrics"
	"github.com/stake-plus/bst-governance/src/reads"
	"github.com/stake-plus/bst-governance/src/session"
)

// App holds the wired gateway.
type App struct {
	Config  *config.Config
	Chain   *chain.Client
	DB      *gorm.DB
	Redis   *redis.Client
	Reads   *reads.Service
	Router  *gin.Engine
	HTTP    *HTTPServer
	Manager *Manager

	publisher data.ActionPublisher
	log       *logrus.Entry
}

// Build connects storage and the chain and assembles every module. The
// caller owns the result and must Close it.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, log: logrus.WithField("component", "app")}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := data.Open(cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := data.LoadSettings(db); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	cfg.ApplySettings(data.Settings())

	addrs, err := cfg.Addresses()
	if err != nil {
		return nil, err
	}
	client, err := chain.Dial(ctx, cfg.RPCURL, addrs)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	a.Chain = client
	if cfg.ChainID != 0 && client.Backend() != nil && client.ChainID != cfg.ChainID {
		return nil, fmt.Errorf("chain: rpc reports chain %d, configured %d", client.ChainID, cfg.ChainID)
	}
	if addrs.Membership == nil {
		a.log.WithField("audit", "gate_bypass").Warn("no membership contract configured, gated routes are open")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	a.Reads = reads.New(client, reads.Options{
		Timeout:   cfg.ReadTimeout,
		Attempts:  cfg.ReadAttempts,
		Staleness: cfg.StalenessWindow,
	}, m)

	var (
		nonces  session.NonceStore = session.NewMemoryNonces()
		limiter webserver.Limiter
	)
	a.publisher = data.LogPublisher{}
	if cfg.RedisURL != "" {
		rdb, err := data.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = rdb
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		nonces = data.NewRedisNonces(rdb)
		limiter = webserver.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
		a.publisher = data.NewRedisPublisher(rdb)
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = client.ChainID
	}
	auth := session.NewAuthenticator(session.AuthConfig{
		Domain:  cfg.SIWEDomain,
		URI:     cfg.SIWEURI,
		ChainID: chainID,
		Secret:  []byte(cfg.JWTSecret),
	}, nonces)

	var submitter *chain.Submitter
	if b := client.Backend(); b != nil {
		submitter = chain.NewSubmitter(b, chainID, cfg.ExplorerURL)
	}

	repos := data.NewRepositories(db)
	a.Router = webserver.New(webserver.Deps{
		Config:    cfg,
		Reads:     a.Reads,
		Builder:   governance.NewBuilder(client),
		Auth:      auth,
		Submitter: submitter,
		Repos:     &repos,
		Publisher: a.publisher,
		Limiter:   limiter,
		Metrics:   m,
		Gatherer:  registry,
	})

	var tlsReloader *TLSReloader
	if cfg.TLSCertFile != "" {
		if tlsReloader, err = NewTLSReloader(cfg.TLSCertFile, cfg.TLSKeyFile, 0); err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
	}
	a.HTTP = NewHTTPServer(cfg.BindAddr, a.Router, tlsReloader)

	a.Manager = NewManager()
	if tlsReloader != nil {
		_ = a.Manager.Add(tlsReloader)
	}
	if b := client.Backend(); b != nil && (addrs.Governor != nil || addrs.Token != nil) {
		_ = a.Manager.Add(chain.NewWatcher(b, addrs.Governor, addrs.Token, cfg.WatchInterval, a.onEvent))
	}
	_ = a.Manager.Add(a.HTTP)

	ok = true
	return a, nil
}

// onEvent drops the cached reads an event invalidates and forwards it to
// the action stream.
func (a *App) onEvent(ev chain.Event) {
	a.Reads.HandleEvent(ev)
	out := data.ActionEvent{
		Action:  "chain." + string(ev.Kind),
		Account: ev.Account.Hex(),
		TxHash:  ev.TxHash.Hex(),
		Outcome: "observed",
		At:      time.Now().UTC(),
	}
	if ev.ProposalID != nil {
		out.ProposalID = ev.ProposalID.String()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.publisher.PublishAction(ctx, out); err != nil {
		a.log.WithError(err).WithField("event", ev.Kind).Warn("publish chain event failed")
	}
}

// Run starts every module and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Manager.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Manager.Stop(context.Background())
	return nil
}

// Close releases connections. It is safe on a partly built App.
func (a *App) Close() {
	if a.Chain != nil {
		a.Chain.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.log.WithError(err).Warn("close redis")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
