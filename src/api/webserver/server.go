// Package webserver exposes the governance gateway over HTTP.
package webserver

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/config"
	"github.com/stake-plus/bst-governance/src/data"
	"github.com/stake-plus/bst-governance/src/governance"
	"github.com/stake-plus/bst-governance/src/metrics"
	"github.com/stake-plus/bst-governance/src/reads"
	"github.com/stake-plus/bst-governance/src/session"
)

// Deps are the collaborators the HTTP layer needs. Submitter, Repos and
// Limiter are optional.
type Deps struct {
	Config    *config.Config
	Reads     *reads.Service
	Builder   *governance.Builder
	Auth      *session.Authenticator
	Sessions  session.Provider
	Submitter *chain.Submitter
	Repos     *data.Repositories
	Publisher data.ActionPublisher
	Limiter   Limiter
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
}

type Server struct {
	cfg       *config.Config
	reads     *reads.Service
	builder   *governance.Builder
	auth      *session.Authenticator
	sessions  session.Provider
	submitter *chain.Submitter
	repos     *data.Repositories
	publisher data.ActionPublisher
	metrics   *metrics.Metrics
	log       *logrus.Entry

	bypassOnce sync.Once
}

func newServer(d Deps) *Server {
	s := &Server{
		cfg:       d.Config,
		reads:     d.Reads,
		builder:   d.Builder,
		auth:      d.Auth,
		sessions:  d.Sessions,
		submitter: d.Submitter,
		repos:     d.Repos,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		log:       logrus.WithField("component", "webserver"),
	}
	if s.sessions == nil {
		s.sessions = session.ContextProvider{}
	}
	if s.publisher == nil {
		s.publisher = data.LogPublisher{}
	}
	if s.builder == nil {
		s.builder = governance.NewBuilder(s.reads.Chain())
	}
	return s
}

// publish records an action event; failures are logged only.
func (s *Server) publish(ctx context.Context, e data.ActionEvent) {
	s.metrics.Action(e.Action, e.Outcome)
	if err := s.publisher.PublishAction(context.WithoutCancel(ctx), e); err != nil {
		s.log.WithError(err).WithField("action", e.Action).Warn("publish action failed")
	}
}
