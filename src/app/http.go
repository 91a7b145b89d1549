package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// HTTPServer runs the API listener as a managed module.
type HTTPServer struct {
	srv  *http.Server
	tls  *TLSReloader
	addr net.Addr
	log  *logrus.Entry
	wg   sync.WaitGroup
}

// NewHTTPServer serves handler on addr, over TLS when tls is set.
func NewHTTPServer(addr string, handler http.Handler, tls *TLSReloader) *HTTPServer {
	s := &HTTPServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tls: tls,
		log: logrus.WithField("component", "http"),
	}
	if tls != nil {
		s.srv.TLSConfig = tls.Config()
	}
	return s
}

func (s *HTTPServer) Name() string { return "http" }

// Addr is the bound listener address once started.
func (s *HTTPServer) Addr() net.Addr { return s.addr }

func (s *HTTPServer) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var err error
		if s.tls != nil {
			err = s.srv.ServeTLS(ln, "", "")
		} else {
			err = s.srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("server stopped")
		}
	}()
	s.log.WithField("addr", s.addr.String()).WithField("tls", s.tls != nil).Info("listening")
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("shutdown")
	}
	s.wg.Wait()
}
