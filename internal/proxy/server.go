// Package proxy implements the reverse proxy in front of the application
// service: an ordered route table over two listeners (plaintext redirect,
// TLS) plus a local operations endpoint.
package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/hhftechnology/wordpress-docker/internal/config"
	"github.com/hhftechnology/wordpress-docker/internal/readiness"
	"github.com/hhftechnology/wordpress-docker/internal/ws"
)

const (
	certFileName = "server.crt"
	keyFileName  = "server.key"

	shutdownTimeout = 10 * time.Second
)

// Server runs the three proxy listeners.
type Server struct {
	cfg      config.Stack
	logger   *slog.Logger
	handler  *Handler
	certs    *CertKeeper
	limiter  RateLimiter
	registry *prometheus.Registry
	hub      *ws.Hub
	upstream func(ctx context.Context) error
}

// New assembles the proxy from configuration. The hub may be nil; log
// streaming over the ops endpoint is then disabled.
func New(cfg config.Stack, logger *slog.Logger, hub *ws.Hub) (*Server, error) {
	registry := prometheus.NewRegistry()
	m := &metrics{}
	m.init(registry)

	limiter := NewMemoryRateLimiter()
	if cfg.RateLimit.RedisAddr != "" {
		redisLimiter, err := NewRedisRateLimiter(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB, logger)
		if err != nil {
			logger.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	fcgiAddr := net.JoinHostPort(cfg.AppHost, strconv.Itoa(cfg.AppPort))
	php := newPHPHandler("tcp", fcgiAddr, cfg.DocumentRoot, cfg.Upload.MaxExecution)
	handler := NewHandler(cfg, php, limiter, logger, m)

	certs, err := NewCertKeeper(
		filepath.Join(cfg.CertDir, certFileName),
		filepath.Join(cfg.CertDir, keyFileName),
		logger,
	)
	if err != nil {
		limiter.Close()
		return nil, err
	}

	upstreamProbe := readiness.TCPProbe{Addr: fcgiAddr}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		certs:    certs,
		limiter:  limiter,
		registry: registry,
		hub:      hub,
		upstream: upstreamProbe.Check,
	}, nil
}

// Run serves until the context is cancelled, then shuts the listeners down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.limiter.Close()
	defer s.certs.Close()

	redirect := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           RedirectHandler(s.cfg.HTTPSPort),
		ReadHeaderTimeout: 5 * time.Second,
	}
	secure := &http.Server{
		Addr:    s.cfg.HTTPSAddr,
		Handler: s.handler,
		TLSConfig: &tls.Config{
			GetCertificate: s.certs.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		},
		ReadHeaderTimeout: 5 * time.Second,
	}
	opsServer := &http.Server{
		Addr:              s.cfg.Ops.Addr,
		Handler:           newOpsMux(s.logger, s.hub, s.registry, s.upstream),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("plaintext listener starting", "addr", redirect.Addr)
		return ignoreServerClosed(redirect.ListenAndServe())
	})
	group.Go(func() error {
		s.logger.Info("tls listener starting", "addr", secure.Addr)
		return ignoreServerClosed(secure.ListenAndServeTLS("", ""))
	})
	group.Go(func() error {
		s.logger.Info("ops listener starting", "addr", opsServer.Addr)
		return ignoreServerClosed(opsServer.ListenAndServe())
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range []*http.Server{redirect, secure, opsServer} {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("shutdown: %w", errors.Join(errs...))
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("proxy stopped")
	return nil
}
