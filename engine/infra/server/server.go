package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/docrag/engine/infra/cache"
	"github.com/compozy/docrag/engine/infra/monitoring"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/logger"
)

const (
	monitoringInitTimeout     = 500 * time.Millisecond
	monitoringShutdownTimeout = 5 * time.Second
	dbShutdownTimeout         = 30 * time.Second
	serverShutdownTimeout     = 5 * time.Second
	httpReadHeaderTimeout     = 10 * time.Second
	httpIdleTimeout           = 60 * time.Second
	healthCheckTimeout        = 3 * time.Second
	hostAny                   = "0.0.0.0"
	hostLoopback              = "127.0.0.1"
)

type Server struct {
	ctx        context.Context
	cancel     context.CancelFunc
	config     *appconfig.Config
	router     *gin.Engine
	monitoring *monitoring.Service
	redis      *cache.Redis
	httpServer *http.Server
	cleanupMu  sync.Mutex
	cleanups   []func()
}

// NewServer reads the configuration attached to ctx.
func NewServer(ctx context.Context) (*Server, error) {
	cfg := appconfig.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration missing from context; attach it with config.ContextWithConfig")
	}
	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{ctx: serverCtx, cancel: cancel, config: cfg}, nil
}

func (s *Server) addCleanup(fn func()) {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

func (s *Server) runCleanups() {
	s.cleanupMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupMu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Run builds the service graph, serves HTTP and blocks until ctx is canceled
// or the process receives SIGINT/SIGTERM.
func (s *Server) Run() error {
	defer s.cancel()
	defer s.runCleanups()
	state, err := s.setupDependencies()
	if err != nil {
		return err
	}
	if err := s.buildRouter(state); err != nil {
		return err
	}
	s.httpServer = s.createHTTPServer()
	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logStartupBanner()
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown()
	})
	return g.Wait()
}

// Shutdown drains in-flight requests; it is safe to call more than once.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	log := logger.FromContext(s.ctx)
	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), serverShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// Handler exposes the router once Run has built it.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) createHTTPServer() *http.Server {
	cfg := s.config.Server
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       cfg.Timeout,
		IdleTimeout:       httpIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
}
