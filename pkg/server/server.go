package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/observability"
	"github.com/steelworks/forge/pkg/pipeline"
)

// Server is the long-lived serve-mode process
type Server struct {
	log    logrus.FieldLogger
	config *Config

	models *models.Service
	runner *pipeline.Runner
	admin  *admin.Service

	apiServer *http.Server
	scheduler *cron.Cron

	runMu sync.Mutex
}

// NewServer creates a new server instance
func NewServer(log logrus.FieldLogger, config *Config, modelsService *models.Service, runner *pipeline.Runner, adminService *admin.Service) (*Server, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Server{
		log:    log.WithField("service", "server"),
		config: config,
		models: modelsService,
		runner: runner,
		admin:  adminService,
	}, nil
}

// Start runs the server until the context is canceled or a termination
// signal arrives.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Metrics endpoint
	g.Go(func() error {
		observability.StartMetricsServer(s.log, s.config.MetricsAddr)
		<-ctx.Done()

		return nil
	})

	// Built before the goroutines start so shutdown never races the assignment
	s.apiServer = &http.Server{
		Addr:              s.config.APIAddr,
		Handler:           adaptor.FiberApp(s.newApp()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// HTTP API
	g.Go(func() error {
		s.log.WithField("addr", s.config.APIAddr).Info("Starting API server")

		if err := s.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		<-ctx.Done()

		return nil
	})

	// Scheduled pipeline runs
	if s.config.Schedule != "" {
		if err := s.startScheduler(); err != nil {
			return err
		}
	}

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		// Use a fresh context for cleanup since the current one is canceled
		return s.stopAll(context.Background())
	})

	return g.Wait()
}

func (s *Server) startScheduler() error {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc(s.config.Schedule, s.scheduledRun); err != nil {
		return err
	}

	s.log.WithField("schedule", s.config.Schedule).Info("Starting scheduled runs")
	s.scheduler.Start()

	return nil
}

// scheduledRun triggers a full pipeline run, skipping the tick when a
// manually triggered run is still in flight.
func (s *Server) scheduledRun() {
	if !s.runMu.TryLock() {
		s.log.Warn("Skipping scheduled run, another run is in progress")
		return
	}
	defer s.runMu.Unlock()

	if _, err := s.runner.Run(context.Background(), pipeline.RunOptions{}); err != nil {
		s.log.WithError(err).Error("Scheduled run failed")
	}
}

func (s *Server) stopAll(ctx context.Context) error {
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	if s.scheduler != nil {
		// Stop returns after any in-flight scheduled job completes
		<-s.scheduler.Stop().Done()
	}

	if s.apiServer != nil {
		if err := s.apiServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown API server")
		}
	}

	s.log.Info("Server stopped gracefully")

	return nil
}
