// Package server assembles and runs the blog backend: it opens the store,
// builds the shared auth and rate-limit gate and the blog service, and serves
// them over HTTP and gRPC until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/blogd/internal/clock"
	"github.com/dmitrijs2005/blogd/internal/cryptox"
	"github.com/dmitrijs2005/blogd/internal/dbx"
	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/server/auth"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/config"
	"github.com/dmitrijs2005/blogd/internal/server/metrics"
	"github.com/dmitrijs2005/blogd/internal/server/ratelimit"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogd/internal/server/services"

	gs "github.com/dmitrijs2005/blogd/internal/server/grpc"
	hs "github.com/dmitrijs2005/blogd/internal/server/http"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	logCloser io.Closer
	manager   repomanager.RepositoryManager
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	gate      *authz.Gate
	blog      *services.BlogService
}

// NewApp validates c and builds every component. Startup fails on any
// invalid setting, an unreachable database or a failed migration.
func NewApp(ctx context.Context, c *config.Config) (app *App, err error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := c.SlogLevel()

	logger, logCloser := logging.New(logging.Options{Level: level, File: c.LogFile, MaxSizeMB: 100, MaxBackups: 3})
	defer func() {
		if err != nil {
			_ = logCloser.Close()
		}
	}()

	clk := clock.NewRealClock()

	manager, err := openStore(ctx, c, clk)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = manager.Close()
		}
	}()

	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	issuer, err := auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenLifetime)
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(ratelimit.Config{Rate: c.RateLimitPerSecond, Burst: c.RateLimitBurst})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	m.TrackBuckets(limiter.Len)

	blog, err := services.NewBlogService(manager, auth.NewPasswordHasher(cryptox.DefaultArgon2Params), issuer, clk, logger,
		services.Options{PageDefault: c.PageDefault, PageMax: c.PageMax})
	if err != nil {
		return nil, err
	}

	return &App{
		config:    c,
		logger:    logger.With("module", "app"),
		logCloser: logCloser,
		manager:   manager,
		limiter:   limiter,
		metrics:   m,
		gate:      authz.NewGate(issuer, limiter, clk),
		blog:      blog,
	}, nil
}

// openStore uses PostgreSQL when a DSN is configured and the in-process
// store otherwise.
func openStore(ctx context.Context, c *config.Config, clk clock.Clock) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		return repomanager.NewInMemoryRepositoryManager(clk), nil
	}
	policy := dbx.RetryPolicy{MaxRetries: c.DBMaxRetries, BaseDelay: c.DBRetryBaseDelay, MaxDelay: c.DBRetryMaxDelay}
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN, policy)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return repomanager.NewPostgresRepositoryManager(db, policy), nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) grpcServer() *gs.GRPCServer {
	return gs.NewGRPCServer(app.config.GRPCAddr, app.config.RequestTimeout, app.logger, app.blog, app.gate, app.metrics, app.manager.Ping)
}

func (app *App) httpServer() *hs.HTTPServer {
	return hs.NewHTTPServer(hs.Options{
		Address:            app.config.HTTPAddr,
		RequestTimeout:     app.config.RequestTimeout,
		ShutdownTimeout:    app.config.ShutdownTimeout,
		CORSAllowedOrigins: app.config.CORSAllowedOrigins,
		CORSMaxAge:         app.config.CORSMaxAge,
	}, app.logger, app.blog, app.gate, app.metrics, app.manager.Ping)
}

type runner interface {
	Run(ctx context.Context) error
}

// Run serves both transports until ctx is cancelled, a termination signal
// arrives or either server fails. An empty address disables that server.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var servers []runner
	if app.config.GRPCAddr != "" {
		servers = append(servers, app.grpcServer())
	}
	if app.config.HTTPAddr != "" {
		servers = append(servers, app.httpServer())
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.limiter.Run(ctx, app.config.RateLimitSweepInterval)
	}()

	for _, s := range servers {
		wg.Add(1)
		go func(s runner) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				app.logger.Error(ctx, "server stopped", "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancelFunc()
			}
		}(s)
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return errors.Join(errs...)
}

// Close releases the store and flushes the log file.
func (app *App) Close() error {
	return errors.Join(app.manager.Close(), app.logCloser.Close())
}
