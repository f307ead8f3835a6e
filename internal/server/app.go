// Package server initializes and runs the account server.
// It selects storage backends, wires the services, and runs the gRPC
// endpoint together with the optional metrics endpoint and token reaper
// until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/auth"
	"github.com/dmitrijs2005/gophaccount/internal/server/blob"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/device"
	"github.com/dmitrijs2005/gophaccount/internal/server/federation"
	"github.com/dmitrijs2005/gophaccount/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccount/internal/server/reaper"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/security"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/dmitrijs2005/gophaccount/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	sessions    *services.SessionService
	accounts    *services.AccountService
	closers     []func()
}

// NewApp builds every dependency from c. An empty DatabaseDSN selects the
// in-memory store and an empty S3Bucket the in-memory blob store.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	app := &App{config: c, logger: logger}

	if err := app.initStorage(ctx); err != nil {
		return nil, err
	}

	hasher, err := security.NewHasher(c.PasswordHashAlgorithm)
	if err != nil {
		app.Close()
		return nil, err
	}

	verifier, err := app.initVerifier()
	if err != nil {
		app.Close()
		return nil, err
	}

	blobs, err := app.initBlobStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.registry = prometheus.NewRegistry()
	app.metrics = metrics.NewMetrics(app.registry)

	codec := auth.NewCodec(c.TokenIssuer, c.TokenAudience, []byte(c.SecretKey))
	app.sessions = services.NewSessionService(app.repomanager, c, codec, hasher, verifier, device.UserAgentDetector{}, logger)
	app.accounts = services.NewAccountService(app.repomanager, c, hasher, app.sessions, blobs, logger)

	return app, nil
}

func (app *App) initStorage(ctx context.Context) error {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, using in-memory store")
		app.repomanager = repomanager.NewMemoryRepositoryManager()
		return nil
	}

	pm, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.repomanager = pm
	app.closers = append(app.closers, func() { _ = pm.Close() })

	if err := pm.RunMigrations(ctx); err != nil {
		app.Close()
		return fmt.Errorf("migrations error: %w", err)
	}
	return nil
}

func (app *App) initVerifier() (federation.Verifier, error) {
	c := app.config
	if c.SocialJWKSURL == "" {
		return federation.Disabled{}, nil
	}

	v, err := federation.NewJWKSVerifier(c.SocialJWKSURL, c.SocialIssuer, c.SocialAudience, app.logger)
	if err != nil {
		return nil, fmt.Errorf("social login init error: %w", err)
	}
	app.closers = append(app.closers, v.Close)
	return v, nil
}

func (app *App) initBlobStore(ctx context.Context) (blob.Store, error) {
	c := app.config
	if c.S3Bucket == "" {
		return blob.NewMemoryStore(), nil
	}

	s, err := blob.NewS3Store(ctx, blob.S3Options{
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Region:       c.S3Region,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	return s, nil
}

// Close releases storage and background resources.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.accounts, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context) {
	if err := metrics.Serve(ctx, app.config.MetricsAddr, app.registry, app.logger); err != nil {
		app.logger.Error(ctx, "metrics endpoint failed", "error", err)
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx)
		}()
	}

	if app.config.ReaperInterval > 0 {
		r := reaper.New(app.repomanager, app.config.ReaperInterval, app.metrics.AddReaped, app.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
}
