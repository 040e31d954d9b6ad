package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/lester-loyalty/internal/domain/agent"
	"github.com/xenking/lester-loyalty/internal/domain/ledger"
	"github.com/xenking/lester-loyalty/internal/domain/reward"
	"github.com/xenking/lester-loyalty/internal/handler"
	"github.com/xenking/lester-loyalty/internal/storage"
	"github.com/xenking/lester-loyalty/pkg/health"
	"github.com/xenking/lester-loyalty/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	kv, closeStorage, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer closeStorage()

	store := storage.NewStore(kv)
	if err := store.EnsureDefaults(ctx); err != nil {
		return errors.Wrap(err, "write default settings")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck(cfg.Storage.Driver, 5*time.Second, health.PingCheck(cfg.Storage.Driver, kv))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	ledgerService := ledger.NewService(store)
	agentService := agent.NewService(store)
	rewardService := reward.NewService(store)

	if cfg.Auth.AdminKeyHash == "" {
		lg.Warn("Admin key hash is not configured, admin endpoints are disabled")
	}
	security := handler.NewSecurity(agentService, []byte(cfg.Auth.Pepper), cfg.Auth.AdminKeyHash)

	// HTTP handlers.
	h, err := handler.NewHandler(m.MeterProvider(), ledgerService, agentService, rewardService, security)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}
	api := h.Routes(
		httpmiddleware.LogRequests(handler.RoutePattern),
		httpmiddleware.Labeler(handler.RoutePattern),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           httpmiddleware.Wrap(mux, serverMiddleware(ctx, zctx.From(ctx), m, cfg)...),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// serverMiddleware is the chain wrapped around the whole mux, outermost
// first. RequestID precedes Recovery so panic logs carry the request id.
func serverMiddleware(ctx context.Context, lg *zap.Logger, t httpmiddleware.TelemetryProvider, cfg *Config) []httpmiddleware.Middleware {
	return []httpmiddleware.Middleware{
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", handler.HeaderAPIKey},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: handler.RateLimitKey,
		}),
		httpmiddleware.Instrument("ledger-api", t),
	}
}
