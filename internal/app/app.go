package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/catalog"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/domain/quote"
	"github.com/xenking/kart-pricing/internal/handler"
	"github.com/xenking/kart-pricing/internal/ruleset"
	"github.com/xenking/kart-pricing/pkg/health"
	"github.com/xenking/kart-pricing/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	srv, err := newServer(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	srv.health.Start(ctx, 10*time.Second)
	srv.health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		srv.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		srv.health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

type server struct {
	handler http.Handler
	health  *health.Health
}

func newServer(
	ctx context.Context,
	lg *zap.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	cfg *Config,
) (*server, error) {
	products := catalog.Default()
	rules, err := loadRules(cfg.RulesFile, products)
	if err != nil {
		return nil, err
	}
	engine, err := pricing.NewEngine(rules, pricing.WithLogger(lg.Named("pricing")))
	if err != nil {
		return nil, errors.Wrap(err, "create engine")
	}
	lg.Info("Pricing rules loaded",
		zap.Int("count", len(rules)),
		zap.String("file", cfg.RulesFile),
	)

	healthSvc := health.New()
	healthSvc.AddReadinessCheck(health.Check{Name: "ruleset", Timeout: time.Second, Func: rulesetCheck(engine)})
	healthSvc.AddLivenessCheck(health.Check{Name: "goroutines", Func: health.GoroutineCountCheck(10000)})
	healthSvc.AddLivenessCheck(health.Check{Name: "gc_pause", Func: health.GCMaxPauseCheck(time.Second)})

	quotes := quote.NewService(products, engine, quote.WithBatchLimits(cfg.MaxBatch, cfg.BatchWorkers))
	h, err := handler.NewHandler(handler.HandlerConfig{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TracerProvider: tp,
		MeterProvider:  mp,
	}, products, quotes)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	go limiter.Run(ctx)

	chain := httpmiddleware.Wrap(mux,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.LogRequests(),
		limiter.Middleware(),
	)

	return &server{
		handler: otelhttp.NewHandler(chain, "kart-api",
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		),
		health: healthSvc,
	}, nil
}

func loadRules(path string, products product.Catalog) ([]pricing.Rule, error) {
	if path == "" {
		rules, err := ruleset.Default(products)
		if err != nil {
			return nil, errors.Wrap(err, "load default rules")
		}
		return rules, nil
	}
	return ruleset.Load(path, products)
}

// rulesetCheck reports unhealthy when the engine cannot price an empty cart.
func rulesetCheck(engine *pricing.Engine) health.CheckFunc {
	return func(context.Context) error {
		_, err := engine.Calculate(nil, "")
		return err
	}
}
