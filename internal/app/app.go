package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/coupon"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/order"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/shipping"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/handler"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/notify"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/storage/postgres"
	"github.com/Yemenione/YEMEN-KAF-sub001/pkg/health"
	"github.com/Yemenione/YEMEN-KAF-sub001/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Order confirmation dispatch.
	var notifier notify.Dispatcher = notify.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kd := notify.NewKafkaDispatcher(cfg.Kafka.Brokers)
		defer func() {
			if err := kd.Close(); err != nil {
				lg.Error("Close kafka writer", zap.Error(err))
			}
		}()
		notifier = kd
	} else {
		lg.Warn("No Kafka brokers configured, order confirmations disabled")
	}

	expressCost, err := decimal.NewFromString(cfg.Shipping.ExpressCost)
	if err != nil {
		return errors.Wrapf(err, "parse express cost %q", cfg.Shipping.ExpressCost)
	}

	// Domain services.
	resolver := identity.NewResolver(sessionRepo, apikeyRepo, []byte(cfg.TokenPepper))
	evaluator := coupon.NewEvaluator(couponRepo)
	rates := shipping.FlatRates{Express: expressCost}
	checkout := order.NewService(productRepo, cartRepo, evaluator, rates, orderRepo, notifier,
		notify.Store{
			Name:        cfg.Store.Name,
			Address:     cfg.Store.Address,
			SenderEmail: cfg.Store.SenderEmail,
		})
	queries := order.NewQueries(orderRepo)

	// HTTP surface.
	h := handler.NewHandler(resolver, checkout, queries)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	instrumented := otelhttp.NewHandler(mux, "shop-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization", "api_key"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
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
