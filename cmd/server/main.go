package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	chathandler "folio/internal/chat/handler"
	"folio/internal/chat/invoker"
	chatservice "folio/internal/chat/service"
	classifyhandler "folio/internal/classify/handler"
	classifyinvoker "folio/internal/classify/invoker"
	classifyservice "folio/internal/classify/service"
	garminhandler "folio/internal/garmin/handler"
	garminservice "folio/internal/garmin/service"
	garminstore "folio/internal/garmin/store"
	"folio/internal/platform/config"
	"folio/internal/platform/database"
	"folio/internal/platform/health"
	"folio/internal/platform/logger"
	"folio/internal/platform/metrics"
	platformredis "folio/internal/platform/redis"
	quotaconfig "folio/internal/quota/config"
	quotahandler "folio/internal/quota/handler"
	quotametrics "folio/internal/quota/metrics"
	quotamodels "folio/internal/quota/models"
	"folio/internal/quota/ports"
	quotaservice "folio/internal/quota/service"
	"folio/internal/quota/store/breaker"
	"folio/internal/quota/store/memory"
	quotaredis "folio/internal/quota/store/redis"
	"folio/internal/quota/workers/sweeper"
	httptransport "folio/internal/transport/http"
	"folio/internal/verification/turnstile"
	"folio/pkg/platform/circuit"
	"folio/pkg/platform/middleware/metadata"
	"folio/pkg/platform/middleware/request"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.DefaultRegisterer
	appMetrics := metrics.New(reg)
	gateMetrics := quotametrics.New(reg)
	healthHandler := health.New(cfg.Server.Environment)

	log.Info("initializing folio",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
	)

	// Quota policies and counter stores.
	policies := quotaconfig.DefaultConfig().WithLimits(
		cfg.Quota.ClassifierDailyLimit, cfg.Quota.ChatHourlyLimit, cfg.Quota.StoreTimeout)

	memStore := memory.New()
	stores := map[quotamodels.Backend]ports.CounterStore{quotamodels.BackendMemory: memStore}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		// The remote store is optional; quotas keep working in-process.
		log.Warn("redis unavailable, counting every policy in memory", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // process is exiting
		cb := circuit.New("quota-redis", circuit.WithStateChange(func(name string, from, to circuit.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from, "to", to)
			gateMetrics.RecordBreakerTransition(name, string(to))
		}))
		stores[quotamodels.BackendRemote] = breaker.New(quotaredis.New(redisClient.Client), cb)
		healthHandler.RegisterCheck("redis", redisClient)
		reg.MustRegister(redisClient.PoolCollector())
	} else {
		policies = policies.DemoteRemote()
	}
	if err := policies.Validate(); err != nil {
		return fmt.Errorf("quota policies: %w", err)
	}
	for id, p := range policies.Policies {
		healthHandler.SetFeature("quota."+string(id), string(p.Backend))
	}

	gate, err := quotaservice.New(stores,
		quotaservice.WithLogger(log),
		quotaservice.WithMetrics(gateMetrics),
	)
	if err != nil {
		return fmt.Errorf("quota gate: %w", err)
	}

	// Health data source.
	var source garminservice.Source = garminstore.NewSnapshot()
	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Warn("database unavailable, serving embedded health snapshot", "error", err)
		pool = nil
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // process is exiting
		source = garminstore.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("postgres", pool)
	}
	healthHandler.SetFeature("health_data", source.Name())
	healthData := garminservice.New(source,
		garminservice.WithLogger(log),
		garminservice.WithMetrics(appMetrics),
	)

	// Model providers. A missing key leaves the interface nil so the
	// services degrade instead of calling out with no credentials.
	var classifier classifyservice.Classifier
	if cfg.Providers.OpenAIAPIKey != "" {
		classifier = classifyinvoker.NewOpenAI(classifyinvoker.Config{
			APIKey: cfg.Providers.OpenAIAPIKey,
			Model:  cfg.Providers.OpenAIModel,
		})
	}
	var responder chatservice.Responder
	if cfg.Providers.AnthropicAPIKey != "" {
		responder = invoker.NewAnthropic(invoker.Config{
			APIKey: cfg.Providers.AnthropicAPIKey,
			Model:  cfg.Providers.AnthropicModel,
		})
	}
	verifier := turnstile.New(turnstile.Config{
		Secret:    cfg.Providers.TurnstileSecretKey,
		VerifyURL: cfg.Providers.TurnstileVerifyURL,
	})
	healthHandler.SetFeature("classifier", enabled(classifier != nil))
	healthHandler.SetFeature("chat", enabled(responder != nil))
	healthHandler.SetFeature("human_verification", enabled(verifier.Configured()))
	if !verifier.Configured() {
		log.Warn("TURNSTILE_SECRET_KEY not set, classifier requests will fail verification")
	}

	classify := classifyservice.New(gate, verifier, classifier, policies.MustPolicy(quotamodels.PolicyClassifier),
		classifyservice.WithLogger(log),
		classifyservice.WithMetrics(appMetrics),
	)
	chat := chatservice.New(gate, responder, healthData, policies.MustPolicy(quotamodels.PolicyChat),
		chatservice.WithLogger(log),
		chatservice.WithMetrics(appMetrics),
	)

	resolver, err := metadata.NewResolver(cfg.Security.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	var adminHandler *quotahandler.Handler
	if cfg.Security.AdminAPIToken != "" {
		adminHandler = quotahandler.New(gate, policies, log)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Resolver:       resolver,
		RequestMetrics: request.NewMetrics(reg),
		Health:         healthHandler,
		Classify:       classifyhandler.New(classify, log),
		Chat:           chathandler.New(chat, log),
		Garmin:         garminhandler.New(healthData, log),
		Quota:          adminHandler,
		AdminToken:     cfg.Security.AdminAPIToken,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if interval := policies.SweepInterval(); interval > 0 {
		sweep := sweeper.New(memStore,
			sweeper.WithLogger(log),
			sweeper.WithInterval(interval),
			sweeper.WithMetrics(gateMetrics),
		)
		g.Go(func() error {
			return ignoreCancel(sweep.Start(gctx))
		})
	}

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
