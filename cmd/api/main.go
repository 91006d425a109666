package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"toptours-server/internal/adapter/repo"
	"toptours-server/internal/billing"
	"toptours-server/internal/catalog"
	"toptours-server/internal/domain"
	"toptours-server/internal/http/handlers"
	"toptours-server/internal/http/httpapi"
	"toptours-server/internal/infra"
	"toptours-server/internal/infra/credentials"
	"toptours-server/internal/infra/geoip"
	"toptours-server/internal/middleware"
	"toptours-server/internal/promo"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	catalogKey := cfg.CatalogAPIKey
	if catalogKey == "" {
		credStore := credentials.NewStore(runner)
		if key, err := credStore.CatalogAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to load catalog api key from store")
		} else {
			catalogKey = key
		}
	}

	catalogClient, err := catalog.NewClient(catalog.Options{
		TourBaseURL:    cfg.TourCatalogBaseURL,
		DiningBaseURL:  cfg.DiningCatalogBaseURL,
		APIKey:         catalogKey,
		RequestTimeout: cfg.CatalogTimeout,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure catalog client")
	}

	billingService := billing.NewService(
		repo.NewSubscriptionRepository(dbpool),
		billing.PriceTiers(cfg.StripePricePro, cfg.StripePriceProPlus, cfg.StripePriceEnterprise),
		cfg.StripeWebhookSecret,
		logger,
	)

	resetter := &promo.Resetter{
		Clock:    domain.SystemClock{Loc: cfg.ResetLocation()},
		Accounts: repo.NewAccountRepository(dbpool),
	}
	analyticsRepo := repo.NewAnalyticsRepository(dbpool)
	promoService := promo.NewService(
		repo.NewAccountRepository(dbpool),
		repo.NewLedgerRepository(dbpool),
		repo.NewLeaderboardRepository(dbpool),
		billingService,
		catalogClient,
		resetter,
		analyticsRepo,
		logger,
	)

	var countryLookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer func() {
			if closer, ok := resolver.(*geoip.Resolver); ok {
				_ = closer.Close()
			}
		}()
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Promo:        promoService,
		Billing:      billingService,
		SQL:          runner,
		Analytics:    analyticsRepo,
		Logger:       logger,
		JWTSecret:    cfg.JWTSecret,
		TrendingDays: cfg.TrendingWindowDays,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   countryLookup,
		Logger:          middleware.Logger(logger),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
