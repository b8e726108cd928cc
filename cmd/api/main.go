package main

import (
	"context"
	"time"

	"stylistapi/config"
	"stylistapi/controllers"
	"stylistapi/dbhelper"
	"stylistapi/services"
	"stylistapi/stylist"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := config.InitLogger(cfg.Log, nil)

	err = sentry.Init(sentry.ClientOptions{
		// SENTRY_DSN is read from the environment
		Environment:      cfg.Server.Environment,
		Release:          cfg.Server.Release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("sentry.Init failed")
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing firebase app")
	}
	redis := asynq.RedisClientOpt{Addr: cfg.Worker.BrokerAddress}
	asynqClient := asynq.NewClient(redis)
	defer asynqClient.Close()
	asynqInspector := asynq.NewInspector(redis)
	defer asynqInspector.Close()

	bucketName := cfg.Server.Bucket
	if bucketName == "" {
		bucketName = services.GetEnv("R2_BUCKET_NAME", "")
	}
	awsService := &services.AWSService{}
	urlCache, err := services.NewURLCacheService(awsService, bucketName, cfg.Cache.URLTTL, cfg.Cache.MaxCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize url cache")
	}

	// explanations fall back to templates when no model is reachable
	var explainer *stylist.Explainer
	genaiClient, err := services.NewGoogleClient(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("gemini client unavailable, template explanations only")
		explainer = stylist.NewExplainer(nil, nil, cfg.Stylist.Explainer, logger)
	} else {
		cached, err := services.NewCachedTextGenerator(
			&services.GeminiTextGenerator{Client: genaiClient, Model: services.FlashLite25},
			cfg.Cache.ExplanationTTL, cfg.Cache.MaxCost,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize explanation cache")
		}
		explainer = stylist.NewExplainer(cached, stylist.NewLimiter(cfg.Stylist.Explainer), cfg.Stylist.Explainer, logger)
	}
	recommender := stylist.NewRecommender(cfg.Stylist,
		stylist.WithLogger(logger),
		stylist.WithExplainer(explainer),
	)

	e := controllers.SetupServer(
		db, services.GoogleService{}, awsService, app,
		asynqClient, asynqInspector, urlCache,
		services.NewRecommendationService(recommender),
	)
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	log.Info().Str("addr", cfg.Server.Addr).Str("env", cfg.Server.Environment).Msg("starting api")
	if err := e.Start(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
