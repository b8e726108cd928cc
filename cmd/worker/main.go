package main

import (
	"context"
	"time"

	"stylistapi/config"
	"stylistapi/dbhelper"
	"stylistapi/services"
	"stylistapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

func runScheduler(redis asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 9 * * *", // 9:00 AM daily
			task: tasks.NewLaundryReminderTask(),
			desc: "Laundry reminder notifications",
		},
	}

	for _, t := range entries {
		entryID, err := scheduler.Register(t.cron, t.task, asynq.Queue(tasks.QueueStyle))
		if err != nil {
			log.Fatal().Err(err).Str("task", t.desc).Msg("failed to register scheduled task")
		}
		log.Info().Str("task", t.desc).Str("entry", entryID).Str("cron", t.cron).Msg("registered scheduled task")
	}

	log.Info().Msg("starting scheduler")
	if err := scheduler.Run(); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	config.InitLogger(cfg.Log, nil)

	err = sentry.Init(sentry.ClientOptions{
		Environment: cfg.Server.Environment,
		Release:     cfg.Server.Release,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("sentry.Init failed")
	}
	defer sentry.Flush(2 * time.Second)

	redis := asynq.RedisClientOpt{Addr: cfg.Worker.BrokerAddress}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			tasks.QueueGenerate: cfg.Worker.GenerateWeight,
			tasks.QueueStyle:    cfg.Worker.StyleWeight,
		},
	})

	awsService := &services.AWSService{}
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("[Queue] failed to initialize object storage client")
	}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing firebase app")
	}
	genaiClient, err := services.NewGoogleClient(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("[Queue] failed to initialize gemini client")
	}
	analyzer := services.GoogleClothingAnalyzer{Client: genaiClient}

	db := dbhelper.SetupDB()
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeStyleFeedback, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleStyleFeedbackTask(ctx, t, db, cfg.Stylist)
	})
	mux.HandleFunc(tasks.TypeClothingAnalyze, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleClothingAnalysisTask(ctx, t, db, analyzer, awsService, app)
	})
	mux.HandleFunc(tasks.TypeLaundryReminder, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleLaundryReminderTask(ctx, t, db, app)
	})

	go runScheduler(redis)
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
