// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"rss-digest/internal/config"
	"rss-digest/internal/domain/ports/adapter"
	"rss-digest/internal/infra/adapters/alert"
	"rss-digest/internal/infra/adapters/anthropic"
	emailAdapter "rss-digest/internal/infra/adapters/email"
	feedAdapter "rss-digest/internal/infra/adapters/feed"
	"rss-digest/internal/infra/adapters/publish"
	"rss-digest/internal/infra/adapters/speech"
	pg "rss-digest/internal/infra/db/postgres"
	"rss-digest/internal/infra/logging"
	"rss-digest/internal/infra/metrics"
	red "rss-digest/internal/infra/redis"
	"rss-digest/internal/infra/sched"
	"rss-digest/internal/infra/web"
	"rss-digest/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	watermarks := pg.NewWatermarkRepo(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- AWS clients ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)
	pollyClient := polly.NewFromConfig(awsCfg)
	sesClient := sesv2.NewFromConfig(awsCfg)

	// ---- Adapters ----
	batches, err := anthropic.New(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.BaseURL)
	if err != nil {
		log.Fatalf("anthropic: %v", err)
	}
	feeds := feedAdapter.NewS3FeedSource(s3Client, cfg.Feed.Bucket, cfg.Feed.Key, *logger)
	sender := emailAdapter.NewSESSender(sesClient, cfg.Email.SourceAddress, cfg.Email.ToAddress)
	synth := speech.NewPollySynthesizer(pollyClient)
	publisher := publish.NewS3Publisher(s3Client, cfg.Podcast.Bucket, cfg.Podcast.CDNDomain, *logger)

	var alerter adapter.Alerter = alert.Noop{}
	if cfg.Alert.TelegramToken != "" {
		tg, err := alert.NewTelegramAlerter(cfg.Alert.TelegramToken, cfg.Alert.ChatID)
		if err != nil {
			log.Fatalf("telegram alerter: %v", err)
		}
		alerter = tg
	}

	// ---- Use cases ----
	clock := usecase.NewClock()
	recorder := metrics.Recorder{}
	submitter := usecase.NewSubmitter(batches, recorder, usecase.SubmitterConfig{
		EmailBatchSize:   cfg.Batch.EmailBatchSize,
		EmailMaxTokens:   cfg.Anthropic.MaxTokens,
		PodcastMaxTokens: cfg.Podcast.MaxTokens,
		TokenCeiling:     cfg.Batch.TokenCeiling,
		Categories:       cfg.Email.Categories,
		SpeakerA:         cfg.Podcast.SpeakerA,
		SpeakerB:         cfg.Podcast.SpeakerB,
	}, logger)
	poller := usecase.NewPoller(batches, recorder, logger)
	emailDispatcher := usecase.NewEmailDispatcher(batches, sender, recorder, cfg.Email.Subject, cfg.Email.Categories, logger)
	podcastDispatcher := usecase.NewPodcastDispatcher(batches, synth, publisher, recorder, usecase.PodcastConfig{
		SpeakerA:      cfg.Podcast.SpeakerA,
		SpeakerB:      cfg.Podcast.SpeakerB,
		VoiceA:        cfg.Podcast.VoiceA,
		VoiceB:        cfg.Podcast.VoiceB,
		MaxChunkChars: cfg.Podcast.MaxChunkChars,
	}, logger)

	orchestrator := usecase.NewOrchestrator(
		feeds, submitter, poller,
		emailDispatcher, podcastDispatcher,
		watermarks, locker, alerter, clock, recorder,
		usecase.OrchestratorConfig{
			PollInterval: cfg.Batch.PollInterval,
			PollBudget:   cfg.Batch.PollBudget,
			Lookback:     time.Duration(cfg.Feed.LookbackDays) * 24 * time.Hour,
			LockTTL:      cfg.Redis.LockTTL,
		},
		logger,
	)

	// ---- Ops HTTP server ----
	authMgr := web.NewAuthManager(cfg.Admin.JWTSecret, 30*time.Minute)
	opsServer := web.NewServer(orchestrator, watermarks, authMgr, cfg.Scheduler.RunTimeout, *logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:      opsServer.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("ops server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server stopped")
		}
	}()

	// ---- Scheduler ----
	worker := sched.NewDigestWorker(cfg.Scheduler.Interval, cfg.Scheduler.RunTimeout, orchestrator, logger)
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("digest worker stopped")
		}
	}()

	// ---- Shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown")
	}
}
