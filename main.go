package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/archive"
	"github.com/idrisskacou/Log-Store-2-DB/config"
	"github.com/idrisskacou/Log-Store-2-DB/db"
	"github.com/idrisskacou/Log-Store-2-DB/formats"
	"github.com/idrisskacou/Log-Store-2-DB/generator"
	"github.com/idrisskacou/Log-Store-2-DB/ingest"
	"github.com/idrisskacou/Log-Store-2-DB/logger"
	"github.com/idrisskacou/Log-Store-2-DB/scheduler"
	"github.com/idrisskacou/Log-Store-2-DB/server"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	store, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	// Initialize database schema
	if err := store.InitializeSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}

	statuses := formats.NewStatusTable()
	runner := &cycleRunner{
		cfg:      cfg,
		ingester: ingest.NewIngester(formats.NewAccessLogParser(statuses), store),
		status:   ingest.NewStatus(),
	}
	if cfg.Source == config.SourceFile && cfg.Generate {
		runner.generator = generator.New(statuses, nil)
	}

	if cfg.Source == config.SourceCloudWatch || cfg.ArchiveBucket != "" {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		if cfg.Source == config.SourceCloudWatch {
			runner.fetcher, err = ingest.NewCloudWatchSource(cloudwatchlogs.NewFromConfig(awsCfg), ingest.CloudWatchOptions{
				Groups:      cfg.CloudWatchGroups,
				Filter:      cfg.CloudWatchFilter,
				MessagePath: cfg.CloudWatchMessagePath,
				Lookback:    cfg.CloudWatchLookback,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create CloudWatch source")
			}
		}
		switch {
		case cfg.ArchiveBucket == "":
		case cfg.Source == config.SourceFile:
			runner.archiver = archive.New(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, cfg.ArchivePrefix, cfg.ArchiveTimeout)
		default:
			log.Warn().Str("source", cfg.Source).Msg("INGEST_ARCHIVE_BUCKET ignored: only file input is archived")
		}
	}

	schedule, err := scheduler.NewSchedule(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid schedule")
	}

	// Start HTTP status server
	var srv *server.Server
	if cfg.HTTPAddr != "" {
		srv = server.NewServer(cfg.HTTPAddr, runner.status)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP status server stopped")
			}
		}()
	}

	log.Info().
		Str("source", cfg.Source).
		Str("driver", cfg.DBDriver).
		Dur("interval", cfg.Interval).
		Str("schedule", cfg.Schedule).
		Msg("Log ingester started")

	scheduler.New(schedule, runner.Run).Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		cancel()
	}
	log.Info().Msg("Shutdown complete")
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
