package main

import (
	"context"
	"fmt"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/config"
	"github.com/idrisskacou/Log-Store-2-DB/ingest"
	"github.com/idrisskacou/Log-Store-2-DB/scheduler"

	"github.com/rs/zerolog/log"
)

type fileGenerator interface {
	WriteFile(path string, count int) error
}

type lineFetcher interface {
	Fetch(ctx context.Context) ([]string, error)
}

type fileArchiver interface {
	Upload(ctx context.Context, file, cycleID string, t time.Time) (string, error)
}

// cycleRunner is the scheduled job: produce or fetch input, ingest it,
// optionally archive it, and record the outcome.
type cycleRunner struct {
	cfg      *config.Config
	ingester *ingest.Ingester
	status   *ingest.Status

	generator fileGenerator // nil unless INGEST_GENERATE
	fetcher   lineFetcher   // set for the cloudwatch source
	archiver  fileArchiver  // nil unless INGEST_ARCHIVE_BUCKET
}

func (c *cycleRunner) Run(ctx context.Context, cycle scheduler.Cycle) error {
	report, err := c.ingest(ctx, cycle)
	c.status.Record(cycle.ID, cycle.Started, report, err)

	log.Info().
		Str("cycle", cycle.ID).
		Str("source", report.Source).
		Int("lines", report.Lines).
		Int("parsed", report.Parsed).
		Int("skipped", report.Skipped).
		Int("inserted", report.Inserted).
		Msg("Log processing complete")
	return err
}

func (c *cycleRunner) ingest(ctx context.Context, cycle scheduler.Cycle) (ingest.Report, error) {
	if c.cfg.Source == config.SourceCloudWatch {
		lines, err := c.fetcher.Fetch(ctx)
		if err != nil {
			return ingest.Report{Source: config.SourceCloudWatch}, err
		}
		return c.ingester.ProcessLines(ctx, config.SourceCloudWatch, lines)
	}

	path := c.cfg.LogFile
	if c.generator != nil {
		if err := c.generator.WriteFile(path, c.cfg.GenerateCount); err != nil {
			return ingest.Report{Source: path}, err
		}
		log.Debug().Str("file", path).Int("count", c.cfg.GenerateCount).Msg("Generated synthetic log entries")
	}

	report, err := c.ingester.ProcessFile(ctx, path)
	if err != nil {
		return report, err
	}
	if c.archiver != nil {
		if _, err := c.archiver.Upload(ctx, path, cycle.ID, cycle.Started); err != nil {
			return report, fmt.Errorf("cycle %s: %w", cycle.ID, err)
		}
	}
	return report, nil
}
