package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/config"
	"github.com/idrisskacou/Log-Store-2-DB/db"
	"github.com/idrisskacou/Log-Store-2-DB/formats"
	"github.com/idrisskacou/Log-Store-2-DB/generator"
	"github.com/idrisskacou/Log-Store-2-DB/ingest"
	"github.com/idrisskacou/Log-Store-2-DB/logger"

	"github.com/rs/zerolog/log"
)

// Configuration options
var (
	total    int
	driver   string
	database string
	logFile  string
	logLevel string
)

func init() {
	tmp := os.TempDir()

	// Parse command line flags
	flag.IntVar(&total, "total", 10000, "Number of log lines to generate and ingest")
	flag.StringVar(&driver, "driver", config.DriverSQLite, "Database driver (postgres, sqlite3 or duckdb)")
	flag.StringVar(&database, "db", filepath.Join(tmp, "logstore-bench.db"), "Database name or file")
	flag.StringVar(&logFile, "file", filepath.Join(tmp, "logstore-bench.log"), "Generated log file (.gz to compress)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level")
	flag.Parse()

	// Validate parameters
	if total < 1 {
		total = 1
	}
}

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cfg.DBDriver = driver
	cfg.DBName = database
	cfg.LogLevel = logLevel
	cfg.LogPretty = true
	logger.Init(cfg)

	// Display banner
	fmt.Println("=================================================================")
	fmt.Println("Log ingester burst benchmark")
	fmt.Println("=================================================================")
	fmt.Printf("Database:    %s (%s)\n", database, driver)
	fmt.Printf("Log file:    %s\n", logFile)
	fmt.Printf("Lines:       %d\n", total)
	fmt.Println("=================================================================")

	statuses := formats.NewStatusTable()
	startTime := time.Now()
	if err := generator.New(statuses, nil).WriteFile(logFile, total); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate log file")
	}
	generated := time.Since(startTime)

	store, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.InitializeSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}

	ingester := ingest.NewIngester(formats.NewAccessLogParser(statuses), store)
	startTime = time.Now()
	report, err := ingester.ProcessFile(ctx, logFile)
	duration := time.Since(startTime)
	if err != nil {
		fmt.Printf("Ingest error: %v\n", err)
	}

	// Calculate and display results
	linesPerSecond := float64(report.Inserted) / duration.Seconds()

	fmt.Println("=================================================================")
	fmt.Printf("Benchmark complete!\n")
	fmt.Printf("Generate:    %.2f seconds\n", generated.Seconds())
	fmt.Printf("Ingest:      %.2f seconds\n", duration.Seconds())
	fmt.Printf("Inserted:    %d\n", report.Inserted)
	fmt.Printf("Skipped:     %d\n", report.Skipped)
	fmt.Printf("Throughput:  %.2f lines/second\n", linesPerSecond)
	fmt.Println("=================================================================")
}
