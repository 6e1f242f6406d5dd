package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/idrisskacou/Log-Store-2-DB/formats"
	"github.com/idrisskacou/Log-Store-2-DB/models"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// maxLineSize bounds a single access-log line; longer lines are skipped.
const maxLineSize = 1024 * 1024

// RecordWriter persists one parsed record.
type RecordWriter interface {
	InsertRecord(ctx context.Context, record models.LogRecord) error
}

// Report summarizes one pass over a source.
type Report struct {
	Source   string `json:"source"`
	Lines    int    `json:"lines"`
	Parsed   int    `json:"parsed"`
	Skipped  int    `json:"skipped"`
	Inserted int    `json:"inserted"`
}

// Ingester reads lines, parses them and hands every record to the writer
// in input order, one at a time.
type Ingester struct {
	parser formats.LineParser
	writer RecordWriter
}

func NewIngester(parser formats.LineParser, writer RecordWriter) *Ingester {
	return &Ingester{parser: parser, writer: writer}
}

// ProcessFile ingests every line of path. Files ending in .gz are
// decompressed on the fly.
func (in *Ingester) ProcessFile(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{Source: path}, fmt.Errorf("ingest open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Report{Source: path}, fmt.Errorf("ingest gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return in.ProcessReader(ctx, path, r)
}

// ProcessReader ingests r line by line. Lines longer than maxLineSize are
// skipped like any other malformed line. The first insert failure aborts
// the pass; the returned report covers everything handled before it.
func (in *Ingester) ProcessReader(ctx context.Context, source string, r io.Reader) (Report, error) {
	report := Report{Source: source}

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			return report, fmt.Errorf("ingest read %s: %w", source, err)
		}
		if tooLong {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Lines++
			report.Skipped++
			log.Debug().Str("source", report.Source).Int("line", report.Lines).Int("max", maxLineSize).Msg("Skipped over-long line")
			continue
		}
		if err := in.handleLine(ctx, line, &report); err != nil {
			return report, err
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed to its end and reported as tooLong with no content.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// ProcessLines ingests lines that were already split, such as log events
// pulled from a remote source.
func (in *Ingester) ProcessLines(ctx context.Context, source string, lines []string) (Report, error) {
	report := Report{Source: source}
	for _, line := range lines {
		if err := in.handleLine(ctx, line, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (in *Ingester) handleLine(ctx context.Context, line string, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	report.Lines++

	record, ok := in.parser.Parse(strings.TrimRight(line, "\r"))
	if !ok {
		report.Skipped++
		log.Debug().Str("source", report.Source).Int("line", report.Lines).Str("raw", line).Msg("Skipped line")
		return nil
	}
	if _, err := record.Time(); err != nil {
		report.Skipped++
		log.Debug().Str("source", report.Source).Int("line", report.Lines).Str("timestamp", record.Timestamp).Msg("Skipped line with unreadable timestamp")
		return nil
	}
	report.Parsed++
	log.Debug().
		Str("source", report.Source).
		Int("line", report.Lines).
		Str("timestamp", record.Timestamp).
		Int("status", record.Status).
		Int("number_of_request", record.NumberOfRequest).
		Str("status_description", record.StatusDescription).
		Msg("Parsed line")

	if err := in.writer.InsertRecord(ctx, record); err != nil {
		return fmt.Errorf("ingest %s line %d: %w", report.Source, report.Lines, err)
	}
	report.Inserted++
	return nil
}
