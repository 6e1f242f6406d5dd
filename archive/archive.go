package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver copies processed input files to S3, gzip-compressed.
type Archiver struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
}

func New(client PutObjectAPI, bucket, prefix string, timeout time.Duration) *Archiver {
	return &Archiver{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		timeout: timeout,
	}
}

// Key returns the object key for file processed by cycleID at t:
// <prefix>/dt=YYYY-MM-DD/<cycleID>-<base>.gz
func (a *Archiver) Key(file, cycleID string, t time.Time) string {
	base := filepath.Base(file)
	if !strings.HasSuffix(base, ".gz") {
		base += ".gz"
	}
	return path.Join(a.prefix, "dt="+t.UTC().Format("2006-01-02"), cycleID+"-"+base)
}

// Upload stores file under Key and returns the key. The whole put is bounded
// by the archiver's timeout.
func (a *Archiver) Upload(ctx context.Context, file, cycleID string, t time.Time) (string, error) {
	body, err := readCompressed(file)
	if err != nil {
		return "", fmt.Errorf("archive read %s: %w", file, err)
	}
	key := a.Key(file, cycleID, t)

	ctx2, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err = a.client.PutObject(ctx2, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("text/plain"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("archive put s3://%s/%s: %w", a.bucket, key, err)
	}
	log.Info().Str("bucket", a.bucket).Str("key", key).Int("bytes", len(body)).Msg("Archived log file")
	return key, nil
}

// readCompressed returns the gzip bytes of file, compressing it unless it
// already carries a .gz suffix.
func readCompressed(file string) ([]byte, error) {
	if strings.HasSuffix(file, ".gz") {
		return os.ReadFile(file)
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(gz, f); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
