package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
)

type mockS3 struct {
	inputs   []*s3.PutObjectInput
	bodies   [][]byte
	err      error
	deadline bool
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	_, m.deadline = ctx.Deadline()
	m.inputs = append(m.inputs, params)
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.bodies = append(m.bodies, body)
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{}, nil
}

var cycleTime = time.Date(2025, 3, 5, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("body is not gzip: %v", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestKey(t *testing.T) {
	a := New(&mockS3{}, "bucket", "/access-logs/", time.Second)
	tests := []struct {
		file string
		want string
	}{
		{"/var/log/nginx_test.log", "access-logs/dt=2025-03-06/c1-nginx_test.log.gz"},
		{"nginx_test.log.gz", "access-logs/dt=2025-03-06/c1-nginx_test.log.gz"},
	}
	for _, tc := range tests {
		if got := a.Key(tc.file, "c1", cycleTime); got != tc.want {
			t.Errorf("Key(%q): got %q, want %q", tc.file, got, tc.want)
		}
	}

	if got := New(&mockS3{}, "bucket", "", time.Second).Key("a.log", "c1", cycleTime); got != "dt=2025-03-06/c1-a.log.gz" {
		t.Errorf("empty prefix: got %q", got)
	}
}

func TestUpload_CompressesPlainFile(t *testing.T) {
	content := "127.0.0.1 - - [05/Mar/2025:12:34:56 +0000] \"GET /index.html HTTP/1.1\" 200 1234\n"
	file := filepath.Join(t.TempDir(), "nginx_test.log")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &mockS3{}
	key, err := New(client, "logs-bucket", "access-logs", time.Second).Upload(context.Background(), file, "c1", cycleTime)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if key != "access-logs/dt=2025-03-06/c1-nginx_test.log.gz" {
		t.Errorf("unexpected key %q", key)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 put, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.Bucket) != "logs-bucket" || aws.ToString(in.Key) != key {
		t.Errorf("unexpected target s3://%s/%s", aws.ToString(in.Bucket), aws.ToString(in.Key))
	}
	if aws.ToInt64(in.ContentLength) != int64(len(client.bodies[0])) {
		t.Errorf("content length %d does not match body %d", aws.ToInt64(in.ContentLength), len(client.bodies[0]))
	}
	if got := gunzip(t, client.bodies[0]); got != content {
		t.Errorf("body: got %q, want %q", got, content)
	}
	if !client.deadline {
		t.Error("put should run under a deadline")
	}
}

func TestUpload_KeepsGzipFile(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("line\n"))
	gz.Close()

	file := filepath.Join(t.TempDir(), "nginx_test.log.gz")
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &mockS3{}
	if _, err := New(client, "b", "p", time.Second).Upload(context.Background(), file, "c2", cycleTime); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !bytes.Equal(client.bodies[0], buf.Bytes()) {
		t.Error("gzip input should be uploaded unchanged")
	}
}

func TestUpload_Errors(t *testing.T) {
	client := &mockS3{err: errors.New("access denied")}
	a := New(client, "b", "p", time.Second)

	if _, err := a.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.log"), "c", cycleTime); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "a.log")
	if err := os.WriteFile(file, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Upload(context.Background(), file, "c", cycleTime); err == nil {
		t.Error("expected put error")
	}
}
