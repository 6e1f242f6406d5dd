package generator

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/formats"

	"github.com/klauspost/compress/gzip"
)

const (
	// maxAgeDays is the oldest a generated entry can be.
	maxAgeDays = 30
	minBytes   = 200
	maxBytes   = 5000

	timestampLayout = "02/Jan/2006:15:04:05 +0000"
)

// Generator produces synthetic access-log lines in the format the
// access-log parser accepts.
type Generator struct {
	statuses []int
	rng      *rand.Rand

	// Now is the reference time entries are aged from.
	Now func() time.Time
}

// New returns a generator picking status codes from table. A nil rng
// uses a randomly seeded source.
func New(table *formats.StatusTable, rng *rand.Rand) *Generator {
	if table == nil {
		table = formats.NewStatusTable()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		statuses: table.Codes(),
		rng:      rng,
		Now:      time.Now,
	}
}

// Line returns one synthetic entry, without the trailing newline.
func (g *Generator) Line() string {
	ts := g.Now().UTC().AddDate(0, 0, -g.rng.IntN(maxAgeDays+1))
	status := g.statuses[g.rng.IntN(len(g.statuses))]
	size := minBytes + g.rng.IntN(maxBytes-minBytes+1)

	var b strings.Builder
	b.WriteString("127.0.0.1 - - [")
	b.WriteString(ts.Format(timestampLayout))
	b.WriteString(`] "GET /index.html HTTP/1.1" `)
	fmt.Fprintf(&b, "%d %d", status, size)
	return b.String()
}

// Write emits count lines to w.
func (g *Generator) Write(w io.Writer, count int) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < count; i++ {
		if _, err := bw.WriteString(g.Line() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile replaces path with count fresh lines. Paths ending in .gz are
// gzip-compressed.
func (g *Generator) WriteFile(path string, count int) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("generator open %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if err := g.Write(w, count); err != nil {
		return fmt.Errorf("generator write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("generator gzip %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("generator close %s: %w", path, err)
	}
	return nil
}
