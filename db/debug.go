package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/qustavo/sqlhooks/v2"
	"github.com/rs/zerolog/log"
)

type queryStartKey struct{}

// Hooks logs every statement with its arguments and duration at debug level.
type Hooks struct{}

// Before records the query start time in the context.
func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, queryStartKey{}, time.Now()), nil
}

// After logs the query using the start time recorded by Before.
func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	event := log.Debug().Str("query", query).Interface("args", args)
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		event = event.Dur("duration", time.Since(start))
	}
	event.Msg("Query")
	return ctx, nil
}

var registerDebugDriver sync.Map

// debugDriverName registers (once) a hook-wrapped copy of the dialect's
// driver and returns its name.
func debugDriverName(d Dialect) (string, error) {
	if d.driver == nil {
		return "", fmt.Errorf("db: query debugging is not supported for %s", d.Name)
	}
	name := d.DriverName + "-debug"
	once, _ := registerDebugDriver.LoadOrStore(name, &sync.Once{})
	once.(*sync.Once).Do(func() {
		sql.Register(name, sqlhooks.Wrap(d.driver(), &Hooks{}))
	})
	return name, nil
}
