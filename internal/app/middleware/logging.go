package middleware

import (
	"context"
	"log/slog"
	"time"

	"staysync/internal/app/queries"
)

// QueryLogging records every query with its outcome and latency. Read paths
// carry no transaction or outbox wrapper, so this is their only trace.
func QueryLogging(logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			if logger != nil {
				if err != nil {
					logger.Warn("query failed", "query", q.Key(), "duration", time.Since(start), "error", err)
				} else {
					logger.Debug("query handled", "query", q.Key(), "duration", time.Since(start))
				}
			}
			return res, err
		})
	}
}
