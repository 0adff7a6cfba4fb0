package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/preceptorhub/preceptor-engine/pkg/database"
)

// scopeAcquireWait bounds how long a fetch waits for an extra pooled
// connection before it falls back to the caller's connection.
var scopeAcquireWait = 250 * time.Millisecond

// runParallel runs each fetch on its own scoped connection, since a pooled
// connection serves one query at a time. The caller already holds a
// connection, so a fetch never waits on the pool for long: when no extra
// connection frees up within scopeAcquireWait it runs on ctx instead, one such
// fetch at a time. With a nil scope the fetches run sequentially on ctx.
func runParallel(ctx context.Context, scope database.ScopeFunc, fetches ...func(ctx context.Context) error) error {
	if scope == nil {
		for _, fetch := range fetches {
			if err := fetch(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	var shared sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, fetch := range fetches {
		g.Go(func() error {
			acquireCtx, cancel := context.WithTimeout(gctx, scopeAcquireWait)
			scopedCtx, cleanup, err := scope(acquireCtx)
			cancel()
			if err == nil {
				defer cleanup()
				// The scope outlives acquireCtx; keep gctx's cancellation.
				return fetch(database.SetScope(gctx, scopeOf(scopedCtx)))
			}
			if gctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("acquire connection: %w", err)
			}

			shared.Lock()
			defer shared.Unlock()
			return fetch(gctx)
		})
	}
	return g.Wait()
}

func scopeOf(ctx context.Context) *database.Scope {
	s, _ := ctx.Value(database.ScopeKey).(*database.Scope)
	return s
}
