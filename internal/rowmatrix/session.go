package rowmatrix

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/hupe1980/randls/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Session is the execution context shared by every matrix built on it.
type Session struct {
	parallelism int
	logger      *slog.Logger
	rc          *resource.Controller
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithParallelism bounds the number of partitions processed concurrently.
func WithParallelism(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResourceController sets the controller for worker slots, IO rate and
// cache memory.
func WithResourceController(rc *resource.Controller) SessionOption {
	return func(s *Session) {
		s.rc = rc
	}
}

// NewSession creates a session. Parallelism defaults to GOMAXPROCS.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		parallelism: runtime.GOMAXPROCS(0),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rc == nil {
		s.rc = resource.NewController(resource.Config{MaxWorkers: int64(s.parallelism)})
	}
	return s
}

// Parallelism returns the partition concurrency limit.
func (s *Session) Parallelism() int { return s.parallelism }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Resources returns the session resource controller.
func (s *Session) Resources() *resource.Controller { return s.rc }

// run calls fn for every index in [0, n) on a bounded errgroup. The first
// error cancels the remaining tasks and is returned.
func (s *Session) run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := s.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.rc.ReleaseWorker()
			return fn(gctx, i)
		})
	}

	return g.Wait()
}
