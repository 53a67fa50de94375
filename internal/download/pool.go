package download

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nao1215/linkspider/internal/config"
	"golang.org/x/sync/errgroup"
)

// Downloader fetches one address to disk.
type Downloader interface {
	Download(ctx context.Context, addr string) error
}

// Pool runs downloads concurrently. Submit never blocks; at most limit
// downloads run at once and the rest wait their turn.
type Pool struct {
	downloader Downloader
	limit      int
	logger     *slog.Logger

	group   errgroup.Group
	pending sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLimit sets the number of concurrent downloads. Values below 1 are ignored.
func WithLimit(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithPoolLogger sets the logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool creates a Pool running d.
func NewPool(d Downloader, opts ...PoolOption) *Pool {
	p := &Pool{
		downloader: d,
		limit:      config.DefaultWgetConcurrency,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.group.SetLimit(p.limit)
	return p
}

// Submit schedules a download of addr. Must not be called after Wait.
func (p *Pool) Submit(ctx context.Context, addr string) {
	p.pending.Go(func() {
		p.group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := p.downloader.Download(ctx, addr); err != nil {
				p.logger.Warn("download failed", "url", addr, "error", err)
				p.mu.Lock()
				p.errs = append(p.errs, err)
				p.mu.Unlock()
				return nil
			}
			p.logger.Debug("download completed", "url", addr)
			return nil
		})
	})
}

// Wait blocks until every submitted download has finished and returns the
// joined download errors, or nil.
func (p *Pool) Wait() error {
	p.pending.Wait()
	_ = p.group.Wait() //nolint:errcheck // tasks never return errors

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}
