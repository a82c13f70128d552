package journal

import (
	"context"
	"sync"
	"time"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Pruner periodically deletes journal entries past the retention window.
type Pruner struct {
	repo      *SQLiteRepository
	retention time.Duration
	interval  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex
}

// NewPruner creates a pruner for the given repository.
//
// Parameters:
//   - repo: Repository to prune
//   - retention: How long entries are kept
//   - interval: How often the prune runs
func NewPruner(repo *SQLiteRepository, retention, interval time.Duration) *Pruner {
	return &Pruner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// SetLogger sets an optional logger for prune results.
func (p *Pruner) SetLogger(logger Logger) {
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}

func (p *Pruner) getLogger() Logger {
	p.loggerMu.RLock()
	defer p.loggerMu.RUnlock()
	return p.logger
}

// Start launches the background prune loop. It runs until Stop is called.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go p.loop(ctx)
}

// Stop halts the prune loop and waits for it to exit.
func (p *Pruner) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-p.done
}

// loop runs the prune on a ticker until the context is cancelled.
func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	deleted, err := p.repo.Prune(ctx, p.retention)
	logger := p.getLogger()
	if logger == nil {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("journal prune failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		logger.Debug("journal pruned", "deleted", deleted, "retention", p.retention)
	}
}
