package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("postgres pool is closed")

// PoolOptions tunes the underlying pgxpool.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// Tracing attaches an OpenTelemetry query tracer.
	Tracing bool
}

// Pool is the process-wide connection pool. The first Get dials the database;
// later calls share the same pgxpool until Close. A failed dial is not cached,
// so the next Get retries.
type Pool struct {
	dsn  string
	opts PoolOptions

	mu     sync.RWMutex
	pool   *pgxpool.Pool
	closed bool
}

// NewPool returns an unconnected pool for dsn.
func NewPool(dsn string, opts PoolOptions) *Pool {
	return &Pool{dsn: dsn, opts: opts}
}

// Get returns the shared pgxpool, connecting on first use.
func (p *Pool) Get(ctx context.Context) (*pgxpool.Pool, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	if p.pool != nil {
		pool := p.pool
		p.mu.RUnlock()
		return pool, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.pool != nil {
		return p.pool, nil
	}

	pool, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return pool, nil
}

func (p *Pool) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if p.dsn == "" {
		return nil, fmt.Errorf("postgres.connect: empty database URL")
	}

	cfg, err := pgxpool.ParseConfig(p.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.connect: parsing config: %w", err)
	}
	if p.opts.MaxConns > 0 {
		cfg.MaxConns = p.opts.MaxConns
	}
	if p.opts.MinConns > 0 {
		cfg.MinConns = p.opts.MinConns
	}
	if p.opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = p.opts.MaxConnLifetime
	}
	if p.opts.Tracing {
		cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.connect: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.connect: ping: %w", err)
	}
	return pool, nil
}

// Ping checks connectivity, connecting first if needed.
func (p *Pool) Ping(ctx context.Context) error {
	pool, err := p.Get(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Close releases all connections. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}
