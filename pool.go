package modbus

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/fieldline/modbus/mbap"
)

// PoolConfig holds configuration for a client connection pool.
type PoolConfig struct {
	// MaxSize is the maximum number of connections in the pool.
	// Required: must be > 0.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle
	// before being closed. Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are checked with
	// a diagnostics echo. Zero disables health checks.
	HealthCheckInterval time.Duration

	// HealthCheckUnitID is the unit addressed by health-check pings.
	HealthCheckUnitID byte

	// Dialer is used to create new connections. If nil, the default
	// net.Dialer is used.
	Dialer *net.Dialer

	// Logger receives debug-level events from the pool and its clients.
	Logger *zerolog.Logger

	// Allocator issues transaction identifiers for all pooled clients.
	// If nil, the process-wide shared allocator is used.
	Allocator *TIDAllocator

	// NewCircuitBreaker creates a circuit breaker for the server.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) CircuitBreaker

	// for testing purposes only
	constructor func(ctx context.Context) (*Client, error)
}

// Pool is a fixed-endpoint pool of stream clients implementing Querier.
// Each typed operation acquires a client, runs one round-trip and releases
// it; clients whose connection failed are destroyed instead of released.
type Pool struct {
	querier

	addr    string
	pool    *puddle.Pool[*Client]
	breaker CircuitBreaker
	log     zerolog.Logger

	maxConnLifetime     time.Duration
	maxConnIdleTime     time.Duration
	healthCheckInterval time.Duration
	healthCheckUnitID   byte

	stopHealthCheck chan struct{}
}

var _ Querier = (*Pool)(nil)

// NewPool creates a pool of clients for one server address.
func NewPool(addr string, config PoolConfig) (*Pool, error) {
	if config.MaxSize <= 0 {
		return nil, fmt.Errorf("modbus: pool MaxSize must be > 0, got %d", config.MaxSize)
	}

	constructor := config.constructor
	if constructor == nil {
		clientConfig := ClientConfig{
			Dialer:    config.Dialer,
			Logger:    config.Logger,
			Allocator: config.Allocator,
		}
		constructor = func(ctx context.Context) (*Client, error) {
			client := NewClient(addr, clientConfig)
			if err := client.Connect(ctx); err != nil {
				return nil, err
			}
			return client, nil
		}
	}

	inner, err := puddle.NewPool(&puddle.Config[*Client]{
		Constructor: constructor,
		Destructor:  func(c *Client) { _ = c.Close() },
		MaxSize:     config.MaxSize,
	})
	if err != nil {
		return nil, err
	}

	p := &Pool{
		addr:                addr,
		pool:                inner,
		log:                 config.logger().With().Str("server", addr).Logger(),
		maxConnLifetime:     config.MaxConnLifetime,
		maxConnIdleTime:     config.MaxConnIdleTime,
		healthCheckInterval: config.HealthCheckInterval,
		healthCheckUnitID:   config.HealthCheckUnitID,
		stopHealthCheck:     make(chan struct{}),
	}
	p.querier = querier{rt: p}

	if config.NewCircuitBreaker != nil {
		p.breaker = config.NewCircuitBreaker(addr)
	}

	if config.HealthCheckInterval > 0 {
		go p.healthCheckLoop()
	}

	return p, nil
}

func (c PoolConfig) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}

// Addr returns the server address the pool connects to.
func (p *Pool) Addr() string {
	return p.addr
}

// Close destroys all pooled clients. In-progress acquires fail with
// ErrPoolClosed.
func (p *Pool) Close() {
	if p.healthCheckInterval > 0 {
		close(p.stopHealthCheck)
	}
	p.pool.Close()
}

// PoolStats is a snapshot of pool resource counters.
type PoolStats struct {
	TotalConns        int32
	IdleConns         int32
	ActiveConns       int32
	AcquireCount      int64
	EmptyAcquireCount int64
	CanceledAcquires  int64
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      s.AcquireCount(),
		EmptyAcquireCount: s.EmptyAcquireCount(),
		CanceledAcquires:  s.CanceledAcquireCount(),
	}
}

// BreakerState returns the circuit breaker state, or false if no breaker
// is configured.
func (p *Pool) BreakerState() (gobreaker.State, bool) {
	if p.breaker == nil {
		return gobreaker.StateClosed, false
	}
	return p.breaker.State(), true
}

// roundTrip runs one request/response cycle on a pooled client, wrapped in
// the circuit breaker when one is configured.
func (p *Pool) roundTrip(ctx context.Context, req *mbap.Request) (*mbap.Response, error) {
	if p.breaker != nil {
		return p.breaker.Execute(func() (*mbap.Response, error) {
			return p.roundTripDirect(ctx, req)
		})
	}
	return p.roundTripDirect(ctx, req)
}

func (p *Pool) roundTripDirect(ctx context.Context, req *mbap.Request) (*mbap.Response, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		if err == puddle.ErrClosedPool {
			return nil, ErrPoolClosed
		}
		return nil, err
	}

	resp, err := res.Value().roundTrip(ctx, req)
	if err != nil {
		// Any failed round-trip leaves the single-connection client in
		// an unknown state (broken socket or an orphaned pending
		// transaction), so retire it.
		res.Destroy()
		return nil, err
	}

	res.Release()
	return resp, nil
}

// healthCheckLoop periodically checks idle clients for health and
// lifecycle limits.
func (p *Pool) healthCheckLoop() {
	ticker := time.NewTicker(p.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopHealthCheck:
			return
		case <-ticker.C:
			p.checkIdleClients()
		}
	}
}

// checkIdleClients destroys idle clients that exceeded their lifetime or
// idle limits or fail a ping, and returns the rest untouched.
func (p *Pool) checkIdleClients() {
	now := time.Now()

	for _, res := range p.pool.AcquireAllIdle() {
		if p.maxConnLifetime > 0 && now.Sub(res.CreationTime()) > p.maxConnLifetime {
			res.Destroy()
			continue
		}

		if p.maxConnIdleTime > 0 && res.IdleDuration() > p.maxConnIdleTime {
			res.Destroy()
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := res.Value().Ping(ctx, p.healthCheckUnitID)
		cancel()
		if err != nil {
			p.log.Debug().Err(err).Msg("health check failed, destroying client")
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}
