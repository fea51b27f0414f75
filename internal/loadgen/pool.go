package loadgen

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wrussell84/stampede/internal/task"
)

// DefaultGracefulStop bounds how long Stop waits for users to finish
// their current action before abandoning them.
const DefaultGracefulStop = 30 * time.Second

// CatalogFactory builds the task catalog a newly spawned virtual user
// will run. The rng passed in is the user's own source.
type CatalogFactory func(rng *rand.Rand) (*task.Catalog, error)

// PoolConfig configures a user pool.
type PoolConfig struct {
	// MinWait and MaxWait bound each user's pacing interval.
	MinWait time.Duration
	MaxWait time.Duration

	// GracefulStop bounds the drain on Stop. Zero selects
	// DefaultGracefulStop.
	GracefulStop time.Duration

	// Seed makes user random sources reproducible. Zero picks a
	// time-based seed.
	Seed int64

	// Logger receives spawn and drain events. Nil selects slog.Default.
	Logger *slog.Logger
}

// Pool spawns, ramps up, and tears down a population of virtual users.
//
// Spawning is paced by a rate limiter so a large target does not hit
// the target system as a thundering herd. Once Stop has been called no
// further user is ever spawned.
type Pool struct {
	factory CatalogFactory
	cfg     PoolConfig
	log     *slog.Logger
	seed    int64

	mu      sync.Mutex
	vus     []*VirtualUser
	nextID  int
	stopped bool

	wg sync.WaitGroup
}

// NewPool creates a pool that builds each user's catalog via factory.
func NewPool(factory CatalogFactory, cfg PoolConfig) *Pool {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Pool{
		factory: factory,
		cfg:     cfg,
		log:     log,
		seed:    seed,
	}
}

// Start spawns virtual users up to target, spacing spawns at spawnRate
// users per second. It returns once the last user has been spawned, or
// earlier if the context is cancelled or Stop is called.
func (p *Pool) Start(ctx context.Context, target int, spawnRate float64) error {
	if target < 1 {
		return fmt.Errorf("pool: target must be >= 1, got %d", target)
	}
	if spawnRate <= 0 {
		return fmt.Errorf("pool: spawn rate must be > 0, got %g", spawnRate)
	}

	limiter := rate.NewLimiter(rate.Limit(spawnRate), 1)
	for i := 0; i < target; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		ok, err := p.spawn(ctx)
		if err != nil {
			return err
		}
		if !ok {
			// Stop was called mid-ramp; not an error.
			return nil
		}
	}
	return nil
}

// spawn creates and launches one user. Returns ok=false when the pool
// has been stopped.
func (p *Pool) spawn(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false, nil
	}

	p.nextID++
	id := p.nextID

	rng := rand.New(rand.NewSource(p.seed + int64(id)))
	catalog, err := p.factory(rng)
	if err != nil {
		return false, fmt.Errorf("pool: build catalog for vu %d: %w", id, err)
	}

	vu := NewVirtualUser(id, catalog, rng, p.cfg.MinWait, p.cfg.MaxWait, p.log)
	p.vus = append(p.vus, vu)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		vu.Run(ctx)
	}()

	return true, nil
}

// ActiveCount returns the number of users that have not fully stopped.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, vu := range p.vus {
		if vu.State() != VUStateStopped {
			count++
		}
	}
	return count
}

// Cycles returns the total completed act cycles across all users.
func (p *Pool) Cycles() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total int64
	for _, vu := range p.vus {
		total += vu.Cycles()
	}
	return total
}

// Stop signals every active user to stop and waits for them to drain.
// Users still running after the grace period are abandoned; the count
// of stragglers is returned and logged as a warning, never swallowed.
func (p *Pool) Stop() int {
	p.mu.Lock()
	p.stopped = true
	vus := make([]*VirtualUser, len(p.vus))
	copy(vus, p.vus)
	p.mu.Unlock()

	for _, vu := range vus {
		vu.RequestStop()
	}

	grace := p.cfg.GracefulStop
	if grace == 0 {
		grace = DefaultGracefulStop
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
	}

	stragglers := 0
	for _, vu := range vus {
		if vu.State() != VUStateStopped {
			stragglers++
		}
	}
	if stragglers > 0 {
		p.log.Warn("virtual users did not stop within the grace period",
			"count", stragglers, "grace", grace)
	}
	return stragglers
}
