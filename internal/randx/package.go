// Package randx generates span and trace ids from a pool of seeded sources,
// spreading the lock contention of concurrent callers.
package randx

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pool hands out its sources round robin.
type Pool struct {
	sources []*source
	next    uint64
}

type source struct {
	sync.Mutex
	r *rand.Rand
}

// NewPool returns a pool of size sources derived from seed.
func NewPool(seed int64, size int) *Pool {
	if size < 1 {
		size = 1
	}
	seeder := rand.New(rand.NewSource(seed))
	p := &Pool{sources: make([]*source, size)}
	for i := range p.sources {
		p.sources[i] = &source{r: rand.New(rand.NewSource(seeder.Int63()))}
	}
	return p
}

// 16 sources saturate a local benchmark; more only helps on bigger machines.
var defaultPool = NewPool(time.Now().UnixNano(), max(16, runtime.NumCPU()))

// GUID returns a non-zero id.
func (p *Pool) GUID() uint64 {
	s := p.sources[atomic.AddUint64(&p.next, 1)%uint64(len(p.sources))]
	s.Lock()
	defer s.Unlock()
	for {
		if id := s.r.Uint64(); id != 0 {
			return id
		}
	}
}

// GUID returns a non-zero id from the default pool.
func GUID(opts ...Option) uint64 {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c.pool.GUID()
}

// GUID2 returns two non-zero ids, used for 128-bit trace ids.
func GUID2(opts ...Option) (uint64, uint64) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c.pool.GUID(), c.pool.GUID()
}

type Option func(*config)

func WithPool(pool *Pool) Option {
	return func(c *config) {
		c.pool = pool
	}
}

type config struct {
	pool *Pool
}

func defaultConfig() *config {
	return &config{
		pool: defaultPool,
	}
}
