package cachedec

import (
	"github.com/wolfleong/gobatis/logx"
)

// Logging decorates a Cache with hit/miss accounting reported through
// logx, mirroring MyBatis's LoggingCache request/hit counters.
type Logging struct {
	delegate Cache
	log      logx.Logger

	requests int64
	hits     int64
}

func NewLogging(delegate Cache, log logx.Logger) *Logging {
	if log == nil {
		log = logx.Nop{}
	}
	return &Logging{delegate: delegate, log: log}
}

func (c *Logging) ID() string { return c.delegate.ID() }

func (c *Logging) Put(key, value any) { c.delegate.Put(key, value) }

func (c *Logging) Get(key any) (any, bool) {
	c.requests++
	v, ok := c.delegate.Get(key)
	if ok {
		c.hits++
	}
	c.log.Debugw("cache access",
		"cache", c.delegate.ID(),
		"hits", c.hits,
		"requests", c.requests,
		"hitRatio", c.hitRatio(),
	)
	return v, ok
}

func (c *Logging) Remove(key any) { c.delegate.Remove(key) }

func (c *Logging) Clear() { c.delegate.Clear() }

func (c *Logging) Size() int { return c.delegate.Size() }

func (c *Logging) hitRatio() float64 {
	if c.requests == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.requests)
}
