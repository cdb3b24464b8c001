package cachedec

import (
	"time"

	"github.com/wolfleong/gobatis/logx"
)

// Eviction selects the eviction-decorator layered directly over the base
// cache, matching the mapper-level <cache eviction="..."/> choice.
type Eviction string

const (
	EvictionLRU      Eviction = "LRU"
	EvictionFIFO     Eviction = "FIFO"
	EvictionSoft     Eviction = "SOFT"
	EvictionWeak     Eviction = "WEAK"
	EvictionPerpetual Eviction = "PERPETUAL" // no eviction decorator
)

// Options configures Build. Zero value builds a plain PerpetualCache with
// only the always-on Synchronized and Blocking decorators.
type Options struct {
	Eviction Eviction
	Size     int           // capacity for LRU/FIFO; ignored otherwise
	TTL      time.Duration // idle/flush interval for Soft/Weak
	FlushCron string       // non-empty enables the Scheduled decorator, e.g. "@every 1h"
	Serialize bool         // wrap with the forced-copy Serialized decorator
	Logger    logx.Logger  // non-nil enables the Logging decorator
}

// Build composes the decorator stack over base in the fixed order the
// source mapper cache element applies them: eviction policy, then
// scheduled clearing, then forced-copy serialization, then hit/miss
// logging, then synchronization, then miss coalescing (Blocking). base is
// normally a fresh PerpetualCache (or one of the alternate bases in
// bases.go) per namespace.
func Build(base Cache, opts Options) (Cache, func(), error) {
	var cache Cache = base
	var stoppers []func()

	switch opts.Eviction {
	case EvictionLRU:
		size := opts.Size
		if size <= 0 {
			size = 1024
		}
		l, err := NewLRU(cache, size)
		if err != nil {
			return nil, nil, err
		}
		cache = l
	case EvictionFIFO:
		size := opts.Size
		if size <= 0 {
			size = 1024
		}
		cache = NewFIFO(cache, size)
	case EvictionSoft, EvictionWeak:
		ttl := opts.TTL
		if ttl <= 0 {
			ttl = 30 * time.Minute
		}
		maxItems := int64(opts.Size)
		if maxItems <= 0 {
			maxItems = 1024
		}
		cache = NewSoftWeak(cache, maxItems, ttl)
	case EvictionPerpetual, "":
		// no eviction decorator
	}

	if opts.FlushCron != "" {
		sched, err := NewScheduled(cache, opts.FlushCron)
		if err != nil {
			for _, stop := range stoppers {
				stop()
			}
			return nil, nil, err
		}
		cache = sched
		stoppers = append(stoppers, sched.Stop)
	}

	if opts.Serialize {
		cache = NewSerialized(cache)
	}

	if opts.Logger != nil {
		cache = NewLogging(cache, opts.Logger)
	}

	cache = NewSynchronized(cache)
	cache = NewBlocking(cache)

	stop := func() {
		for _, s := range stoppers {
			s()
		}
	}
	return cache, stop, nil
}
