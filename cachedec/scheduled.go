package cachedec

import "github.com/robfig/cron/v3"

// Scheduled decorates a Cache with a periodic clear, driven by
// robfig/cron/v3, matching"Scheduled (periodic clear)"
// decorator.
type Scheduled struct {
	delegate Cache
	cron     *cron.Cron
	entryID  cron.EntryID
}

// NewScheduled wraps delegate and clears it on the given cron spec (e.g.
// "@every 1h"). Call Stop to release the underlying scheduler goroutine.
func NewScheduled(delegate Cache, spec string) (*Scheduled, error) {
	c := cron.New()
	s := &Scheduled{delegate: delegate, cron: c}
	id, err := c.AddFunc(spec, delegate.Clear)
	if err != nil {
		return nil, err
	}
	s.entryID = id
	c.Start()
	return s, nil
}

func (c *Scheduled) Stop() { c.cron.Stop() }

func (c *Scheduled) ID() string { return c.delegate.ID() }

func (c *Scheduled) Put(key, value any) { c.delegate.Put(key, value) }

func (c *Scheduled) Get(key any) (any, bool) { return c.delegate.Get(key) }

func (c *Scheduled) Remove(key any) { c.delegate.Remove(key) }

func (c *Scheduled) Clear() { c.delegate.Clear() }

func (c *Scheduled) Size() int { return c.delegate.Size() }
