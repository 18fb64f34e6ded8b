package blockcache

import (
	"context"
	"sync"
)

// prefetcher is the single background task that warms the anticipated next
// block file. It owns a single-slot mailbox: readers post a file ID with a
// non-blocking send and never wait on the task. Rapid successive
// notifications collapse to the most recent one; dropped notifications are
// an accepted tradeoff, not a bug.
type prefetcher struct {
	cache *Cache

	// requests is the capacity-one mailbox. Only notify sends; only run
	// receives.
	requests chan uint32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newPrefetcher(c *Cache) *prefetcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &prefetcher{
		cache:    c,
		requests: make(chan uint32, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *prefetcher) start() {
	p.wg.Add(1)
	go p.run()
}

// stop signals shutdown and waits for the task to exit.
func (p *prefetcher) stop() {
	p.cancel()
	p.wg.Wait()
}

// notify posts fileID to the mailbox without ever blocking the caller. If
// the slot is full the stale request is discarded so the latest wins; if a
// concurrent notification refills the slot first, ours is dropped instead.
func (p *prefetcher) notify(fileID uint32) {
	select {
	case p.requests <- fileID:
		return
	default:
	}

	select {
	case <-p.requests:
	default:
	}

	select {
	case p.requests <- fileID:
	default:
	}
}

func (p *prefetcher) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case fileID := <-p.requests:
			p.load(fileID)
		}
	}
}

// load speculatively brings fileID into the cache. Failures are logged and
// otherwise ignored: the entry stays absent and a later demand resolve
// simply loads synchronously.
func (p *prefetcher) load(fileID uint32) {
	c := p.cache
	if fileID >= uint32(len(c.files)) {
		return
	}
	if c.isResident(fileID) {
		return
	}

	d := c.files[fileID]

	// Speculative IO yields to the throttle; shutdown aborts the wait.
	if err := c.rc.AcquireIO(p.ctx, int(d.SizeBytes)); err != nil {
		return
	}

	// Load outside the cache lock; only the map mutation below takes it.
	fb, err := loadBuffer(d, c.loadConfig(), true)
	if err != nil {
		c.cfg.logger.Debug("prefetch load failed", "file_id", fileID, "err", err)
		return
	}

	if c.insertPrefetched(fb) {
		c.prefetchLoads.Add(1)
		c.cfg.logger.Debug("prefetched block file", "file_id", fileID, "bytes", d.SizeBytes)
	}
}
