package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/ports"
	"github.com/socialfeed/feed-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	removeTimeout  = 30 * time.Second
)

// Cleaner removes replaced and orphaned images off the request path. URLs are
// sharded over a fixed set of workers by hash, so repeated removals of the
// same image are handled in order by one worker.
type Cleaner struct {
	workers []chan string
	store   ports.ImageStore
	log     zerolog.Logger
}

// NewCleaner creates a Cleaner with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewCleaner(numWorkers int, store ports.ImageStore, log zerolog.Logger) *Cleaner {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	c := &Cleaner{
		workers: make([]chan string, numWorkers),
		store:   store,
		log:     log.With().Str("component", "image_cleaner").Logger(),
	}
	for i := range c.workers {
		c.workers[i] = make(chan string, channelBuffer)
	}
	return c
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (c *Cleaner) Start(ctx context.Context) {
	for i, ch := range c.workers {
		go c.runWorker(ctx, i, ch)
	}
}

// Remove schedules url for deletion. Empty URLs are ignored. When the
// worker's buffer is full the removal is dropped and logged rather than
// stalling the caller.
func (c *Cleaner) Remove(url string) {
	if url == "" {
		return
	}

	idx := c.shardIndex(url)
	select {
	case c.workers[idx] <- url:
		metrics.ImageCleanupQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.ImageCleanupTotal.WithLabelValues("dropped").Inc()
		c.log.Warn().Str("url", url).Int("worker_id", idx).Msg("cleanup queue full, image left behind")
	}
}

// shardIndex maps a URL deterministically to a worker index.
func (c *Cleaner) shardIndex(url string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(url))
	return int(h.Sum32() % uint32(len(c.workers)))
}

func (c *Cleaner) runWorker(ctx context.Context, id int, ch <-chan string) {
	depth := metrics.ImageCleanupQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case url, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			c.remove(ctx, id, url)
		}
	}
}

func (c *Cleaner) remove(ctx context.Context, id int, url string) {
	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	start := time.Now()
	err := c.store.Delete(ctx, url)
	metrics.ImageCleanupDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ImageCleanupTotal.WithLabelValues("error").Inc()
		c.log.Error().Err(err).
			Str("url", url).
			Int("worker_id", id).
			Msg("image removal failed")
		return
	}
	metrics.ImageCleanupTotal.WithLabelValues("ok").Inc()
}
