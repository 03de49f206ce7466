package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// capture is a demo worker that appends synthetic "Demo key N" lines to its
// buffer. It never reads real input.
type capture struct {
	interval time.Duration
	limit    int
	logger   zerolog.Logger

	mu     sync.Mutex
	buf    strings.Builder
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

func newCapture(interval time.Duration, limit int, logger zerolog.Logger) *capture {
	return &capture{interval: interval, limit: limit, logger: logger}
}

// Start launches the worker and reports false if it was already running.
func (c *capture) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return false
	}

	if c.cancel != nil {
		// the previous worker already hit its limit
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.active = true
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)

	c.logger.Info().Dur("interval", c.interval).Int("limit", c.limit).Msg("capture started")
	return true
}

// Stop halts the worker, waits for it and reports false if it was not running.
func (c *capture) Stop() bool {
	c.mu.Lock()
	wasActive := c.active
	cancel, done := c.cancel, c.done
	c.active = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if wasActive {
		c.logger.Info().Msg("capture stopped")
	}
	return wasActive
}

func (c *capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Captured returns and clears the buffered lines.
func (c *capture) Captured() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.buf.String()
	c.buf.Reset()
	return s
}

func (c *capture) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for n := 0; n < c.limit; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
		c.mu.Lock()
		fmt.Fprintf(&c.buf, "Demo key %d\n", n)
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.done == done {
		c.active = false
	}
	c.mu.Unlock()
	c.logger.Debug().Int("keys", c.limit).Msg("capture limit reached")
}
