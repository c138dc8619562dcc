package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/ports"
)

type Config struct {
	Endpoint string
	// RetryBackoff is the pause before the single retry of a normal send.
	RetryBackoff time.Duration
	// Timeout bounds each request.
	Timeout time.Duration
}

// HTTPChannel posts events as JSON. Normal sends are tied to the channel's
// lifetime and abort on Close; reliable sends run to completion and Close
// waits for them.
type HTTPChannel struct {
	cfg     Config
	client  *http.Client
	metrics ports.MetricsRecorder
	logger  hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewHTTPChannel(cfg Config, metrics ports.MetricsRecorder, logger hclog.Logger) *HTTPChannel {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPChannel{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *HTTPChannel) SendNormal(body []byte) {
	if !c.track() {
		c.logger.Debug("channel closed, dropping event")
		return
	}
	go func() {
		defer c.wg.Done()

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryBackoff), 1),
			c.ctx,
		)
		op := func() error { return c.post(c.ctx, body) }
		notify := func(err error, wait time.Duration) {
			c.logger.Debug("send failed, retrying", "error", err, "wait", wait)
		}

		if err := backoff.RetryNotify(op, policy, notify); err != nil {
			c.logger.Debug("send dropped", "error", err)
			c.recordFailure(ports.DeliveryNormal)
		}
	}()
}

func (c *HTTPChannel) SendReliable(body []byte) {
	if !c.track() {
		c.logger.Debug("channel closed, dropping event")
		return
	}
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), c.cfg.Timeout)
		defer cancel()
		if err := c.post(ctx, body); err != nil {
			c.logger.Debug("reliable send failed", "error", err)
			c.recordFailure(ports.DeliveryReliable)
		}
	}()
}

// Drain waits for every in-flight send, or until ctx is done.
func (c *HTTPChannel) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain delivery channel: %w", ctx.Err())
	}
}

// Close stops accepting events, aborts normal sends and waits for reliable
// ones until ctx is done.
func (c *HTTPChannel) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	return c.Drain(ctx)
}

func (c *HTTPChannel) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *HTTPChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingest returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPChannel) recordFailure(mode ports.DeliveryMode) {
	if c.metrics != nil {
		c.metrics.RecordDeliveryFailure(context.Background(), mode)
	}
}
