package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ascend/internal/domain/types"
	"github.com/okian/ascend/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// getJSON performs a GET request and decodes a 200 body into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// postEvent submits one event and decodes the result.
func (c *HTTPClient) postEvent(ctx context.Context, ev Event) (types.EventResult, error) {
	var res types.EventResult
	data, err := json.Marshal(ev)
	if err != nil {
		return res, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(data))
	if err != nil {
		return res, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return res, fmt.Errorf("POST /events: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return res, fmt.Errorf("POST /events: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("POST /events: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("POST /events: decode: %w", err)
	}
	return res, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// submitBurst submits events concurrently using a worker pool.
func submitBurst(ctx context.Context, client *HTTPClient, workers int, events []Event, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting burst", logger.Int("events", len(events)), logger.Int("workers", workers))

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	eventChan := make(chan Event, workers*2)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range eventChan {
				if ctx.Err() != nil {
					continue
				}
				res, err := client.postEvent(ctx, ev)
				atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Debug(ctx, "burst submission failed", logger.Error(err))
				case res.Duplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&successful, 1)
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- ev:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted += int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful += int(atomic.LoadInt64(&successful))
	stats.EventsDuplicate += int(atomic.LoadInt64(&duplicate))
	stats.EventsFailed += int(atomic.LoadInt64(&failed))
}
