package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient talks to the search engine's REST API.
type HTTPClient struct {
	base   string
	httpc  *http.Client
	logger *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for one engine base URL.
func NewHTTPClient(addr string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(addr, "/"),
		httpc:  &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// searchWire is the engine's native search response shape.
type searchWire struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    map[string]any      `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
			Sort      []any               `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]any `json:"aggregations"`
}

func (c *HTTPClient) Search(ctx context.Context, index string, body map[string]any) (*Response, error) {
	var wire searchWire
	if err := c.post(ctx, index, "_search", body, &wire); err != nil {
		return nil, err
	}

	resp := &Response{
		Total:        wire.Hits.Total.Value,
		Aggregations: wire.Aggregations,
	}
	for _, h := range wire.Hits.Hits {
		resp.Hits = append(resp.Hits, Hit{
			ID:         h.ID,
			Score:      h.Score,
			Source:     h.Source,
			Highlights: h.Highlight,
			Sort:       h.Sort,
		})
	}
	c.logger.Debug("engine search", zap.String("index", index), zap.Int("took_ms", wire.Took), zap.Int64("total", resp.Total))
	return resp, nil
}

func (c *HTTPClient) Count(ctx context.Context, index string, body map[string]any) (int64, error) {
	// The count endpoint accepts only the query section.
	payload := map[string]any{}
	if q, ok := body["query"]; ok {
		payload["query"] = q
	}
	var wire struct {
		Count int64 `json:"count"`
	}
	if err := c.post(ctx, index, "_count", payload, &wire); err != nil {
		return 0, err
	}
	return wire.Count, nil
}

// Ping verifies the engine is reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("ping engine: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping engine: status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, index, endpoint string, body map[string]any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s/%s", c.base, index, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s on %s: %w", endpoint, index, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s on %s: status %d: %s", endpoint, index, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
