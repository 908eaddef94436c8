package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"chanfilter/internal/catalog/models"
	"chanfilter/pkg/platform/circuit"
)

const (
	resolvePath = "/api/get/category"
	recordPath  = "/api/post/channels"

	maxResponseBytes = 8 << 20
)

// ErrCircuitOpen is returned without contacting the server while recent
// requests keep failing.
var ErrCircuitOpen = errors.New("catalog unavailable: circuit open")

// Resolution is the server's answer for one identity.
type Resolution struct {
	Key        models.IdentityKey
	Categories models.CategorySet
}

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	breaker *circuit.Breaker
}

type ClientOption func(c *Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithBreaker makes the client stop calling the server after repeated
// failures until the breaker lets a probe through.
func WithBreaker(b *circuit.Breaker) ClientOption {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireItem struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

type wireResult struct {
	ChannelID         string  `json:"channel_id"`
	ChannelName       string  `json:"channel_name"`
	ChannelCategories []int64 `json:"channel_categories"`
}

type resolveResponse struct {
	Result []wireResult `json:"result"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Resolve posts keys to the category endpoint. Elements the server dropped as
// malformed are absent from the result.
func (c *Client) Resolve(ctx context.Context, keys []models.IdentityKey) ([]Resolution, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var resp resolveResponse
	if err := c.post(ctx, resolvePath, toWire(keys), &resp); err != nil {
		return nil, err
	}

	out := make([]Resolution, 0, len(resp.Result))
	for _, r := range resp.Result {
		cats, err := models.NewCategorySet(r.ChannelCategories)
		if err != nil {
			c.logger.WarnContext(ctx, "ignoring result with unknown category",
				"channel_id", r.ChannelID,
				"error", err,
			)
			continue
		}
		out = append(out, Resolution{
			Key:        models.NewIdentityKey(r.ChannelID, r.ChannelName),
			Categories: cats,
		})
	}
	return out, nil
}

// Record asks the server to persist keys it has not seen yet.
func (c *Client) Record(ctx context.Context, keys []models.IdentityKey) error {
	if len(keys) == 0 {
		return nil
	}
	return c.post(ctx, recordPath, toWire(keys), nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	if c.breaker != nil && !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordOutcome(ctx, false)
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.recordOutcome(ctx, resp.StatusCode < http.StatusInternalServerError)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		c.logger.DebugContext(ctx, "catalog request failed",
			"request_id", requestID,
			"path", path,
			"status", resp.StatusCode,
		)
		if e.Error != "" {
			return fmt.Errorf("post %s: status %d: %s %s", path, resp.StatusCode, e.Error, e.Description)
		}
		return fmt.Errorf("post %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) recordOutcome(ctx context.Context, ok bool) {
	if c.breaker == nil {
		return
	}
	if ok {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "catalog reachable again", "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "catalog failing, pausing requests", "breaker", c.breaker.Name())
	}
}

func toWire(keys []models.IdentityKey) []wireItem {
	items := make([]wireItem, len(keys))
	for i, k := range keys {
		items[i] = wireItem{ChannelID: k.Handle, ChannelName: k.DisplayName}
	}
	return items
}
