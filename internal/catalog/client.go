package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	coreconfig "shopbot/core/config"
	"shopbot/core/logger"
	"shopbot/core/telegram/netutil"

	"log/slog"
)

const (
	dialTimeout     = 5 * time.Second
	idleConnTimeout = 30 * time.Second
	retryAttempts   = 2
	retryBackoff    = 1 * time.Second

	maxErrorBody = 4096
)

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a catalog API client from configuration.
func New(cfg coreconfig.CatalogConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: dialTimeout}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     idleConnTimeout,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &retryTransport{
				base:       transport,
				maxRetries: retryAttempts,
				backoff:    retryBackoff,
			},
		},
	}
}

// Categories fetches the category tree.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.getJSON(ctx, "/categories/", &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// CreateItem submits a single item record.
func (c *Client) CreateItem(ctx context.Context, item ItemCreate) error {
	start := time.Now()
	err := c.postJSON(ctx, "/items/", item, nil)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("payload", logger.SanitizeLimit(item.Name, 128)),
		slog.Int64("category_id", item.CategoryID),
		slog.Duration("duration_ms", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Error(ctx, "catalog", "item.create.failed", attrs...)
		return err
	}
	logger.Info(ctx, "catalog", "item.create", attrs...)
	return nil
}

// Item fetches a single item by ID.
func (c *Client) Item(ctx context.Context, id int64) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, fmt.Sprintf("/items/%d", id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem replaces the stored record of an item.
func (c *Client) UpdateItem(ctx context.Context, id int64, upd ItemUpdate) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/items/%d", id), upd, nil)
}

// UploadImages sends photo files as one multipart request and returns the
// stored URLs in upload order.
func (c *Client) UploadImages(ctx context.Context, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("catalog: multipart build: %w", err)
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return nil, fmt.Errorf("catalog: multipart copy: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("catalog: multipart close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/images/", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	var urls []string
	err = c.do(req, &urls)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("count", len(files)),
		slog.Duration("duration_ms", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, "catalog", "upload.failed", attrs...)
		return nil, err
	}
	logger.Debug(ctx, "catalog", "upload.done", attrs...)
	return urls, nil
}

// UploadFile names a single file to be uploaded.
type UploadFile struct {
	Name string
	Data io.Reader
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("catalog: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	return nil
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil {
				// Non-replayable body, give up with the transport error.
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
