// Package reviewapi talks to the admin backend's review endpoints.
package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chat-review/internal/review"
)

const (
	reviewDataPath    = "/admin/widgets/view/review-data"
	manualMessagePath = "/admin/widgets/review/manual-message"
)

// APIError is a failure reported by the backend, either through a non-"ok" status in
// the body or a non-2xx HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the backend at baseURL; contextPath is the servlet
// context the admin pages are mounted under and may be empty.
func New(baseURL, contextPath string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	base := strings.TrimRight(u.String(), "/")
	if cp := strings.Trim(strings.TrimSpace(contextPath), "/"); cp != "" {
		base += "/" + cp
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type pagePayload struct {
	Status      string             `json:"status"`
	Message     string             `json:"message"`
	Rows        []review.Row       `json:"rows"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"totalPages"`
	TotalRows   int                `json:"totalRows"`
	SearchTerms review.SearchTerms `json:"searchTerms"`
}

// FetchPage loads one page of the selection described by q.
func (c *Client) FetchPage(ctx context.Context, q review.Query) (review.Page, error) {
	params := url.Values{}
	params.Set("selectionId", q.SelectionID)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("sortColumn", q.SortColumn)
	params.Set("sortDir", string(q.SortDir))
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+reviewDataPath+"?"+params.Encode(), nil)
	if err != nil {
		return review.Page{}, fmt.Errorf("build review-data request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return review.Page{}, fmt.Errorf("fetch review data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return review.Page{}, fmt.Errorf("read review data: %w", err)
	}
	c.logger.Debug("review data fetched",
		"page", q.Page, "limit", q.Limit, "status", resp.StatusCode, "elapsed", time.Since(start))

	var payload pagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode >= 300 {
			return review.Page{}, &APIError{StatusCode: resp.StatusCode, Message: fallbackMessage(body, "Unable to load selection.")}
		}
		return review.Page{}, fmt.Errorf("decode review data: %w", err)
	}
	if payload.Status != "ok" || resp.StatusCode >= 300 {
		msg := payload.Message
		if msg == "" {
			msg = "Unable to load selection."
		}
		return review.Page{}, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return review.Page{
		Rows:        payload.Rows,
		Page:        payload.Page,
		TotalPages:  payload.TotalPages,
		TotalRows:   payload.TotalRows,
		SearchTerms: payload.SearchTerms,
	}, nil
}

// ManualReply is the backend's answer to a manual workspace message.
type ManualReply struct {
	Text string
}

type manualPayload struct {
	TextResponse *string `json:"textResponse"`
	Message      string  `json:"message"`
	Error        string  `json:"error"`
}

// SendManualMessage posts message to the workspace on behalf of the reviewer.
func (c *Client) SendManualMessage(ctx context.Context, message string) (ManualReply, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return ManualReply{}, fmt.Errorf("encode manual message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+manualMessagePath, bytes.NewReader(body))
	if err != nil {
		return ManualReply{}, fmt.Errorf("build manual message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ManualReply{}, fmt.Errorf("send manual message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ManualReply{}, fmt.Errorf("read manual message reply: %w", err)
	}
	c.logger.Debug("manual message sent", "chars", len(message), "status", resp.StatusCode)

	var parsed manualPayload
	parseErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if parseErr == nil {
			msg = firstNonEmpty(parsed.Message, parsed.Error)
		}
		if msg == "" {
			msg = fallbackMessage(raw, fmt.Sprintf("Unable to send message (status %d).", resp.StatusCode))
		}
		return ManualReply{}, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if parseErr == nil && parsed.TextResponse != nil {
		return ManualReply{Text: *parsed.TextResponse}, nil
	}
	return ManualReply{Text: fallbackMessage(raw, "No response body.")}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func fallbackMessage(body []byte, fallback string) string {
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IsAPIError reports whether err carries a backend-reported failure.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
