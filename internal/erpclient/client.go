package erpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Record is one ERP row as an unordered mapping from field name to value;
// many-to-one fields surface as the shapes Ref understands.
type Record map[string]interface{}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Client is a JSON-RPC 2.0 client for an Odoo-style ERP endpoint,
// implementing exactly the operations the poller needs: authenticate,
// search_read, read. It owns its transport unless one is injected, in
// which case Close is a no-op and the caller retains ownership (mirroring
// the source system's http-client-ownership flag).
type Client struct {
	url      string
	db       string
	username string
	apiKey   string

	uid int

	http     *http.Client
	ownsHTTP bool
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient injects a shared *http.Client the Client does not own
// (and therefore does not close).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
		c.ownsHTTP = false
	}
}

// New builds a Client for the given ERP endpoint and credentials.
func New(url, db, username, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		url:      strings.TrimRight(url, "/"),
		db:       db,
		username: username,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		ownsHTTP: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UID returns the cached user id from the last successful Authenticate
// call, or 0 before the first call.
func (c *Client) UID() int { return c.uid }

// Close releases the client's own transport, if it owns one.
func (c *Client) Close() {
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
}

// Authenticate logs in and caches the resulting user id.
func (c *Client) Authenticate(ctx context.Context) (int, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]interface{}{
			"service": "common",
			"method":  "authenticate",
			"args":    []interface{}{c.db, c.username, c.apiKey, map[string]interface{}{}},
		},
	}

	result, err := c.call(ctx, payload)
	if err != nil {
		return 0, err
	}

	var uid int
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		return 0, &AuthError{Message: fmt.Sprintf("authentication failed for %s@%s", c.username, c.db)}
	}

	c.uid = uid
	return uid, nil
}

// SearchRead runs a search_read against model, returning matching records.
// limit<=0 means unlimited; order=="" uses the ERP's default ordering.
func (c *Client) SearchRead(ctx context.Context, model string, domain []interface{}, fields []string, limit int, order string) ([]Record, error) {
	kwargs := map[string]interface{}{"fields": fields}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if order != "" {
		kwargs["order"] = order
	}

	var records []Record
	err := c.objectCall(ctx, model, "search_read", []interface{}{domain}, kwargs, &records)
	return records, err
}

// Read fetches the given ids of model with fields. An empty ids slice
// short-circuits to an empty result without a round trip.
func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []Record
	err := c.objectCall(ctx, model, "read", []interface{}{ids}, map[string]interface{}{"fields": fields}, &records)
	return records, err
}

func (c *Client) objectCall(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}, out interface{}) error {
	if c.uid == 0 {
		if _, err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	result, err := c.execute(ctx, model, method, args, kwargs)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			if _, reauthErr := c.Authenticate(ctx); reauthErr != nil {
				return reauthErr
			}
			result, err = c.execute(ctx, model, method, args, kwargs)
			if err != nil {
				return err
			}
			return json.Unmarshal(result, out)
		}
		return err
	}
	return json.Unmarshal(result, out)
}

func (c *Client) execute(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}) (json.RawMessage, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: map[string]interface{}{
			"service": "object",
			"method":  "execute_kw",
			"args":    []interface{}{c.db, c.uid, c.apiKey, model, method, args, kwargs},
		},
	}
	return c.call(ctx, payload)
}

func (c *Client) call(ctx context.Context, payload rpcRequest) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erpclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("erpclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erpclient: transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitedError{Message: "HTTP 429: rate limit reached"}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("erpclient: transport error: unexpected status %d", resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("erpclient: decode response: %w", err)
	}

	if parsed.Error != nil {
		msg := parsed.Error.Data.Message
		if msg == "" {
			msg = parsed.Error.Message
		}
		lower := strings.ToLower(msg)
		if strings.Contains(msg, "Session") || strings.Contains(msg, "Access Denied") || strings.Contains(lower, "authenticate") {
			return nil, &AuthError{Message: msg}
		}
		return nil, &RpcError{Message: msg}
	}

	return parsed.Result, nil
}
