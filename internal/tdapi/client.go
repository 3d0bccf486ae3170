package tdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the REST root every endpoint path is appended to.
	DefaultBaseURL = "https://api.tdameritrade.com/v1/"
	userAgent      = "tdstream-go/0.1"
)

// TokenSource runs the credential check-and-repair pass and returns a
// usable access token. Defined at the consumer; auth.Store implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client is an HTTP client for the broker REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// NewClient creates an API client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

// Execute validates the credential, sends one request, and returns the raw
// JSON body. A non-nil body is encoded as JSON. An empty 2xx body yields a
// nil result. Non-2xx responses, and 2xx responses carrying an "error"
// object, are returned as *RequestError.
func (c *Client) Execute(
	ctx context.Context, method, path string, params url.Values, body any,
) (json.RawMessage, error) {
	tok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("tdapi: obtaining token: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, params, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+tok)

	c.logger.Debug("dispatching request",
		slog.String("method", method),
		slog.String("path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tdapi: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("tdapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tdapi: reading %s %s response: %w", method, path, err)
	}

	if sentinel := classifyStatus(resp.StatusCode); sentinel != nil {
		return nil, c.requestError(req, resp.StatusCode, respBody, sentinel)
	}

	if isErrorBody(respBody) {
		return nil, c.requestError(req, resp.StatusCode, respBody, ErrAPIError)
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	return json.RawMessage(respBody), nil
}

// Do is Execute followed by decoding the body into out. A nil out or an
// empty body skips decoding.
func (c *Client) Do(
	ctx context.Context, method, path string, params url.Values, body, out any,
) error {
	raw, err := c.Execute(ctx, method, path, params, body)
	if err != nil {
		return err
	}

	if out == nil || raw == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("tdapi: decoding %s %s response: %w", method, path, err)
	}

	return nil
}

func (c *Client) newRequest(
	ctx context.Context, method, path string, params url.Values, body any,
) (*http.Request, error) {
	u := c.baseURL + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("tdapi: encoding request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("tdapi: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func (c *Client) requestError(req *http.Request, status int, body []byte, sentinel error) *RequestError {
	reqErr := &RequestError{
		StatusCode: status,
		Method:     req.Method,
		URL:        req.URL.String(),
		Header:     redactHeader(req.Header),
		Body:       string(body),
		Err:        sentinel,
	}

	c.logger.Error("request failed",
		slog.String("method", reqErr.Method),
		slog.String("url", reqErr.URL),
		slog.Int("status", status),
		slog.Any("request_headers", reqErr.Header),
		slog.String("body", reqErr.Body),
	)

	return reqErr
}

// isErrorBody reports whether a 2xx body is a JSON object with an "error"
// member, which the API sometimes returns instead of a status code.
func isErrorBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var probe struct {
		Error json.RawMessage `json:"error"`
	}

	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}

	return len(probe.Error) > 0 && string(probe.Error) != "null"
}
