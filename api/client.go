// Package api implements the HTTP transport for the Lingo.dev engine
// service, plus the failure taxonomy the retry layer classifies against.
//
// The package deliberately knows nothing about batching or concurrency: it
// sends one chunk (or one single-shot request) and reports a typed result.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultBaseURL is the production engine endpoint.
const DefaultBaseURL = "https://engine.lingo.dev"

// Client talks to the engine service over HTTP with JSON bodies.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an engine API client. A zero timeout falls back to 30s.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

// LocalizeChunkRequest carries one chunk of content to the /i18n endpoint.
type LocalizeChunkRequest struct {
	// WorkflowID correlates all chunks of a single logical request.
	WorkflowID string
	// SourceLocale is empty for auto-detection.
	SourceLocale string
	TargetLocale string
	// Fast trades quality for latency on the server side.
	Fast bool
	// Data is the chunk itself: an ordered mapping of translatable content.
	Data *orderedmap.OrderedMap[string, any]
	// Reference holds optional reference translations keyed by locale.
	Reference map[string]any
}

type localizeParams struct {
	WorkflowID string `json:"workflowId"`
	Fast       bool   `json:"fast"`
}

type localizeLocale struct {
	Source *string `json:"source"`
	Target string  `json:"target"`
}

type localizeBody struct {
	Params    localizeParams                      `json:"params"`
	Locale    localizeLocale                      `json:"locale"`
	Data      *orderedmap.OrderedMap[string, any] `json:"data"`
	Reference map[string]any                      `json:"reference,omitempty"`
}

type localizeResponse struct {
	Data  *orderedmap.OrderedMap[string, any] `json:"data"`
	Error string                              `json:"error"`
}

// LocalizeChunk sends one chunk to /i18n and returns the localized mapping.
// Failures come back as *Error, *NetworkError, or *ResponseError so the
// caller can classify them for retry purposes.
func (c *Client) LocalizeChunk(ctx context.Context, req LocalizeChunkRequest) (*orderedmap.OrderedMap[string, any], error) {
	body := localizeBody{
		Params: localizeParams{WorkflowID: req.WorkflowID, Fast: req.Fast},
		Locale: localizeLocale{Target: req.TargetLocale},
		Data:   req.Data,
	}
	if req.SourceLocale != "" {
		src := req.SourceLocale
		body.Locale.Source = &src
	}
	if len(req.Reference) > 0 {
		body.Reference = req.Reference
	}

	raw, err := c.post(ctx, "/i18n", body)
	if err != nil {
		return nil, err
	}

	var decoded localizeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ResponseError{Err: err}
	}
	// The engine streams errors inside a 200 body when a chunk fails late.
	if decoded.Data == nil || decoded.Data.Len() == 0 {
		if decoded.Error != "" {
			return nil, &ResponseError{Err: fmt.Errorf("%s", decoded.Error)}
		}
	}
	if decoded.Data == nil {
		return orderedmap.New[string, any](), nil
	}
	return decoded.Data, nil
}

// RecognizeLocale asks the engine to detect the language of a text.
func (c *Client) RecognizeLocale(ctx context.Context, text string) (string, error) {
	raw, err := c.post(ctx, "/recognize", map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	var decoded struct {
		Locale string `json:"locale"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &ResponseError{Err: err}
	}
	return decoded.Locale, nil
}

// Account identifies the API key owner.
type Account struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

// Whoami returns the account behind the configured API key, or nil when the
// key is not recognized.
func (c *Client) Whoami(ctx context.Context) (*Account, error) {
	raw, err := c.post(ctx, "/whoami", struct{}{})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return nil, nil
		}
		return nil, err
	}
	var account Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, &ResponseError{Err: err}
	}
	if account.Email == "" {
		return nil, nil
	}
	return &account, nil
}

// post issues a JSON POST and returns the raw success body. Non-2xx statuses
// become *Error, transport failures become *NetworkError.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug().Str("endpoint", endpoint).Int("bytes", len(encoded)).Msg("POST")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, &NetworkError{Err: urlErr}
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, newStatusError(resp.StatusCode, string(respBody), retryAfter)
	}

	return respBody, nil
}
