package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-api-key-123", 5*time.Second, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// LocalizeChunk
// ---------------------------------------------------------------------------

func TestLocalizeChunk_Success(t *testing.T) {
	var gotBody map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/i18n" {
			t.Errorf("path = %q, want /i18n", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-api-key-123" {
			t.Errorf("Authorization = %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Write([]byte(`{"data":{"z":"HOLA","a":"MUNDO"}}`))
	})

	data := orderedmap.New[string, any]()
	data.Set("z", "hola")
	data.Set("a", "mundo")

	result, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{
		WorkflowID:   "wf-1",
		SourceLocale: "en",
		TargetLocale: "es",
		Fast:         true,
		Data:         data,
	})
	if err != nil {
		t.Fatalf("LocalizeChunk: %v", err)
	}

	// Response key order must survive decoding.
	first := result.Oldest()
	if first == nil || first.Key != "z" || first.Value != "HOLA" {
		t.Errorf("first pair = %v", first)
	}
	if second := first.Next(); second == nil || second.Key != "a" {
		t.Errorf("second pair = %v", second)
	}

	params := gotBody["params"].(map[string]any)
	if params["workflowId"] != "wf-1" || params["fast"] != true {
		t.Errorf("params = %v", params)
	}
	locale := gotBody["locale"].(map[string]any)
	if locale["source"] != "en" || locale["target"] != "es" {
		t.Errorf("locale = %v", locale)
	}
}

func TestLocalizeChunk_AutoDetectSendsNullSource(t *testing.T) {
	var gotBody map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte(`{"data":{"text":"ok"}}`))
	})

	data := orderedmap.New[string, any]()
	data.Set("text", "hi")
	if _, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{TargetLocale: "es", Data: data}); err != nil {
		t.Fatalf("LocalizeChunk: %v", err)
	}

	locale := gotBody["locale"].(map[string]any)
	if locale["source"] != nil {
		t.Errorf("locale.source = %v, want null", locale["source"])
	}
}

func TestLocalizeChunk_ErrorInBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"error":"workflow failed downstream"}`))
	})

	data := orderedmap.New[string, any]()
	data.Set("text", "hi")
	_, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{TargetLocale: "es", Data: data})

	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("error %T, want *ResponseError", err)
	}
}

func TestLocalizeChunk_MalformedJSON(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": not-json`))
	})

	data := orderedmap.New[string, any]()
	data.Set("text", "hi")
	_, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{TargetLocale: "es", Data: data})

	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("error %T, want *ResponseError", err)
	}
}

func TestLocalizeChunk_RateLimitWithRetryAfter(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`rate limited`))
	})

	data := orderedmap.New[string, any]()
	data.Set("text", "hi")
	_, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{TargetLocale: "es", Data: data})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T, want *Error", err)
	}
	if apiErr.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %s, want 2s", apiErr.RetryAfter)
	}
}

func TestLocalizeChunk_StatusMessages(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{400, "invalid request"},
		{401, "authentication failed - invalid or expired API key"},
		{403, "access forbidden - insufficient permissions"},
		{404, "API endpoint not found"},
		{429, "rate limit exceeded - too many requests"},
		{500, "server error - service temporarily unavailable"},
		{503, "server error - service temporarily unavailable"},
	}

	for _, tt := range tests {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		data := orderedmap.New[string, any]()
		data.Set("text", "hi")
		_, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{TargetLocale: "es", Data: data})

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: error %T, want *Error", tt.status, err)
		}
		if apiErr.Message != tt.message {
			t.Errorf("status %d: message = %q, want %q", tt.status, apiErr.Message, tt.message)
		}
	}
}

func TestLocalizeChunk_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	client := NewClient(srv.URL, "test-api-key-123", time.Second, zerolog.Nop())

	data := orderedmap.New[string, any]()
	data.Set("text", "hi")
	_, err := client.LocalizeChunk(context.Background(), LocalizeChunkRequest{TargetLocale: "es", Data: data})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error %T, want *NetworkError", err)
	}
}

// ---------------------------------------------------------------------------
// RecognizeLocale / Whoami
// ---------------------------------------------------------------------------

func TestRecognizeLocale(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recognize" {
			t.Errorf("path = %q, want /recognize", r.URL.Path)
		}
		var body map[string]string
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		if body["text"] != "bonjour" {
			t.Errorf("text = %q, want bonjour", body["text"])
		}
		w.Write([]byte(`{"locale":"fr"}`))
	})

	got, err := client.RecognizeLocale(context.Background(), "bonjour")
	if err != nil {
		t.Fatalf("RecognizeLocale: %v", err)
	}
	if got != "fr" {
		t.Errorf("got %q, want fr", got)
	}
}

func TestWhoami_Success(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/whoami" {
			t.Errorf("path = %q, want /whoami", r.URL.Path)
		}
		w.Write([]byte(`{"email":"dev@example.com","id":"acc_1"}`))
	})

	account, err := client.Whoami(context.Background())
	if err != nil {
		t.Fatalf("Whoami: %v", err)
	}
	if account == nil || account.Email != "dev@example.com" || account.ID != "acc_1" {
		t.Errorf("account = %+v", account)
	}
}

func TestWhoami_UnauthenticatedReturnsNil(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	account, err := client.Whoami(context.Background())
	if err != nil {
		t.Fatalf("Whoami: %v", err)
	}
	if account != nil {
		t.Errorf("account = %+v, want nil", account)
	}
}

func TestWhoami_EmptyEmailReturnsNil(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"","id":""}`))
	})

	account, err := client.Whoami(context.Background())
	if err != nil {
		t.Fatalf("Whoami: %v", err)
	}
	if account != nil {
		t.Errorf("account = %+v, want nil", account)
	}
}

func TestWhoami_ServerErrorPropagates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.Whoami(context.Background()); err == nil {
		t.Fatal("expected error for a 500 response")
	}
}

// ---------------------------------------------------------------------------
// error helpers
// ---------------------------------------------------------------------------

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("empty: got %s, want 0", got)
	}
	if got := parseRetryAfter("2"); got != 2*time.Second {
		t.Errorf("seconds: got %s, want 2s", got)
	}
	if got := parseRetryAfter("1.5"); got != 1500*time.Millisecond {
		t.Errorf("fractional: got %s, want 1.5s", got)
	}
	if got := parseRetryAfter("-3"); got != 0 {
		t.Errorf("negative: got %s, want 0", got)
	}
	if got := parseRetryAfter("garbage"); got != 0 {
		t.Errorf("garbage: got %s, want 0", got)
	}

	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 10*time.Second {
		t.Errorf("http date: got %s, want ~10s", got)
	}
}

func TestClassify(t *testing.T) {
	apiErr := &Error{StatusCode: 500}
	if got := Classify(apiErr); got != apiErr {
		t.Error("API errors should pass through unchanged")
	}

	netErr := &NetworkError{Err: errors.New("refused")}
	if got := Classify(netErr); got != netErr {
		t.Error("network errors should pass through unchanged")
	}

	plain := errors.New("boom")
	if got := Classify(plain); got != plain {
		t.Error("unknown errors should pass through unchanged")
	}

	if Classify(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 500); got != "short" {
		t.Errorf("got %q", got)
	}
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	got := truncate(string(long), 500)
	if len(got) != 503 {
		t.Errorf("len = %d, want 503", len(got))
	}
}
