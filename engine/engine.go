// Package engine is the client-side orchestration core for the Lingo.dev
// localization service: it partitions content into word-count-bounded chunks,
// dispatches them concurrently through an injected transport with retry and
// backoff, and reassembles the results in original key order.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingodotdev/lingo-go/api"
	"github.com/lingodotdev/lingo-go/retry"
)

// Transport is the single outward boundary of the engine. api.Client is the
// production implementation; tests inject fakes.
type Transport interface {
	LocalizeChunk(ctx context.Context, req api.LocalizeChunkRequest) (*Payload, error)
	RecognizeLocale(ctx context.Context, text string) (string, error)
	Whoami(ctx context.Context) (*api.Account, error)
}

// Engine localizes content through the Lingo.dev engine service.
type Engine struct {
	cfg       Config
	transport Transport
	exec      *retry.Executor
	log       zerolog.Logger
}

// New validates cfg and builds an engine with the default HTTP transport.
func New(cfg Config, logger zerolog.Logger) (*Engine, error) {
	cfg = cfg.withDefaults()
	transport := api.NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout, logger)
	return NewWithTransport(cfg, transport, logger)
}

// NewWithTransport builds an engine around an injected transport. The engine
// never owns the transport lifecycle; it only calls it.
func NewWithTransport(cfg Config, transport Transport, logger zerolog.Logger) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("engine: transport is required")
	}
	return &Engine{
		cfg:       cfg,
		transport: transport,
		exec:      retry.NewExecutor(cfg.Retry, logger),
		log:       logger,
	}, nil
}

// localizeRaw is the shared pipeline behind every Localize* operation:
// partition, dispatch with retry, merge.
func (e *Engine) localizeRaw(ctx context.Context, payload *Payload, params Params, opts LocalizeOptions) (*Payload, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	chunks := splitPayload(payload, e.cfg.BatchSize, e.cfg.IdealBatchItemSize)
	workflowID := uuid.NewString()

	e.log.Debug().
		Str("workflow_id", workflowID).
		Int("items", payload.Len()).
		Int("chunks", len(chunks)).
		Str("target", params.TargetLocale).
		Bool("concurrent", opts.Concurrent).
		Msg("dispatching localization")

	send := func(ctx context.Context, chunk *Payload) (*Payload, error) {
		return retry.Do(ctx, e.exec, func(ctx context.Context) (*Payload, error) {
			return e.transport.LocalizeChunk(ctx, api.LocalizeChunkRequest{
				WorkflowID:   workflowID,
				SourceLocale: params.SourceLocale,
				TargetLocale: params.TargetLocale,
				Fast:         params.Fast,
				Data:         chunk,
				Reference:    params.Reference,
			})
		})
	}

	return dispatchChunks(ctx, chunks, send, e.cfg.MaxConcurrent, opts)
}

// LocalizeObject localizes an ordered payload, returning a new payload with
// the same keys in the same order.
func (e *Engine) LocalizeObject(ctx context.Context, obj *Payload, params Params, opts LocalizeOptions) (*Payload, error) {
	if obj == nil {
		obj = NewPayload()
	}
	return e.localizeRaw(ctx, obj, params, opts)
}

// LocalizeText localizes a single string.
func (e *Engine) LocalizeText(ctx context.Context, text string, params Params, opts LocalizeOptions) (string, error) {
	payload := NewPayload()
	payload.Set("text", text)

	result, err := e.localizeRaw(ctx, payload, params, opts)
	if err != nil {
		return "", err
	}
	if value, ok := result.Get("text"); ok {
		if s, ok := value.(string); ok {
			return s, nil
		}
	}
	return "", nil
}

// LocalizeChat localizes a chat transcript while preserving speaker names
// and message order.
func (e *Engine) LocalizeChat(ctx context.Context, chat []ChatMessage, params Params, opts LocalizeOptions) ([]ChatMessage, error) {
	if err := validateChat(chat); err != nil {
		return nil, err
	}

	messages := make([]any, 0, len(chat))
	for _, msg := range chat {
		entry := NewPayload()
		entry.Set("name", msg.Name)
		entry.Set("text", msg.Text)
		messages = append(messages, entry)
	}

	payload := NewPayload()
	payload.Set("chat", messages)

	result, err := e.localizeRaw(ctx, payload, params, opts)
	if err != nil {
		return nil, err
	}

	value, ok := result.Get("chat")
	if !ok {
		return []ChatMessage{}, nil
	}
	items, ok := value.([]any)
	if !ok {
		return []ChatMessage{}, nil
	}

	localized := make([]ChatMessage, 0, len(items))
	for _, item := range items {
		localized = append(localized, chatMessageFromValue(item))
	}
	return localized, nil
}

// chatMessageFromValue extracts a ChatMessage from a decoded response value,
// which may be an ordered map (from JSON decoding) or a plain map.
func chatMessageFromValue(v any) ChatMessage {
	var msg ChatMessage
	switch val := v.(type) {
	case *Payload:
		if name, ok := val.Get("name"); ok {
			msg.Name, _ = name.(string)
		}
		if text, ok := val.Get("text"); ok {
			msg.Text, _ = text.(string)
		}
	case map[string]any:
		msg.Name, _ = val["name"].(string)
		msg.Text, _ = val["text"].(string)
	}
	return msg
}

// BatchLocalizeText localizes one text into several target locales
// concurrently. Results are ordered like targetLocales.
func (e *Engine) BatchLocalizeText(ctx context.Context, text string, sourceLocale string, targetLocales []string, fast bool) ([]string, error) {
	if len(targetLocales) == 0 {
		return nil, fmt.Errorf("engine: at least one target locale is required")
	}

	results := make([]string, len(targetLocales))
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i, target := range targetLocales {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			localized, err := e.LocalizeText(ctx, text, Params{
				SourceLocale: sourceLocale,
				TargetLocale: target,
				Fast:         fast,
			}, LocalizeOptions{Concurrent: true})
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			results[i] = localized
		}(i, target)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// BatchLocalizeObjects localizes several payloads concurrently with shared
// parameters. Results are ordered like objs.
func (e *Engine) BatchLocalizeObjects(ctx context.Context, objs []*Payload, params Params) ([]*Payload, error) {
	results := make([]*Payload, len(objs))
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for i, obj := range objs {
		wg.Add(1)
		go func(i int, obj *Payload) {
			defer wg.Done()
			localized, err := e.LocalizeObject(ctx, obj, params, LocalizeOptions{Concurrent: true})
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			results[i] = localized
		}(i, obj)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// RecognizeLocale detects the language of a text. Single-shot: no batching,
// no retries.
func (e *Engine) RecognizeLocale(ctx context.Context, text string) (string, error) {
	if len(text) == 0 {
		return "", fmt.Errorf("engine: text cannot be empty")
	}
	return e.transport.RecognizeLocale(ctx, text)
}

// Whoami returns the account behind the configured API key, or nil when the
// key is not recognized.
func (e *Engine) Whoami(ctx context.Context) (*api.Account, error) {
	return e.transport.Whoami(ctx)
}

// QuickTranslate is a one-off helper: build an engine, translate a string or
// payload to one target locale in fast mode, and return the result.
func QuickTranslate(ctx context.Context, apiKey, targetLocale string, content any) (any, error) {
	eng, err := New(Config{APIKey: apiKey}, zerolog.Nop())
	if err != nil {
		return nil, err
	}

	params := Params{TargetLocale: targetLocale, Fast: true}
	switch val := content.(type) {
	case string:
		return eng.LocalizeText(ctx, val, params, LocalizeOptions{})
	case *Payload:
		return eng.LocalizeObject(ctx, val, params, LocalizeOptions{Concurrent: true})
	case map[string]any:
		return eng.LocalizeObject(ctx, PayloadFromMap(val), params, LocalizeOptions{Concurrent: true})
	default:
		return nil, fmt.Errorf("engine: content must be a string or a payload")
	}
}

// QuickBatchTranslate translates content to several target locales, one
// result per locale in input order.
func QuickBatchTranslate(ctx context.Context, apiKey string, targetLocales []string, content any) ([]any, error) {
	eng, err := New(Config{APIKey: apiKey}, zerolog.Nop())
	if err != nil {
		return nil, err
	}

	switch val := content.(type) {
	case string:
		texts, err := eng.BatchLocalizeText(ctx, val, "", targetLocales, true)
		if err != nil {
			return nil, err
		}
		results := make([]any, len(texts))
		for i, t := range texts {
			results[i] = t
		}
		return results, nil
	case *Payload:
		results := make([]any, len(targetLocales))
		var wg sync.WaitGroup
		var firstErr error
		var errOnce sync.Once
		for i, target := range targetLocales {
			wg.Add(1)
			go func(i int, target string) {
				defer wg.Done()
				localized, err := eng.LocalizeObject(ctx, val, Params{TargetLocale: target, Fast: true}, LocalizeOptions{Concurrent: true})
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
				results[i] = localized
			}(i, target)
		}
		wg.Wait()
		if firstErr != nil {
			return nil, firstErr
		}
		return results, nil
	default:
		return nil, fmt.Errorf("engine: content must be a string or a payload")
	}
}
