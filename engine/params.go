package engine

import (
	"fmt"
	"strings"
)

// Params carries the per-request localization parameters.
type Params struct {
	// SourceLocale is the source language code; empty means the engine
	// auto-detects it.
	SourceLocale string
	// TargetLocale is the target language code. Required.
	TargetLocale string
	// Fast trades quality for latency.
	Fast bool
	// Reference holds optional reference translations keyed by locale,
	// forwarded to the engine for consistency.
	Reference map[string]any
}

// Validate normalizes locale codes to lowercase and checks their shape.
func (p *Params) Validate() error {
	if p.SourceLocale != "" {
		normalized, err := normalizeLocale(p.SourceLocale)
		if err != nil {
			return fmt.Errorf("source locale: %w", err)
		}
		p.SourceLocale = normalized
	}

	if strings.TrimSpace(p.TargetLocale) == "" {
		return fmt.Errorf("target locale is required")
	}
	normalized, err := normalizeLocale(p.TargetLocale)
	if err != nil {
		return fmt.Errorf("target locale: %w", err)
	}
	p.TargetLocale = normalized
	return nil
}

// normalizeLocale validates a locale code (2-5 characters, letters and
// hyphens, e.g. "en", "es", "en-US") and lowercases it.
func normalizeLocale(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) < 2 || len(code) > 5 {
		return "", fmt.Errorf("invalid locale code %q", code)
	}
	for _, r := range code {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && r != '-' {
			return "", fmt.Errorf("invalid locale code %q", code)
		}
	}
	return strings.ToLower(code), nil
}

// ChatMessage is one utterance in a chat transcript. The speaker name is
// preserved through localization.
type ChatMessage struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func validateChat(chat []ChatMessage) error {
	for i, msg := range chat {
		if strings.TrimSpace(msg.Name) == "" {
			return fmt.Errorf("chat message %d: speaker name cannot be empty", i)
		}
		if strings.TrimSpace(msg.Text) == "" {
			return fmt.Errorf("chat message %d: message text cannot be empty", i)
		}
	}
	return nil
}
