// Package content adapts on-disk translation files to engine payloads:
// JSON translation files and gettext PO catalogs. Adapters only decide what
// mapping of strings is fed to the engine and how the localized mapping is
// written back; all batching happens in the engine.
package content

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lingodotdev/lingo-go/engine"
)

// LoadJSON reads a JSON translation file into an ordered payload, preserving
// the file's key order.
func LoadJSON(path string) (*engine.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	payload := engine.NewPayload()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return payload, nil
}

// WriteJSON writes a localized payload back to disk, indented, in key order.
func WriteJSON(path string, payload *engine.Payload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
