package content

import (
	"fmt"
	"os"
	"sort"

	"github.com/leonelquinteros/gotext"

	"github.com/lingodotdev/lingo-go/engine"
)

// LoadPO parses a gettext PO catalog.
func LoadPO(path string) (*gotext.Po, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	po := gotext.NewPo()
	po.ParseFile(path)
	return po, nil
}

// UntranslatedPayload collects the catalog's untranslated msgids into a
// payload keyed by msgid (msgids are unique within a catalog). Keys are
// sorted for deterministic chunk boundaries.
func UntranslatedPayload(po *gotext.Po) *engine.Payload {
	translations := po.GetDomain().GetTranslations()

	ids := make([]string, 0, len(translations))
	for id, tr := range translations {
		if id == "" {
			continue // header entry
		}
		if !tr.IsTranslated() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	payload := engine.NewPayload()
	for _, id := range ids {
		payload.Set(id, id)
	}
	return payload
}

// ApplyTranslations writes localized strings back into the catalog. Entries
// whose localized value is empty or not a string are left untouched.
func ApplyTranslations(po *gotext.Po, localized *engine.Payload) {
	domain := po.GetDomain()
	for pair := localized.Oldest(); pair != nil; pair = pair.Next() {
		translated, ok := pair.Value.(string)
		if !ok || translated == "" {
			continue
		}
		domain.Set(pair.Key, translated)
	}
}

// WritePO serializes the catalog back to disk.
func WritePO(path string, po *gotext.Po) error {
	data, err := po.MarshalText()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
