package engine

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Payload is an ordered string-keyed mapping of translatable content.
// Insertion order is significant: it drives chunk boundaries and is preserved
// through dispatch and merge, so output key order always equals input key
// order. JSON marshaling/unmarshaling keep key order as well.
type Payload = orderedmap.OrderedMap[string, any]

// NewPayload returns an empty ordered payload.
func NewPayload() *Payload {
	return orderedmap.New[string, any]()
}

// PayloadFromPairs builds a payload from alternating key/value arguments, in
// the given order. Mostly useful in tests and small call sites.
func PayloadFromPairs(pairs ...any) *Payload {
	p := NewPayload()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		p.Set(key, pairs[i+1])
	}
	return p
}

// PayloadFromMap converts a plain Go map into a payload. Go maps have no
// iteration order, so keys are sorted to keep chunk boundaries deterministic.
func PayloadFromMap(m map[string]any) *Payload {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := NewPayload()
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// PayloadKeys returns the payload's keys in iteration order.
func PayloadKeys(p *Payload) []string {
	keys := make([]string, 0, p.Len())
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
