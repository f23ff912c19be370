package engine

import "strings"

// countWords recursively counts whitespace-delimited tokens in a JSON-like
// value: strings count their tokens, sequences and mappings sum over their
// elements/values, anything else (numbers, booleans, nil) counts zero.
func countWords(v any) int {
	switch val := v.(type) {
	case string:
		return len(strings.Fields(val))
	case []any:
		total := 0
		for _, item := range val {
			total += countWords(item)
		}
		return total
	case []string:
		total := 0
		for _, item := range val {
			total += countWords(item)
		}
		return total
	case map[string]any:
		total := 0
		for _, item := range val {
			total += countWords(item)
		}
		return total
	case *Payload:
		if val == nil {
			return 0
		}
		total := 0
		for pair := val.Oldest(); pair != nil; pair = pair.Next() {
			total += countWords(pair.Value)
		}
		return total
	default:
		return 0
	}
}

// splitPayload groups payload entries, in insertion order, into chunks sized
// for one API request each. A chunk closes as soon as its running word count
// exceeds sizeCap, its item count reaches itemCap, or the entry just added
// was the payload's last. A single oversized entry therefore closes its own
// chunk immediately but is never split. An empty payload yields no chunks.
func splitPayload(payload *Payload, itemCap, sizeCap int) []*Payload {
	var chunks []*Payload
	current := NewPayload()
	words := 0

	for pair := payload.Oldest(); pair != nil; pair = pair.Next() {
		current.Set(pair.Key, pair.Value)
		words += countWords(pair.Value)

		if words > sizeCap || current.Len() >= itemCap || pair.Next() == nil {
			chunks = append(chunks, current)
			current = NewPayload()
			words = 0
		}
	}

	return chunks
}

// mergeChunks concatenates chunk results in partition order into one payload,
// reproducing the original key order regardless of completion order.
func mergeChunks(chunks []*Payload) *Payload {
	merged := NewPayload()
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}
		for pair := chunk.Oldest(); pair != nil; pair = pair.Next() {
			merged.Set(pair.Key, pair.Value)
		}
	}
	return merged
}
