// Package intent detects "remember this" requests in free text. Detection is
// a deterministic keyword heuristic, not a learned classifier: a fixed,
// ordered trigger list is matched case-insensitively against the input.
package intent

import "strings"

// triggers are scanned in this order; the first one found in the text wins,
// regardless of where it appears relative to the others.
var triggers = []string{
	"remember",
	"memorize",
	"save",
	"store",
	"keep in mind",
	"don't forget",
}

// connectors are filler words allowed between a trigger and its payload.
// At most one is stripped.
var connectors = map[string]struct{}{
	"that": {},
	"this": {},
	"to":   {},
}

// Classify reports whether text expresses a memory-save intent and, if so,
// the payload to persist: everything after the first occurrence of the
// matched trigger, whitespace-trimmed, with at most one leading connector
// word removed. A trigger at the very end of the text yields an empty
// payload, which is still a valid save request. Non-matching text is left
// untouched for the caller.
func Classify(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, trigger := range triggers {
		idx := strings.Index(lower, trigger)
		if idx < 0 {
			continue
		}
		payload := strings.TrimSpace(text[idx+len(trigger):])
		if fields := strings.Fields(payload); len(fields) > 0 {
			if _, ok := connectors[strings.ToLower(fields[0])]; ok {
				payload = strings.TrimSpace(payload[len(fields[0]):])
			}
		}
		return true, payload
	}
	return false, ""
}
