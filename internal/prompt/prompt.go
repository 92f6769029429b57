// Package prompt assembles the system instruction a new upstream session is
// opened with.
package prompt

import (
	"strings"

	"github.com/murmurlabs/murmur/internal/memory"
)

// MaxMemories caps how many stored memories are folded into the instruction
// of a new session, even when more were loaded.
const MaxMemories = 5

// Build returns base unchanged when memories is empty. Otherwise it appends
// a fixed-format block listing up to MaxMemories memory texts. The input is
// expected newest-first, as the store's Load returns it; base is never
// mutated, only concatenated, so it remains a strict prefix of the result.
func Build(base string, memories []memory.Record) string {
	if len(memories) == 0 {
		return base
	}
	if len(memories) > MaxMemories {
		memories = memories[:MaxMemories]
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nThings you remember about this user, most recent first:")
	for _, m := range memories {
		b.WriteString("\n- ")
		b.WriteString(m.Text)
	}
	return b.String()
}
