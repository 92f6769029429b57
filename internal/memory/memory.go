// Package memory persists user-stated facts keyed by conversation session.
//
// The store boundary deliberately never leaks errors into the conversation
// path: a failed save comes back as a user-safe message to be voiced by the
// model, and a failed load degrades to "no memories".
package memory

import (
	"context"
	"fmt"
	"time"
)

// Record is one persisted user-stated fact. SessionID and CreatedAt never
// change after the record is written.
type Record struct {
	ID        int64
	SessionID string
	Text      string
	Context   string // the full original utterance, kept for audit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveResult is what a save request always produces, success or not.
// Message is a conversational line fit for forwarding to the model.
type SaveResult struct {
	Success  bool
	Message  string
	RecordID int64
}

// Store is the adapter the relays and the gateway talk to.
type Store interface {
	// Save persists text under sessionID. utterance is the full original
	// user message. An empty text is persisted, not dropped.
	Save(ctx context.Context, sessionID, text, utterance string) SaveResult

	// Load returns up to limit records for sessionID, newest first.
	// On store failure it returns an empty list.
	Load(ctx context.Context, sessionID string, limit int) []Record
}

// SaveFailedMessage is voiced by the model when the store rejects a save.
const SaveFailedMessage = "I couldn't save that memory right now. Apologize briefly to the user and continue the conversation."

// ConfirmMessage is the conversational line forwarded upstream after a
// successful save so the model voices the confirmation instead of the raw
// save request.
func ConfirmMessage(text string) string {
	if text == "" {
		return "I noted that down for the user. Briefly confirm that you'll remember it."
	}
	return fmt.Sprintf("I just saved this memory about the user: %q. Briefly confirm that you'll remember it.", text)
}
