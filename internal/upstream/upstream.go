// Package upstream holds the boundary to the real-time conversational AI
// service: the Session a connection talks to for its whole lifetime, and the
// Dialer that opens one. The gateway injects these so tests can substitute
// fakes for the live service.
package upstream

import (
	"context"
	"encoding/json"
)

// Config is the configuration a conversation session is opened with.
type Config struct {
	Model              string
	ResponseModalities []string
	SystemInstruction  string
	Tools              []json.RawMessage
}

// Part is one fragment of a model turn: inline binary media or text.
type Part struct {
	Text     string
	Data     []byte
	MimeType string
}

// Turn is one server event: an ordered list of parts plus turn-level flags.
// Interrupted means the model's turn was cut off, e.g. by a new user
// utterance arriving mid-response.
type Turn struct {
	Parts       []Part
	Interrupted bool
	Complete    bool
}

// Session is one live conversation held open with the upstream service.
// Receive may run concurrently with the send methods, but sends must come
// from a single goroutine; the inbound relay is the sole writer.
type Session interface {
	// SendText submits conversational text. endOfTurn marks the user's
	// turn as complete so the model starts responding.
	SendText(ctx context.Context, text string, endOfTurn bool) error

	// SendMedia submits a realtime media chunk. data is base64-encoded,
	// exactly as it arrived from the client.
	SendMedia(ctx context.Context, mimeType, data string) error

	// Receive blocks for the next turn event. It returns an error when
	// the session ends, for any reason.
	Receive() (*Turn, error)

	Close() error
}

// Dialer opens upstream sessions, one per client connection.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Session, error)
}
