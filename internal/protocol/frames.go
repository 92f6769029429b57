// Package protocol defines the message-framed JSON protocol spoken with
// connected clients. Frames are tagged unions: a frame that matches none of
// the known shapes is rejected by the decoder rather than probed for keys.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownShape is returned for a syntactically valid frame that carries
// neither a text nor a media payload.
var ErrUnknownShape = errors.New("frame matches no known shape")

// Kind tags the shape of an inbound frame.
type Kind int

const (
	KindText Kind = iota
	KindMedia
)

// InboundFrame is one client-to-server message: either conversational text
// or a realtime media chunk. Exactly one shape is present per frame.
type InboundFrame struct {
	Kind     Kind
	Text     string
	Data     string // base64-encoded bytes, forwarded untouched
	MimeType string
}

type inboundWire struct {
	Text     *string `json:"text"`
	Data     *string `json:"data"`
	MimeType *string `json:"mime_type"`
}

// DecodeInbound parses a raw client frame. Presence of the tag keys decides
// the shape; an empty text payload is still a text frame.
func DecodeInbound(raw []byte) (InboundFrame, error) {
	var w inboundWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return InboundFrame{}, fmt.Errorf("decode inbound frame: %w", err)
	}
	switch {
	case w.Text != nil && w.Data == nil:
		return InboundFrame{Kind: KindText, Text: *w.Text}, nil
	case w.Data != nil && w.MimeType != nil && w.Text == nil:
		return InboundFrame{Kind: KindMedia, Data: *w.Data, MimeType: *w.MimeType}, nil
	default:
		return InboundFrame{}, ErrUnknownShape
	}
}

// OutboundFrame is one server-to-client message. Construct with Audio, Text
// or Interrupted; exactly one field is ever set.
type OutboundFrame struct {
	Audio       string `json:"audio,omitempty"`
	Text        string `json:"text,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// Audio wraps raw model audio as a transport frame, base64-encoded for JSON.
func Audio(data []byte) OutboundFrame {
	return OutboundFrame{Audio: base64.StdEncoding.EncodeToString(data)}
}

// Text wraps a model text part as a transport frame.
func Text(s string) OutboundFrame {
	return OutboundFrame{Text: s}
}

// Interrupted signals that the model's current turn was cut off.
func Interrupted() OutboundFrame {
	return OutboundFrame{Interrupted: true}
}
