package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultEndpoint is the Gemini Live bidirectional streaming endpoint.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// DefaultModel is used when the session config names no model.
const DefaultModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"

const closeGrace = time.Second

// GeminiDialer opens live sessions against the Gemini BidiGenerateContent
// WebSocket API.
type GeminiDialer struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
}

func NewGeminiDialer(apiKey, endpoint string) (*GeminiDialer, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GeminiDialer{
		apiKey:   apiKey,
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
	}, nil
}

// Dial connects, performs the setup handshake and waits for the service to
// acknowledge it. A session that fails setup is closed and never returned.
func (d *GeminiDialer) Dial(ctx context.Context, cfg Config) (Session, error) {
	conn, _, err := d.dialer.DialContext(ctx, d.endpoint+"?key="+url.QueryEscape(d.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live endpoint: %w", err)
	}

	sess := &geminiSession{conn: conn}
	if err := sess.setup(cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return sess, nil
}

// Wire shapes of the BidiGenerateContent protocol. Field names are the
// service's camelCase, distinct from the client protocol's snake_case.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model             string            `json:"model"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	Tools             []json.RawMessage `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []wireContent `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []wireInlineData `json:"mediaChunks"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

type serverContent struct {
	ModelTurn    *wireContent `json:"modelTurn,omitempty"`
	TurnComplete bool         `json:"turnComplete,omitempty"`
	Interrupted  bool         `json:"interrupted,omitempty"`
}

type geminiSession struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (s *geminiSession) setup(cfg Config) error {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	payload := setupPayload{Model: model, Tools: cfg.Tools}
	if len(cfg.ResponseModalities) > 0 {
		payload.GenerationConfig = &generationConfig{ResponseModalities: cfg.ResponseModalities}
	}
	if cfg.SystemInstruction != "" {
		payload.SystemInstruction = &wireContent{Parts: []wirePart{{Text: cfg.SystemInstruction}}}
	}
	if err := s.conn.WriteJSON(setupMessage{Setup: payload}); err != nil {
		return fmt.Errorf("failed to send setup: %w", err)
	}

	// No content may flow until the service acknowledges the setup.
	var ack serverMessage
	if err := s.conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("failed to read setup ack: %w", err)
	}
	if ack.SetupComplete == nil {
		return errors.New("upstream did not acknowledge setup")
	}
	return nil
}

func (s *geminiSession) SendText(ctx context.Context, text string, endOfTurn bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := clientContentMessage{ClientContent: clientContent{
		Turns: []wireContent{{
			Role:  "user",
			Parts: []wirePart{{Text: text}},
		}},
		TurnComplete: endOfTurn,
	}}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send client content: %w", err)
	}
	return nil
}

func (s *geminiSession) SendMedia(ctx context.Context, mimeType, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []wireInlineData{{MimeType: mimeType, Data: data}},
	}}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send realtime input: %w", err)
	}
	return nil
}

// Receive blocks for the next serverContent event and translates it into a
// Turn. Envelopes that carry no relayable content (tool calls, usage
// metadata) are skipped.
func (s *geminiSession) Receive() (*Turn, error) {
	for {
		var msg serverMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("failed to read server content: %w", err)
		}
		sc := msg.ServerContent
		if sc == nil {
			continue
		}

		turn := &Turn{Interrupted: sc.Interrupted, Complete: sc.TurnComplete}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				part := Part{Text: p.Text}
				if p.InlineData != nil {
					raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
					if err != nil {
						return nil, fmt.Errorf("failed to decode inline data: %w", err)
					}
					part.Data = raw
					part.MimeType = p.InlineData.MimeType
				}
				turn.Parts = append(turn.Parts, part)
			}
		}
		if len(turn.Parts) == 0 && !turn.Interrupted && !turn.Complete {
			continue
		}
		return turn, nil
	}
}

func (s *geminiSession) Close() error {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(closeGrace)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
