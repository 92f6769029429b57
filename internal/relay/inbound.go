package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/gorilla/websocket"

	"github.com/murmurlabs/murmur/internal/intent"
	"github.com/murmurlabs/murmur/internal/memory"
	"github.com/murmurlabs/murmur/internal/protocol"
	"github.com/murmurlabs/murmur/internal/upstream"
)

// Inbound reads frames from the client connection and routes them: memory
// intents to the store, everything else into the upstream session.
type Inbound struct {
	Conn      ClientConn
	Session   upstream.Session
	Store     memory.Store
	SessionID string
	Log       *bolt.Logger
}

// Run loops until the client disconnects or the connection fails. A clean
// disconnect returns nil; any other connection error is reported to the
// gateway. Malformed frames are dropped without ending the loop.
func (r *Inbound) Run(ctx context.Context) error {
	for {
		_, raw, err := r.Conn.ReadMessage()
		if err != nil {
			if clientGone(err) || ctx.Err() != nil {
				r.Log.Info().Str("session", r.SessionID).Msg("client disconnected")
				return nil
			}
			return fmt.Errorf("failed to read client frame: %w", err)
		}

		frame, err := protocol.DecodeInbound(raw)
		if err != nil {
			r.Log.Warn().Str("session", r.SessionID).Err(err).Msg("dropping malformed frame")
			continue
		}

		switch frame.Kind {
		case protocol.KindText:
			if err := r.handleText(ctx, frame.Text); err != nil {
				return err
			}
		case protocol.KindMedia:
			// Media frames are never memory candidates.
			if err := r.Session.SendMedia(ctx, frame.MimeType, frame.Data); err != nil {
				return fmt.Errorf("failed to forward media: %w", err)
			}
		}
	}
}

// handleText classifies a text frame. A memory intent is persisted and the
// store's resulting line (confirmation or user-safe failure) is sent
// upstream as a normal conversational turn so the model voices it; the raw
// save request itself is not forwarded. Everything else goes upstream as an
// ordinary end-of-turn input.
func (r *Inbound) handleText(ctx context.Context, text string) error {
	ok, payload := intent.Classify(text)
	if !ok {
		if err := r.Session.SendText(ctx, text, true); err != nil {
			return fmt.Errorf("failed to forward text: %w", err)
		}
		return nil
	}

	res := r.Store.Save(ctx, r.SessionID, payload, text)
	if res.Success {
		r.Log.Info().Str("session", r.SessionID).Int("record", int(res.RecordID)).Msg("memory saved")
	}
	if err := r.Session.SendText(ctx, res.Message, true); err != nil {
		return fmt.Errorf("failed to forward memory confirmation: %w", err)
	}
	return nil
}

// clientGone reports whether a read error means the client ended the
// connection, as opposed to a transport failure worth surfacing.
func clientGone(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
