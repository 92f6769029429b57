package relay

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/murmurlabs/murmur/internal/protocol"
	"github.com/murmurlabs/murmur/internal/upstream"
)

// Outbound reads turn events from the upstream session and translates them
// into client frames.
type Outbound struct {
	Conn      ClientConn
	Session   upstream.Session
	SessionID string
	Log       *bolt.Logger
}

// Run loops until the upstream session ends. Frame order mirrors part order
// within a turn, turns are processed strictly in arrival order, and the
// interrupted marker for a turn always follows that turn's part frames.
func (r *Outbound) Run(ctx context.Context) error {
	for {
		turn, err := r.Session.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to receive upstream turn: %w", err)
		}

		for _, part := range turn.Parts {
			if len(part.Data) > 0 {
				if err := r.Conn.WriteJSON(protocol.Audio(part.Data)); err != nil {
					return fmt.Errorf("failed to write audio frame: %w", err)
				}
			}
			if part.Text != "" {
				if err := r.Conn.WriteJSON(protocol.Text(part.Text)); err != nil {
					return fmt.Errorf("failed to write text frame: %w", err)
				}
			}
		}

		if turn.Interrupted {
			r.Log.Info().Str("session", r.SessionID).Msg("model turn interrupted")
			if err := r.Conn.WriteJSON(protocol.Interrupted()); err != nil {
				return fmt.Errorf("failed to write interrupted frame: %w", err)
			}
		}
	}
}
