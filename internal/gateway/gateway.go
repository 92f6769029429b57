// Package gateway owns the lifetime of one client connection: accept,
// session identity, context assembly, upstream dial, and the two relay
// loops that bridge the connection to the upstream session.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/murmurlabs/murmur/internal/memory"
	"github.com/murmurlabs/murmur/internal/observe"
	"github.com/murmurlabs/murmur/internal/prompt"
	"github.com/murmurlabs/murmur/internal/relay"
	"github.com/murmurlabs/murmur/internal/upstream"
)

const (
	// loadLimit is how many records are fetched at session start; the
	// context builder caps what actually reaches the instruction.
	loadLimit = 10

	// maxFrameBytes bounds a single client frame. Base64 media chunks
	// from a microphone or camera stay well under this.
	maxFrameBytes = 1 << 20
)

// Options carries the conversation defaults a Gateway opens sessions with.
type Options struct {
	Model              string
	BaseInstruction    string
	ResponseModalities []string
}

// Gateway accepts duplex client connections and runs one relayed session
// per connection. Dependencies are injected, never ambient.
type Gateway struct {
	obs      *observe.Observer
	store    memory.Store
	dialer   upstream.Dialer
	opts     Options
	upgrader websocket.Upgrader
}

func New(obs *observe.Observer, store memory.Store, dialer upstream.Dialer, opts Options) *Gateway {
	if opts.BaseInstruction == "" {
		opts.BaseInstruction = "You are a helpful and friendly AI assistant."
	}
	if len(opts.ResponseModalities) == 0 {
		opts.ResponseModalities = []string{"AUDIO"}
	}
	return &Gateway{
		obs:    obs,
		store:  store,
		dialer: dialer,
		opts:   opts,
		upgrader: websocket.Upgrader{
			// Origin policy belongs to the fronting proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and runs the connection to completion. The
// session identity is fresh per connection and never reused.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.obs.Log().Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	log := g.obs.Log().With().Str("session", sessionID).Logger()
	log.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	ctx, span := g.obs.StartSpan(r.Context(), "gateway.connection")
	defer span.End()

	if err := g.run(ctx, log, conn, sessionID); err != nil {
		log.Error().Err(err).Msg("session ended with failure")
	}
	log.Info().Msg("connection closed")
}

func (g *Gateway) run(ctx context.Context, log *bolt.Logger, conn *websocket.Conn, sessionID string) error {
	memories := g.store.Load(ctx, sessionID, loadLimit)
	if len(memories) > 0 {
		log.Info().Int("count", len(memories)).Msg("loaded session memories")
	}

	sess, err := g.dialer.Dial(ctx, upstream.Config{
		Model:              g.opts.Model,
		ResponseModalities: g.opts.ResponseModalities,
		SystemInstruction:  prompt.Build(g.opts.BaseInstruction, memories),
	})
	if err != nil {
		// Fatal for the connection: no relay starts, no retry here.
		return fmt.Errorf("failed to open upstream session: %w", err)
	}
	defer sess.Close()

	if err := sess.SendText(ctx, greeting(len(memories)), true); err != nil {
		return fmt.Errorf("failed to send greeting: %w", err)
	}

	conn.SetReadLimit(maxFrameBytes)

	// Either relay finishing, cleanly or not, cancels the other. The
	// relays block in reads that don't watch the context, so cancellation
	// also closes both handles to unblock them.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	grp, gctx := errgroup.WithContext(ctx)

	inbound := &relay.Inbound{
		Conn:      conn,
		Session:   sess,
		Store:     g.store,
		SessionID: sessionID,
		Log:       log,
	}
	outbound := &relay.Outbound{
		Conn:      conn,
		Session:   sess,
		SessionID: sessionID,
		Log:       log,
	}

	grp.Go(func() error {
		defer cancel()
		return inbound.Run(gctx)
	})
	grp.Go(func() error {
		defer cancel()
		return outbound.Run(gctx)
	})
	go func() {
		<-gctx.Done()
		sess.Close()
		conn.Close()
	}()

	return grp.Wait()
}

// greeting is the first turn of every session, sent before the relays
// start, so the model speaks first.
func greeting(memoryCount int) string {
	if memoryCount == 0 {
		return "Greet the user warmly and briefly introduce yourself. This is your first conversation with them."
	}
	return fmt.Sprintf("Greet the user warmly. You have %d saved memories about them from earlier conversations; let them know you remember.", memoryCount)
}
