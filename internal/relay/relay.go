// Package relay runs the two data-flow directions of one connection:
// client to upstream (Inbound) and upstream to client (Outbound). The two
// loops share the upstream session under a strict single-writer rule:
// Inbound is the only code that sends into it, Outbound the only code that
// reads from it. The client connection is split the same way around, so no
// locking is needed on either handle.
package relay

// ClientConn is the subset of the duplex client connection the relays
// touch. A *websocket.Conn satisfies it.
type ClientConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
}
