// Package endpoint implements the per-connection owner of the three queues,
// current state, and transport handle described in spec.md §3/§4.4.
// Grounded on original_source/netbound/app/protocol.py (_GameProtocol,
// _PlayerProtocol).
package endpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// ErrNonBinaryFrame is returned by Transport.ReadMessage for a frame that
// was not a binary message. It is recoverable: the caller logs and drops
// the frame, matching spec.md §4.4 ("Non-bytes frames are logged and
// dropped") and §6 ("Non-binary messages are rejected") rather than §4.4's
// "when the transport reports closed" teardown path.
var ErrNonBinaryFrame = errors.New("endpoint: received non-binary frame")

// Transport is the duplex, message-framed channel a Player endpoint reads
// from and writes to. NPC endpoints have no Transport (nil).
type Transport interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// WSTransport adapts a gorilla/websocket connection to Transport, the
// player-facing transport named in SPEC_FULL.md §11 (the one WebSocket
// dependency the framework keeps from the teacher's stack). Per spec.md
// §6, non-binary frames are rejected outright.
type WSTransport struct {
	conn *websocket.Conn
}

// NewWSTransport wraps an already-upgraded websocket connection.
func NewWSTransport(conn *websocket.Conn) *WSTransport {
	return &WSTransport{conn: conn}
}

// ReadMessage blocks for the next frame. It returns an error for any
// non-binary frame, matching spec.md §4.4 ("Non-bytes frames are logged
// and dropped") — here surfaced as an error the caller logs and continues
// past, rather than tearing down the connection.
func (t *WSTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	msgType, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if msgType != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w (type %d)", ErrNonBinaryFrame, msgType)
	}
	return data, nil
}

// WriteMessage sends data as a single binary frame.
func (t *WSTransport) WriteMessage(ctx context.Context, data []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close closes the underlying connection.
func (t *WSTransport) Close() error {
	return t.conn.Close()
}
