// Package packet implements the wire envelope, registry, and codec for
// TickForge's self-describing packet records.
package packet

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// PID is the opaque 16-byte identifier of a connection. The all-zero value
// is the reserved broadcast sentinel and is never issued to a real
// connection.
type PID [16]byte

// Broadcast names "everyone" when used as a destination.
var Broadcast PID

// NewPID generates a fresh random connection identifier.
func NewPID() PID {
	return PID(uuid.New())
}

// IsBroadcast reports whether p is the broadcast sentinel.
func (p PID) IsBroadcast() bool {
	return p == Broadcast
}

// String renders the PID as base64 for display, matching the spec's "for
// display they are base64" rule. The wire encoding (see codec.go) instead
// carries raw bytes.
func (p PID) String() string {
	return base64.StdEncoding.EncodeToString(p[:])
}

// Envelope carries the addressing fields common to every packet. Concrete
// packet kinds embed Envelope anonymously so its fields are inlined into
// the kind's flat payload map on the wire (see codec.go).
type Envelope struct {
	FromPID       PID   `msgpack:"from_pid"`
	ToPID         []PID `msgpack:"to_pid,omitempty"`
	ExcludeSender bool  `msgpack:"exclude_sender,omitempty"`
}

// GetEnvelope implements Packet.
func (e *Envelope) GetEnvelope() *Envelope { return e }

// Packet is implemented by every kind-specific struct. Kind returns the
// wire tag the struct was registered under (e.g. "Chat" for a ChatPacket) —
// an explicit method rather than a reflected, suffix-stripped type name,
// per the registry's no-reflection design.
type Packet interface {
	Kind() string
	GetEnvelope() *Envelope
}

// To returns a copy of p addressed to a single specific peer.
func To(p Packet, to PID) Packet {
	p.GetEnvelope().ToPID = []PID{to}
	p.GetEnvelope().ExcludeSender = false
	return p
}

// ToBroadcast returns a copy of p addressed to everyone, optionally
// excluding the sender.
func ToBroadcast(p Packet, excludeSender bool) Packet {
	p.GetEnvelope().ToPID = []PID{Broadcast}
	p.GetEnvelope().ExcludeSender = excludeSender
	return p
}

// ResolvesBroadcast reports whether the destination list represents a
// broadcast. Per spec.md §9 open question (c), the broadcast sentinel
// appearing anywhere in a multi-element destination list is treated as
// equivalent to a direct broadcast.
func ResolvesBroadcast(to []PID) bool {
	for _, id := range to {
		if id.IsBroadcast() {
			return true
		}
	}
	return false
}
