// Package chat is the reference game built on top of the framework: a
// tiny chat-and-move world with account login, grounded on
// original_source/server's EntryState/LoggedState pair. It exists to
// exercise every operation internal/state, internal/endpoint,
// internal/server, and internal/world expose, and to give integrators a
// worked example to copy from.
package chat

import "github.com/nextlevelbuilder/tickforge/internal/packet"

// OkPacket acknowledges a request with no further data.
type OkPacket struct {
	packet.Envelope `msgpack:",inline"`
}

func (*OkPacket) Kind() string { return "Ok" }

// DenyPacket rejects a request with a human-readable reason.
type DenyPacket struct {
	packet.Envelope `msgpack:",inline"`
	Reason          string `msgpack:"reason"`
}

func (*DenyPacket) Kind() string { return "Deny" }

// PidPacket tells a freshly connected client its own PID.
type PidPacket struct {
	packet.Envelope `msgpack:",inline"`
}

func (*PidPacket) Kind() string { return "Pid" }

// HelloPacket carries a sender's state.Instance.View to another endpoint
// or to its own client, so either side can render the sender's presence.
type HelloPacket struct {
	packet.Envelope `msgpack:",inline"`
	StateView       map[string]any `msgpack:"state_view"`
}

func (*HelloPacket) Kind() string { return "Hello" }

// WhichUsernamesPacket is broadcast by a freshly connected endpoint to ask
// every logged-in peer to identify itself, so the new connection can
// refuse a double login before it happens.
type WhichUsernamesPacket struct {
	packet.Envelope `msgpack:",inline"`
}

func (*WhichUsernamesPacket) Kind() string { return "WhichUsernames" }

// MyUsernamePacket answers a WhichUsernamesPacket (or simply announces a
// fresh login) with the sender's username.
type MyUsernamePacket struct {
	packet.Envelope `msgpack:",inline"`
	Username        string `msgpack:"username"`
}

func (*MyUsernamePacket) Kind() string { return "MyUsername" }

// MotdPacket delivers a message-of-the-day line to a freshly connected
// client.
type MotdPacket struct {
	packet.Envelope `msgpack:",inline"`
	Message         string `msgpack:"message"`
}

func (*MotdPacket) Kind() string { return "Motd" }

// MovePacket requests or relays a relative position delta.
type MovePacket struct {
	packet.Envelope `msgpack:",inline"`
	DX              int `msgpack:"dx"`
	DY              int `msgpack:"dy"`
}

func (*MovePacket) Kind() string { return "Move" }

// LoginPacket is a client's request to authenticate an existing account.
type LoginPacket struct {
	packet.Envelope `msgpack:",inline"`
	Username        string `msgpack:"username"`
	Password        string `msgpack:"password"`
}

func (*LoginPacket) Kind() string { return "Login" }

// RegisterPacket is a client's request to create a new account.
type RegisterPacket struct {
	packet.Envelope `msgpack:",inline"`
	Username        string `msgpack:"username"`
	Password        string `msgpack:"password"`
}

func (*RegisterPacket) Kind() string { return "Register" }

// ChatPacket is a line of chat, relayed either to a specific set of
// peers or broadcast to everyone.
type ChatPacket struct {
	packet.Envelope `msgpack:",inline"`
	Message         string `msgpack:"message"`
}

func (*ChatPacket) Kind() string { return "Chat" }

// Register adds every packet kind this demo introduces to reg, so
// internal/packet.Codec can decode them on the wire.
func Register(reg *packet.Registry) {
	reg.Register("Ok", func() packet.Packet { return &OkPacket{} })
	reg.Register("Deny", func() packet.Packet { return &DenyPacket{} })
	reg.Register("Pid", func() packet.Packet { return &PidPacket{} })
	reg.Register("Hello", func() packet.Packet { return &HelloPacket{} })
	reg.Register("WhichUsernames", func() packet.Packet { return &WhichUsernamesPacket{} })
	reg.Register("MyUsername", func() packet.Packet { return &MyUsernamePacket{} })
	reg.Register("Motd", func() packet.Packet { return &MotdPacket{} })
	reg.Register("Move", func() packet.Packet { return &MovePacket{} })
	reg.Register("Login", func() packet.Packet { return &LoginPacket{} })
	reg.Register("Register", func() packet.Packet { return &RegisterPacket{} })
	reg.Register("Chat", func() packet.Packet { return &ChatPacket{} })
}
