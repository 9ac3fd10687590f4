package packet

// DisconnectPacket is the one standard kind the framework itself defines
// (spec.md §6): broadcast whenever an endpoint is torn down.
type DisconnectPacket struct {
	Envelope `msgpack:",inline"`
	Reason   string `msgpack:"reason"`
}

// Kind implements Packet.
func (*DisconnectPacket) Kind() string { return "Disconnect" }

// NewDisconnect builds a Disconnect packet broadcast from from, excluding
// no one (every other endpoint, including the one that just left's own
// former peers, needs to hear about it).
func NewDisconnect(from PID, reason string) *DisconnectPacket {
	return &DisconnectPacket{
		Envelope: Envelope{FromPID: from, ToPID: []PID{Broadcast}},
		Reason:   reason,
	}
}
