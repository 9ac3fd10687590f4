package server

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/nextlevelbuilder/tickforge/internal/endpoint"
	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/state"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// recorder is a minimal state.Instance that records every packet handed
// to Dispatch, so router tests can observe what actually reached an
// endpoint's inbound queue without depending on a real game's states.
type recorder struct {
	state.Base
	received []packet.Packet
}

func newRecorderEndpoint(t *testing.T, id packet.PID) (*endpoint.Endpoint, *recorder) {
	t.Helper()
	var rec *recorder
	ep := endpoint.New(id, endpoint.NPC, nil, packet.NewCodec(packet.NewRegistry()), nil, nil, func(*endpoint.Endpoint, string) {}, testLog())
	factory := func(h *state.Handle) state.Instance {
		rec = &recorder{Base: state.NewBase(h)}
		return rec
	}
	if err := ep.Start(context.Background(), factory); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return ep, rec
}

func (r *recorder) Dispatch(p packet.Packet) { r.received = append(r.received, p) }

func TestRoute_BroadcastExcludesSender(t *testing.T) {
	a, recA := newRecorderEndpoint(t, packet.NewPID())
	b, recB := newRecorderEndpoint(t, packet.NewPID())
	c, recC := newRecorderEndpoint(t, packet.NewPID())
	endpoints := map[packet.PID]*endpoint.Endpoint{a.ID(): a, b.ID(): b, c.ID(): c}

	p := &packet.DisconnectPacket{
		Envelope: packet.Envelope{FromPID: a.ID(), ToPID: []packet.PID{packet.Broadcast}, ExcludeSender: true},
		Reason:   "x",
	}
	route(p, endpoints, testLog())
	a.ProcessInbound()
	b.ProcessInbound()
	c.ProcessInbound()

	if len(recA.received) != 0 {
		t.Error("sender should not receive its own excluded broadcast")
	}
	if len(recB.received) != 1 {
		t.Error("peer b should have received the broadcast")
	}
	if len(recC.received) != 1 {
		t.Error("peer c should have received the broadcast")
	}
}

func TestRoute_AmbiguousDirectionDropped(t *testing.T) {
	a, recA := newRecorderEndpoint(t, packet.NewPID())
	endpoints := map[packet.PID]*endpoint.Endpoint{a.ID(): a}

	p := &packet.DisconnectPacket{
		Envelope: packet.Envelope{FromPID: a.ID(), ToPID: []packet.PID{a.ID()}},
		Reason:   "x",
	}
	route(p, endpoints, testLog())
	a.ProcessInbound()

	if len(recA.received) != 0 {
		t.Error("a packet addressed to == from should be dropped, not delivered")
	}
}

func TestRoute_EmptyDestinationDropped(t *testing.T) {
	a, recA := newRecorderEndpoint(t, packet.NewPID())
	endpoints := map[packet.PID]*endpoint.Endpoint{a.ID(): a}

	p := &packet.DisconnectPacket{Envelope: packet.Envelope{FromPID: a.ID()}, Reason: "x"}
	route(p, endpoints, testLog())
	a.ProcessInbound()

	if len(recA.received) != 0 {
		t.Error("a packet with no destinations should be dropped")
	}
}

func TestRoute_DisconnectedPeerDropped(t *testing.T) {
	a, _ := newRecorderEndpoint(t, packet.NewPID())
	ghost := packet.NewPID()
	endpoints := map[packet.PID]*endpoint.Endpoint{a.ID(): a}

	p := &packet.DisconnectPacket{
		Envelope: packet.Envelope{FromPID: a.ID(), ToPID: []packet.PID{ghost}},
		Reason:   "x",
	}
	// Must not panic even though ghost is not in the endpoint table.
	route(p, endpoints, testLog())
}

func TestRoute_DirectDelivery(t *testing.T) {
	a, _ := newRecorderEndpoint(t, packet.NewPID())
	b, recB := newRecorderEndpoint(t, packet.NewPID())
	endpoints := map[packet.PID]*endpoint.Endpoint{a.ID(): a, b.ID(): b}

	p := &packet.DisconnectPacket{
		Envelope: packet.Envelope{FromPID: a.ID(), ToPID: []packet.PID{b.ID()}},
		Reason:   "x",
	}
	route(p, endpoints, testLog())
	b.ProcessInbound()

	if len(recB.received) != 1 {
		t.Fatal("b should have received the direct packet")
	}
	if recB.received[0].(*packet.DisconnectPacket).Reason != "x" {
		t.Error("delivered packet content mismatch")
	}
}
