package server

import (
	"log/slog"

	"github.com/nextlevelbuilder/tickforge/internal/endpoint"
	"github.com/nextlevelbuilder/tickforge/internal/packet"
)

// route resolves one packet popped from the global peer queue to the
// connected endpoints' inbound queues, per spec.md §4.7. It never returns
// an error: every addressing violation is logged and dropped in place.
//
// endpoints is a snapshot (id -> endpoint) taken by the caller under its
// own lock; route only reads it.
func route(p packet.Packet, endpoints map[packet.PID]*endpoint.Endpoint, log *slog.Logger) {
	env := p.GetEnvelope()
	from := env.FromPID
	to := env.ToPID
	excl := env.ExcludeSender

	if len(to) == 0 {
		log.Error("dropped packet: empty destination list", "packet_kind", p.Kind(), "from", from.String())
		return
	}

	if from.IsBroadcast() {
		log.Error("dropped packet: source PID must be specific", "packet_kind", p.Kind())
		return
	}

	if excl && !packet.ResolvesBroadcast(to) {
		log.Error("dropped packet: exclude_sender is only compatible with broadcast destination", "packet_kind", p.Kind(), "from", from.String())
		return
	}

	// Per spec.md §9 open question (c): broadcast anywhere in a
	// multi-element destination list collapses the whole send to a
	// broadcast.
	if packet.ResolvesBroadcast(to) {
		deliverBroadcast(p, from, excl, endpoints, log)
		return
	}

	for _, d := range to {
		deliverOne(p, from, d, endpoints, log)
	}
}

func deliverBroadcast(p packet.Packet, from packet.PID, excl bool, endpoints map[packet.PID]*endpoint.Endpoint, log *slog.Logger) {
	for id, ep := range endpoints {
		if excl && id == from {
			continue
		}
		ep.EnqueueInbound(p)
		log.Debug("routed packet", "packet_kind", p.Kind(), "to", id.String())
	}
}

func deliverOne(p packet.Packet, from, d packet.PID, endpoints map[packet.PID]*endpoint.Endpoint, log *slog.Logger) {
	if d.IsBroadcast() {
		deliverBroadcast(p, from, false, endpoints, log)
		return
	}
	if d == from {
		log.Error("dropped packet: ambiguous direction (to == from)", "packet_kind", p.Kind(), "pid", from.String())
		return
	}
	ep, ok := endpoints[d]
	if !ok {
		log.Error("dropped packet: destination is disconnected", "packet_kind", p.Kind(), "to", d.String())
		return
	}
	ep.EnqueueInbound(p)
	log.Debug("routed packet", "packet_kind", p.Kind(), "to", d.String())
}
