package endpoint

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/queue"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/world"
)

// Kind distinguishes a player endpoint (has a live Transport) from a
// server-owned NPC endpoint (spec.md §4.8).
type Kind int

const (
	Player Kind = iota
	NPC
)

func (k Kind) String() string {
	if k == Player {
		return "player"
	}
	return "npc"
}

// DisconnectFunc is invoked by the endpoint when its transport reports
// closed, or when a state transition fails fatally (spec.md §4.6
// "Disconnect").
type DisconnectFunc func(ep *Endpoint, reason string)

// Endpoint owns the three logical queues, the current state, and (for
// Player endpoints) a Transport. Exactly one reader drains each queue: the
// endpoint itself (inbound, via ProcessInbound) or the server (the two
// outbound queues, once per tick).
type Endpoint struct {
	id        packet.PID
	kind      Kind
	transport Transport
	codec     *packet.Codec
	world     *world.Set
	store     state.StoreFactory
	log       *slog.Logger

	inbound   *queue.Queue[packet.Packet]
	outPeers  *queue.Queue[packet.Packet]
	outClient *queue.Queue[packet.Packet]

	// mu guards current. The tick goroutine writes it via
	// ProcessInbound->Dispatch->a handler's ChangeState; the per-connection
	// readLoop goroutine reads it via the server's disconnect path on any
	// transport error. Never hold mu across a call into state.Instance
	// (Dispatch/OnTransition/OnDisconnect): those can re-enter changeState
	// on the same goroutine's call stack.
	mu         sync.Mutex
	current    state.Instance
	disconnect DisconnectFunc
}

// New constructs an endpoint. transport is nil for NPC endpoints.
func New(id packet.PID, kind Kind, transport Transport, codec *packet.Codec, w *world.Set, store state.StoreFactory, disconnect DisconnectFunc, log *slog.Logger) *Endpoint {
	return &Endpoint{
		id:         id,
		kind:       kind,
		transport:  transport,
		codec:      codec,
		world:      w,
		store:      store,
		log:        log.With("pid", id.String(), "kind", kind.String()),
		inbound:    queue.New[packet.Packet](),
		outPeers:   queue.New[packet.Packet](),
		outClient:  queue.New[packet.Packet](),
		disconnect: disconnect,
	}
}

// ID returns the endpoint's PID.
func (e *Endpoint) ID() packet.PID { return e.id }

// Kind returns Player or NPC.
func (e *Endpoint) Kind() Kind { return e.kind }

// State returns the endpoint's current state, nil until Start transitions
// into the initial one. Safe to call from any goroutine.
func (e *Endpoint) State() state.Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Start transitions into the initial state (which fires its OnTransition
// with a nil previous view) and, for Player endpoints, begins the
// background read loop. Matches spec.md §4.4 `start`.
func (e *Endpoint) Start(ctx context.Context, initial state.Factory) error {
	h := state.NewHandle(e.id, e.world, e.store, e.changeState, e.enqueuePeer, e.enqueueClient, e.log)
	inst := initial(h)
	if err := e.changeState(inst, nil); err != nil {
		return err
	}
	if e.kind == Player {
		go e.readLoop(ctx)
	}
	return nil
}

func (e *Endpoint) changeState(next state.Instance, previousView any) error {
	e.mu.Lock()
	e.current = next
	e.mu.Unlock()
	if err := next.OnTransition(previousView); err != nil {
		return err
	}
	return nil
}

func (e *Endpoint) enqueuePeer(p packet.Packet)   { e.outPeers.Push(p) }
func (e *Endpoint) enqueueClient(p packet.Packet) { e.outClient.Push(p) }

// EnqueueInbound pushes a packet onto this endpoint's inbound queue. Used
// by the router to deliver routed packets, and by Start/NPC creation paths.
func (e *Endpoint) EnqueueInbound(p packet.Packet) { e.inbound.Push(p) }

// ProcessInbound drains the inbound queue entirely through the current
// state's dispatch table (spec.md §4.4 `process_inbound`). Called once per
// tick by the server.
func (e *Endpoint) ProcessInbound() {
	for {
		p, ok := e.inbound.Pop()
		if !ok {
			return
		}
		e.mu.Lock()
		current := e.current
		e.mu.Unlock()
		if current == nil {
			e.log.Warn("dropped inbound packet: no current state", "packet_kind", p.Kind())
			continue
		}
		current.Dispatch(p)
	}
}

// PopOutboundPeer removes and returns at most one packet from the
// outbound-to-peers queue, for the tick loop's "at most one per tick"
// fan-in.
func (e *Endpoint) PopOutboundPeer() (packet.Packet, bool) { return e.outPeers.Pop() }

// PopOutboundClient removes and returns at most one packet from the
// outbound-to-own-client queue. NPC endpoints still have this queue (so
// handler code never needs a nil check) but the server never sends it
// anywhere for them (spec.md §4.8, §9 open question (a)).
func (e *Endpoint) PopOutboundClient() (packet.Packet, bool) { return e.outClient.Pop() }

// SendToClient encodes and writes p over this endpoint's transport. Called
// by the server's tick loop after popping from the outbound-to-own-client
// queue. It is an error to call this on an NPC endpoint (nil transport);
// the server skips the call entirely for those.
func (e *Endpoint) SendToClient(ctx context.Context, p packet.Packet) error {
	if e.transport == nil {
		return errors.New("endpoint: no transport")
	}
	data, err := e.codec.Encode(p)
	if err != nil {
		return err
	}
	return e.transport.WriteMessage(ctx, data)
}

func (e *Endpoint) readLoop(ctx context.Context) {
	e.log.Debug("starting read loop")
	for {
		data, err := e.transport.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, ErrNonBinaryFrame) {
				e.log.Error("dropping non-binary frame", "error", err)
				continue
			}
			e.log.Debug("transport closed", "error", err)
			e.disconnect(e, "Client disconnected")
			return
		}

		p, err := e.codec.Decode(data)
		if err != nil {
			e.log.Error("dropping unreadable frame", "error", err)
			continue
		}
		e.log.Debug("received packet", "packet_kind", p.Kind())
		e.inbound.Push(p)
	}
}

// Close releases the underlying transport, if any.
func (e *Endpoint) Close() error {
	if e.transport == nil {
		return nil
	}
	return e.transport.Close()
}
