// Package state implements the per-connection state machine: user-extensible
// states with a dispatch table keyed by packet kind, and a transition
// protocol that hands the outgoing state's View to the incoming state.
// Grounded on original_source/netbound/state/base.py (BaseState), with two
// deliberate departures: no cyclic ownership (the endpoint owns the state;
// the state gets plain non-owning callback handles) and no reflection-based
// View collection (each concrete state declares its own Go View struct;
// OnTransition type-asserts it).
package state

import (
	"log/slog"

	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/world"
)

// StoreFactory hands out a scoped persistent-store session. The concrete
// type lives outside this package (internal/store); state only needs to
// acquire and release one per handler invocation, never hold it across
// packets.
type StoreFactory interface {
	Session() (Session, error)
}

// Session is a scoped persistent-store handle. Release must be called on
// every exit path.
type Session interface {
	Release()
}

// ChangeFunc swaps the endpoint's current state, then invokes the new
// state's OnTransition with the outgoing state's View. It returns a
// transition error if the new state's OnTransition rejects the view,
// which is fatal to the endpoint.
type ChangeFunc func(next Instance, previousView any) error

// SendFunc enqueues a packet onto one of the endpoint's outbound queues.
type SendFunc func(packet.Packet)

// Handle is the non-owning bundle of callbacks and shared resources a
// state needs: its own PID, the world object set, a store session
// factory, and the three ways to affect the outside world (change state,
// send to peers, send to its own client). States never hold a reference to
// their owning Endpoint directly — only this Handle.
type Handle struct {
	PID    packet.PID
	World  *world.Set
	Store  StoreFactory
	Log    *slog.Logger
	change ChangeFunc
	toPeer SendFunc
	toSelf SendFunc
}

// NewHandle builds a Handle. Called by the endpoint package when
// constructing a state.
func NewHandle(pid packet.PID, w *world.Set, store StoreFactory, change ChangeFunc, toPeer, toSelf SendFunc, log *slog.Logger) *Handle {
	return &Handle{
		PID:    pid,
		World:  w,
		Store:  store,
		Log:    log,
		change: change,
		toPeer: toPeer,
		toSelf: toSelf,
	}
}

// SendToPeers enqueues p on the endpoint's outbound-to-peers queue.
func (h *Handle) SendToPeers(p packet.Packet) { h.toPeer(p) }

// SendToClient enqueues p on the endpoint's outbound-to-own-client queue.
func (h *Handle) SendToClient(p packet.Packet) { h.toSelf(p) }

// ChangeState builds the next state via factory (reusing this Handle's PID,
// world, and store), snapshots the current state's View, and asks the
// endpoint to perform the transition.
func (h *Handle) ChangeState(current Instance, factory Factory) error {
	next := factory(h)
	return h.change(next, current.View())
}

// Factory constructs a state from a Handle, the same shape used for both
// the server's initial state and every change_states target.
type Factory func(h *Handle) Instance

// TransitionError signals that a state could not initialize because its
// prior-view contract was unmet. The framework treats this as fatal to the
// endpoint.
type TransitionError struct {
	State  string
	Reason string
}

func (e *TransitionError) Error() string {
	return "state: " + e.State + ": " + e.Reason
}
