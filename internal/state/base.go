package state

import "github.com/nextlevelbuilder/tickforge/internal/packet"

// HandlerFunc processes one inbound packet of the kind it was registered
// for.
type HandlerFunc func(p packet.Packet)

// Instance is implemented by every concrete state. Concrete states embed
// Base, which supplies Dispatch, a no-op OnTransition/OnDisconnect, and a
// default View; they override whichever of those make sense and register
// handlers in their constructor.
type Instance interface {
	Handle() *Handle
	Dispatch(p packet.Packet)
	View() any
	OnTransition(previous any) error
	OnDisconnect()
}

// Base is the embeddable state scaffold. It owns the per-state dispatch
// table (kind tag -> handler), built once at construction via Register —
// no reflection on packet type names.
type Base struct {
	handle *Handle
	table  map[string]HandlerFunc
}

// NewBase wires a Base to its Handle. Concrete state constructors call
// this first, then Register their handlers.
func NewBase(h *Handle) Base {
	return Base{handle: h, table: make(map[string]HandlerFunc)}
}

// Handle implements Instance.
func (b *Base) Handle() *Handle { return b.handle }

// Register adds a handler for the given packet kind tag. Last registration
// for a given kind wins, mirroring Registry's own idempotent-by-name rule.
func (b *Base) Register(kind string, fn HandlerFunc) {
	b.table[kind] = fn
}

// Dispatch looks up p.Kind() in the table and invokes the handler. A
// packet whose kind has no registered handler in this state is logged and
// dropped.
func (b *Base) Dispatch(p packet.Packet) {
	fn, ok := b.table[p.Kind()]
	if !ok {
		if b.handle.Log != nil {
			b.handle.Log.Warn("no handler for packet kind in this state", "kind", p.Kind())
		}
		return
	}
	fn(p)
}

// OnTransition is the default no-op hook, overridden by states that need
// to consume the previous state's View.
func (b *Base) OnTransition(previous any) error { return nil }

// OnDisconnect is the default no-op hook, overridden by states that need
// to react to endpoint teardown (e.g. broadcasting departure).
func (b *Base) OnDisconnect() {}

// View is the default empty View, overridden by states that expose fields
// to the next state.
func (b *Base) View() any { return nil }
