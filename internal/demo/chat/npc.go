package chat

import (
	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/world"
)

// Wanderer is a roaming world.Object NPC: a server-owned endpoint with no
// transport, its position driven by the world-frame loop rather than by
// any client input. It is Unique — only one ever exists in the world set,
// matching original_source/netbound/app/game.py's `unique` decorator used
// on its singleton NPCs.
type Wanderer struct {
	pid       packet.PID
	sendHello func(packet.Packet)
	x, y      float64
	dx, dy    float64
	freed     bool
}

// NewWanderer builds a Wanderer bound to pid, using sendHello to announce
// its position to connected peers as it moves.
func NewWanderer(pid packet.PID, sendHello func(packet.Packet)) *Wanderer {
	return &Wanderer{pid: pid, sendHello: sendHello, dx: 8, dy: 0}
}

func (w *Wanderer) Update(delta float64) {
	w.x += w.dx * delta
	w.y += w.dy * delta

	const bound = 160
	if w.x > bound {
		w.x, w.dx, w.dy = bound, 0, 8
	} else if w.y > bound {
		w.y, w.dx, w.dy = bound, -8, 0
	} else if w.x < -bound {
		w.x, w.dx, w.dy = -bound, 0, -8
	} else if w.y < -bound {
		w.y, w.dx, w.dy = -bound, 8, 0
	}

	w.sendHello(&HelloPacket{
		Envelope: packet.Envelope{FromPID: w.pid, ToPID: []packet.PID{packet.Broadcast}},
		StateView: map[string]any{
			"name": "Wanderer", "x": int(w.x), "y": int(w.y), "image_index": 0,
		},
	})
}

func (w *Wanderer) Freed() bool { return w.freed }

func (w *Wanderer) UniqueKind() bool { return true }

var _ world.Unique = (*Wanderer)(nil)

// WanderState is the NPC's sole state: it never receives client packets
// (its transport is nil) but still needs a state.Instance to satisfy the
// endpoint contract AddNPC requires.
type WanderState struct {
	state.Base
}

// NewWanderState builds the NPC's state, bound to h.
func NewWanderState(h *state.Handle) state.Instance {
	return &WanderState{Base: state.NewBase(h)}
}
