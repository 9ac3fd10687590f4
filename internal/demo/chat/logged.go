package chat

import (
	"context"

	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/store"
)

// LoggedState is the post-login state, grounded on
// original_source/server/core/state/logged.py: it owns the player's
// world position, relays Chat/Move/Hello to and from peers, and tears
// down back to EntryState on its own client's disconnect.
type LoggedState struct {
	state.Base

	name        string
	x, y        int
	imageIdx    int
	entityID    int64
	knownOthers map[packet.PID]presence
}

type presence struct {
	X, Y int
}

// NewLoggedState builds a fresh LoggedState bound to h. OnTransition must
// be called with an EntryView before any handler runs.
func NewLoggedState(h *state.Handle) state.Instance {
	s := &LoggedState{
		Base:        state.NewBase(h),
		knownOthers: make(map[packet.PID]presence),
	}
	s.Register("Chat", func(p packet.Packet) { s.handleChat(p.(*ChatPacket)) })
	s.Register("Disconnect", func(p packet.Packet) { s.handleDisconnect(p.(*packet.DisconnectPacket)) })
	s.Register("Hello", func(p packet.Packet) { s.handleHello(p.(*HelloPacket)) })
	s.Register("Move", func(p packet.Packet) { s.handleMove(p.(*MovePacket)) })
	s.Register("WhichUsernames", func(p packet.Packet) { s.handleWhichUsernames(p.(*WhichUsernamesPacket)) })
	return s
}

func (s *LoggedState) OnTransition(previous any) error {
	view, ok := previous.(EntryView)
	if !ok || view.Username == "" {
		return &state.TransitionError{State: "LoggedState", Reason: "requires a username from EntryState"}
	}
	s.name = view.Username

	h := s.Handle()
	h.SendToPeers(&MyUsernamePacket{
		Envelope: packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{packet.Broadcast}, ExcludeSender: true},
		Username: s.name,
	})

	sess, err := h.Store.Session()
	if err != nil {
		return &state.TransitionError{State: "LoggedState", Reason: "acquire session: " + err.Error()}
	}
	defer sess.Release()

	handle, ok := sess.(store.SessionHandle)
	if !ok {
		return &state.TransitionError{State: "LoggedState", Reason: "session does not expose Users()/Entities()"}
	}

	ctx := context.Background()
	user, err := handle.Users().GetByUsername(ctx, s.name)
	if err != nil || user == nil {
		return &state.TransitionError{State: "LoggedState", Reason: "no account for username " + s.name}
	}

	entity, err := handle.Entities().GetByUserID(ctx, user.ID)
	if err != nil || entity == nil {
		return &state.TransitionError{State: "LoggedState", Reason: "no entity for user " + s.name}
	}

	s.entityID = entity.ID
	s.x = entity.X
	s.y = entity.Y
	s.imageIdx = entity.ImageIdx

	h.SendToPeers(&HelloPacket{
		Envelope:  packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{packet.Broadcast}},
		StateView: s.viewDict(),
	})
	return nil
}

func (s *LoggedState) View() any {
	return LoggedView{Name: s.name, X: s.x, Y: s.y, ImageIdx: s.imageIdx}
}

// LoggedView is what a next state (there is none downstream today, but
// the framework's transition protocol always needs one) would receive.
type LoggedView struct {
	Name     string
	X, Y     int
	ImageIdx int
}

func (s *LoggedState) viewDict() map[string]any {
	return map[string]any{"name": s.name, "x": s.x, "y": s.y, "image_index": s.imageIdx}
}

func (s *LoggedState) handleChat(p *ChatPacket) {
	h := s.Handle()
	if p.FromPID == h.PID {
		broadcast := packet.ResolvesBroadcast(p.ToPID)
		h.SendToPeers(&ChatPacket{
			Envelope: packet.Envelope{FromPID: h.PID, ToPID: p.ToPID, ExcludeSender: broadcast},
			Message:  p.Message,
		})
		h.SendToClient(&ChatPacket{Envelope: packet.Envelope{FromPID: h.PID}, Message: p.Message})
	} else {
		h.SendToClient(&ChatPacket{Envelope: packet.Envelope{FromPID: p.FromPID}, Message: p.Message})
	}
}

func (s *LoggedState) handleDisconnect(p *packet.DisconnectPacket) {
	h := s.Handle()
	if p.FromPID == h.PID {
		h.SendToPeers(&packet.DisconnectPacket{
			Envelope: packet.Envelope{FromPID: h.PID, ToPID: p.ToPID, ExcludeSender: true},
			Reason:   p.Reason,
		})
		return
	}
	h.SendToClient(&packet.DisconnectPacket{Envelope: packet.Envelope{FromPID: p.FromPID}, Reason: p.Reason})
	delete(s.knownOthers, p.FromPID)
}

func (s *LoggedState) handleHello(p *HelloPacket) {
	h := s.Handle()
	h.SendToClient(&HelloPacket{Envelope: packet.Envelope{FromPID: p.FromPID}, StateView: p.StateView})

	if p.FromPID == h.PID {
		return
	}
	if _, known := s.knownOthers[p.FromPID]; known {
		return
	}

	s.knownOthers[p.FromPID] = presence{X: asInt(p.StateView["x"]), Y: asInt(p.StateView["y"])}

	h.SendToPeers(&HelloPacket{
		Envelope:  packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{p.FromPID}},
		StateView: s.viewDict(),
	})
}

func (s *LoggedState) handleMove(p *MovePacket) {
	h := s.Handle()
	h.SendToClient(&MovePacket{Envelope: packet.Envelope{FromPID: p.FromPID}, DX: p.DX, DY: p.DY})

	if p.FromPID == h.PID {
		s.x += p.DX
		s.y += p.DY
		h.SendToPeers(&MovePacket{
			Envelope: packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{packet.Broadcast}, ExcludeSender: true},
			DX:       p.DX,
			DY:       p.DY,
		})

		sess, err := h.Store.Session()
		if err != nil {
			h.Log.Error("logged: move: acquire session", "error", err)
			return
		}
		defer sess.Release()
		if handle, ok := sess.(store.SessionHandle); ok {
			if err := handle.Entities().UpdatePosition(context.Background(), s.entityID, s.x, s.y); err != nil {
				h.Log.Error("logged: move: persist position", "error", err)
			}
		}
		return
	}

	if other, known := s.knownOthers[p.FromPID]; known {
		other.X += p.DX
		other.Y += p.DY
		s.knownOthers[p.FromPID] = other
	}
}

// asInt coerces the numeric types a msgpack map[string]any decode can
// produce (int, int64, uint64, float64, depending on the wire value's
// range) into an int, defaulting to 0 for anything else.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func (s *LoggedState) handleWhichUsernames(p *WhichUsernamesPacket) {
	h := s.Handle()
	h.SendToPeers(&MyUsernamePacket{
		Envelope: packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{p.FromPID}},
		Username: s.name,
	})
}
