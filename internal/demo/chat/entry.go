package chat

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/store"
)

// EntryState is the pre-login state every fresh connection starts in,
// grounded on original_source/server/state/entry.py. It tells the client
// its own PID and the message of the day, polls peers for who is already
// logged in (to reject a double login before it happens), and handles
// Login/Register.
type EntryState struct {
	state.Base

	username               string
	lastFailedLoginAttempt time.Time
	loggedInUsernames      map[string]struct{}
}

// EntryView is handed to the next state on a successful login.
type EntryView struct {
	Username string
}

// NewEntryState builds a fresh EntryState bound to h.
func NewEntryState(h *state.Handle) state.Instance {
	s := &EntryState{
		Base:              state.NewBase(h),
		loggedInUsernames: make(map[string]struct{}),
	}
	s.Register("MyUsername", func(p packet.Packet) { s.handleMyUsername(p.(*MyUsernamePacket)) })
	s.Register("Login", func(p packet.Packet) { s.handleLogin(p.(*LoginPacket)) })
	s.Register("Register", func(p packet.Packet) { s.handleRegister(p.(*RegisterPacket)) })
	return s
}

func (s *EntryState) View() any { return EntryView{Username: s.username} }

func (s *EntryState) OnTransition(previous any) error {
	h := s.Handle()
	h.SendToClient(&PidPacket{Envelope: packet.Envelope{FromPID: h.PID}})

	now := time.Now()
	h.SendToClient(&MotdPacket{
		Envelope: packet.Envelope{FromPID: h.PID},
		Message:  fmt.Sprintf("Welcome! It is currently %s -- what a time to be alive!", now.Format("Monday, January 2 03:04 PM")),
	})

	h.SendToPeers(&WhichUsernamesPacket{
		Envelope: packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{packet.Broadcast}},
	})
	return nil
}

func (s *EntryState) handleMyUsername(p *MyUsernamePacket) {
	s.loggedInUsernames[p.Username] = struct{}{}
}

func (s *EntryState) handleLogin(p *LoginPacket) {
	h := s.Handle()

	if !s.lastFailedLoginAttempt.IsZero() && time.Since(s.lastFailedLoginAttempt) < 5*time.Second {
		h.SendToClient(&DenyPacket{
			Envelope: packet.Envelope{FromPID: h.PID},
			Reason:   "Too many failed login attempts. Please wait a few seconds before trying again.",
		})
		return
	}

	if _, already := s.loggedInUsernames[p.Username]; already {
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "This user is already logged in"})
		return
	}

	sess, err := h.Store.Session()
	if err != nil {
		h.Log.Error("entry: login: acquire session", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}
	defer sess.Release()

	handle, ok := sess.(store.SessionHandle)
	if !ok {
		h.Log.Error("entry: login: session does not expose Users()")
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}

	ctx := context.Background()
	user, err := handle.Users().GetByUsername(ctx, p.Username)
	if err != nil {
		h.Log.Error("entry: login: lookup user", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(p.Password)) != nil {
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Invalid username or password"})
		s.lastFailedLoginAttempt = time.Now()
		return
	}

	s.username = p.Username
	h.SendToClient(&OkPacket{Envelope: packet.Envelope{FromPID: h.PID}})
	if err := h.ChangeState(s, NewLoggedState); err != nil {
		h.Log.Error("entry: login: change state", "error", err)
	}
}

func (s *EntryState) handleRegister(p *RegisterPacket) {
	h := s.Handle()

	sess, err := h.Store.Session()
	if err != nil {
		h.Log.Error("entry: register: acquire session", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}
	defer sess.Release()

	handle, ok := sess.(store.SessionHandle)
	if !ok {
		h.Log.Error("entry: register: session does not expose Users()/Entities()")
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}

	ctx := context.Background()
	existing, err := handle.Users().GetByUsername(ctx, p.Username)
	if err != nil {
		h.Log.Error("entry: register: lookup user", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}
	if existing != nil {
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Username already taken"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.Error("entry: register: hash password", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}

	user, err := handle.Users().Create(ctx, p.Username, string(passwordHash))
	if err != nil {
		h.Log.Error("entry: register: create user", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}

	const roomWidth, roomHeight, gridSize = 320, 240, 16
	randomX := gridSize * (1 + randIntn(roomWidth/gridSize-1))
	randomY := gridSize * (1 + randIntn(roomHeight/gridSize-1))
	imageIdx := randIntn(18)

	if _, err := handle.Entities().Create(ctx, user.ID, p.Username, randomX, randomY, imageIdx); err != nil {
		h.Log.Error("entry: register: create entity", "error", err)
		h.SendToClient(&DenyPacket{Envelope: packet.Envelope{FromPID: h.PID}, Reason: "Internal error"})
		return
	}

	h.SendToClient(&OkPacket{Envelope: packet.Envelope{FromPID: h.PID}})
}
