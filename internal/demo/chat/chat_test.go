package chat

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/store"
	"github.com/nextlevelbuilder/tickforge/internal/world"
)

// memStore is a minimal in-memory store.Engine + store.SessionHandle, used
// only to exercise the demo states' Login/Register/Move handlers without a
// real database.
type memStore struct {
	users    map[string]*store.User
	entities map[int64]*store.Entity
	nextUser int64
	nextEnt  int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*store.User), entities: make(map[int64]*store.Entity)}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Users() store.Users { return memUsers{m} }

func (m *memStore) Entities() store.Entities { return memEntities{m} }

func (m *memStore) Session() (state.Session, error) { return m, nil }

func (m *memStore) Release() {}

type memUsers struct{ m *memStore }

func (u memUsers) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	return u.m.users[username], nil
}

func (u memUsers) Create(ctx context.Context, username, passwordHash string) (*store.User, error) {
	u.m.nextUser++
	user := &store.User{ID: u.m.nextUser, Username: username, PasswordHash: passwordHash}
	u.m.users[username] = user
	return user, nil
}

type memEntities struct{ m *memStore }

func (e memEntities) GetByUserID(ctx context.Context, userID int64) (*store.Entity, error) {
	for _, ent := range e.m.entities {
		if ent.UserID == userID {
			return ent, nil
		}
	}
	return nil, nil
}

func (e memEntities) Create(ctx context.Context, userID int64, name string, x, y, imageIdx int) (*store.Entity, error) {
	e.m.nextEnt++
	ent := &store.Entity{ID: e.m.nextEnt, UserID: userID, Name: name, X: x, Y: y, ImageIdx: imageIdx}
	e.m.entities[ent.ID] = ent
	return ent, nil
}

func (e memEntities) UpdatePosition(ctx context.Context, entityID int64, x, y int) error {
	if ent, ok := e.m.entities[entityID]; ok {
		ent.X, ent.Y = x, y
	}
	return nil
}

var _ store.Entities = memEntities{}
var _ store.Users = memUsers{}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestHandle(t *testing.T, st *memStore, sentClient, sentPeers *[]packet.Packet) *state.Handle {
	t.Helper()
	toPeer := func(p packet.Packet) { *sentPeers = append(*sentPeers, p) }
	toSelf := func(p packet.Packet) { *sentClient = append(*sentClient, p) }
	change := func(next state.Instance, previousView any) error { return next.OnTransition(previousView) }
	return state.NewHandle(packet.NewPID(), world.NewSet(), st, change, toPeer, toSelf, testLog())
}

func TestRegisterThenLogin(t *testing.T) {
	st := newMemStore()
	var client, peers []packet.Packet

	h := newTestHandle(t, st, &client, &peers)
	entry := NewEntryState(h).(*EntryState)
	if err := entry.OnTransition(nil); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	client, peers = nil, nil

	entry.Dispatch(&RegisterPacket{Envelope: packet.Envelope{FromPID: h.PID}, Username: "alice", Password: "hunter2"})
	if len(client) != 1 {
		t.Fatalf("expected one Ok/Deny reply to Register, got %d", len(client))
	}
	if _, ok := client[0].(*OkPacket); !ok {
		t.Fatalf("Register reply = %T, want *OkPacket", client[0])
	}

	client = nil
	entry.Dispatch(&LoginPacket{Envelope: packet.Envelope{FromPID: h.PID}, Username: "alice", Password: "hunter2"})

	foundOk := false
	for _, p := range client {
		if _, ok := p.(*OkPacket); ok {
			foundOk = true
		}
	}
	if !foundOk {
		t.Fatalf("expected an Ok reply to a correct Login, got %+v", client)
	}
}

func TestLoginWrongPasswordDenied(t *testing.T) {
	st := newMemStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	st.users["bob"] = &store.User{ID: 1, Username: "bob", PasswordHash: string(hash)}

	var client, peers []packet.Packet
	h := newTestHandle(t, st, &client, &peers)
	entry := NewEntryState(h).(*EntryState)
	_ = entry.OnTransition(nil)
	client = nil

	entry.Dispatch(&LoginPacket{Envelope: packet.Envelope{FromPID: h.PID}, Username: "bob", Password: "wrong"})

	if len(client) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(client))
	}
	deny, ok := client[0].(*DenyPacket)
	if !ok {
		t.Fatalf("reply = %T, want *DenyPacket", client[0])
	}
	if deny.Reason == "" {
		t.Error("DenyPacket should carry a reason")
	}
}

func TestLoggedStateRequiresEntryView(t *testing.T) {
	st := newMemStore()
	var client, peers []packet.Packet
	h := newTestHandle(t, st, &client, &peers)
	logged := NewLoggedState(h)

	if err := logged.OnTransition(nil); err == nil {
		t.Fatal("expected a TransitionError when LoggedState receives a nil previous view")
	}
}

func TestChatBroadcastFromOwnClient(t *testing.T) {
	st := newMemStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.DefaultCost)
	st.users["carol"] = &store.User{ID: 1, Username: "carol", PasswordHash: string(hash)}
	st.entities[1] = &store.Entity{ID: 1, UserID: 1, Name: "carol", X: 0, Y: 0, ImageIdx: 0}

	var client, peers []packet.Packet
	h := newTestHandle(t, st, &client, &peers)
	logged := NewLoggedState(h).(*LoggedState)
	if err := logged.OnTransition(EntryView{Username: "carol"}); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	client, peers = nil, nil

	logged.Dispatch(&ChatPacket{
		Envelope: packet.Envelope{FromPID: h.PID, ToPID: []packet.PID{packet.Broadcast}},
		Message:  "hi all",
	})

	if len(peers) != 1 {
		t.Fatalf("expected chat to be forwarded to peers once, got %d", len(peers))
	}
	forwarded := peers[0].(*ChatPacket)
	if !forwarded.ExcludeSender {
		t.Error("a broadcast chat from our own client should exclude the sender")
	}
	if len(client) != 1 {
		t.Fatalf("expected chat to be echoed to our own client once, got %d", len(client))
	}
}
