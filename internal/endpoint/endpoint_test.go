package endpoint

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/nextlevelbuilder/tickforge/internal/packet"
	"github.com/nextlevelbuilder/tickforge/internal/state"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type firstView struct{ Name string }

type firstState struct {
	state.Base
}

func newFirstState(h *state.Handle) state.Instance { return &firstState{Base: state.NewBase(h)} }
func (s *firstState) View() any                     { return firstView{Name: "alice"} }

type secondState struct {
	state.Base
	gotName string
}

func newSecondState(h *state.Handle) state.Instance { return &secondState{Base: state.NewBase(h)} }
func (s *secondState) OnTransition(previous any) error {
	v, ok := previous.(firstView)
	if !ok {
		return &state.TransitionError{State: "second", Reason: "expected firstView"}
	}
	s.gotName = v.Name
	return nil
}

func TestEndpoint_TransitionHandsOffView(t *testing.T) {
	ep := New(packet.NewPID(), NPC, nil, packet.NewCodec(packet.NewRegistry()), nil, nil, func(*Endpoint, string) {}, testLog())

	if err := ep.Start(context.Background(), newFirstState); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first := ep.State().(*firstState)
	if err := ep.State().Handle().ChangeState(first, newSecondState); err != nil {
		t.Fatalf("ChangeState: %v", err)
	}

	second, ok := ep.State().(*secondState)
	if !ok {
		t.Fatalf("current state = %T, want *secondState", ep.State())
	}
	if second.gotName != "alice" {
		t.Errorf("gotName = %q, want %q (previous state's View should be handed to the next)", second.gotName, "alice")
	}
}

type rejectingState struct {
	state.Base
}

func newRejectingState(h *state.Handle) state.Instance { return &rejectingState{Base: state.NewBase(h)} }
func (s *rejectingState) OnTransition(previous any) error {
	return &state.TransitionError{State: "rejecting", Reason: "always rejects"}
}

func TestEndpoint_TransitionErrorIsFatal(t *testing.T) {
	ep := New(packet.NewPID(), NPC, nil, packet.NewCodec(packet.NewRegistry()), nil, nil, func(*Endpoint, string) {}, testLog())

	if err := ep.Start(context.Background(), newRejectingState); err == nil {
		t.Fatal("expected Start to fail when the initial state's OnTransition rejects")
	}
}
