package world

import "testing"

type fakeObject struct {
	id    int
	freed bool
}

func (f *fakeObject) Update(delta float64) {}
func (f *fakeObject) Freed() bool          { return f.freed }

type uniqueNPC struct {
	fakeObject
}

func (u *uniqueNPC) UniqueKind() bool { return true }

func TestSet_AddDiscard(t *testing.T) {
	s := NewSet()
	a := &fakeObject{id: 1}
	b := &fakeObject{id: 2}

	s.Add(a)
	s.Add(b)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	s.Discard(a)
	if s.Len() != 1 {
		t.Fatalf("Len() after discard = %d, want 1", s.Len())
	}
}

func TestSet_UniqueKindReplaces(t *testing.T) {
	s := NewSet()
	first := &uniqueNPC{fakeObject{id: 1}}
	second := &uniqueNPC{fakeObject{id: 2}}

	s.Add(first)
	s.Add(second)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (unique kind should replace, not accumulate)", s.Len())
	}

	got, ok := s.GetUnique(first)
	if !ok {
		t.Fatal("GetUnique() = false, want true")
	}
	if got.(*uniqueNPC).id != 2 {
		t.Errorf("GetUnique() returned id %d, want 2 (the most recently added)", got.(*uniqueNPC).id)
	}
}

func TestSet_ReapFreed(t *testing.T) {
	s := NewSet()
	live := &fakeObject{id: 1}
	dead := &fakeObject{id: 2, freed: true}
	s.Add(live)
	s.Add(dead)

	s.ReapFreed()

	if s.Len() != 1 {
		t.Fatalf("Len() after ReapFreed = %d, want 1", s.Len())
	}
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].(*fakeObject).id != 1 {
		t.Errorf("Snapshot() = %+v, want only the live object", snap)
	}
}
