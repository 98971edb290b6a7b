package core

import (
	"errors"
	"sync"
	"testing"

	"interviewhub/backend/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (f *fakeConn) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) received() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func newMember(t *testing.T, user string) (MemberSession, *fakeConn) {
	t.Helper()
	p, err := domain.NewParticipant(domain.UserID(user))
	if err != nil {
		t.Fatalf("NewParticipant(%q): %v", user, err)
	}
	conn := &fakeConn{}
	return NewMemberSession(p, conn), conn
}

func TestJoinCreatesRoomAndReportsFirst(t *testing.T) {
	g := NewRegistry()
	ms, _ := newMember(t, "alice")

	room, first := g.Join("r1", "s1", ms)
	if room == nil {
		t.Fatal("Join returned nil room")
	}
	if !first {
		t.Error("first joiner should be reported as first")
	}

	ms2, _ := newMember(t, "bob")
	_, first = g.Join("r1", "s2", ms2)
	if first {
		t.Error("second joiner reported as first")
	}
	if g.RoomCount() != 1 {
		t.Errorf("expected 1 room, got %d", g.RoomCount())
	}
}

func TestListOthersExcludesSelf(t *testing.T) {
	g := NewRegistry()
	for i, name := range []string{"alice", "bob", "carol"} {
		ms, _ := newMember(t, name)
		g.Join("r1", SessionID(string(rune('a'+i))), ms)
	}

	others := g.ListOthers("r1", "a")
	if len(others) != 2 {
		t.Fatalf("expected 2 others, got %d", len(others))
	}
	seen := map[SessionID]bool{}
	for _, o := range others {
		if o.SID == "a" {
			t.Error("ListOthers returned the caller")
		}
		if seen[o.SID] {
			t.Errorf("duplicate entry %s", o.SID)
		}
		seen[o.SID] = true
	}
}

func TestOthersPreservesJoinOrder(t *testing.T) {
	g := NewRegistry()
	sids := []SessionID{"s1", "s2", "s3", "s4"}
	for i, sid := range sids {
		ms, _ := newMember(t, string(rune('a'+i))+"-user")
		g.Join("r1", sid, ms)
	}

	others := g.ListOthers("r1", "s1")
	want := []SessionID{"s2", "s3", "s4"}
	for i, o := range others {
		if o.SID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, o.SID, want[i])
		}
	}
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	g := NewRegistry()
	ms, _ := newMember(t, "alice")
	g.Join("r1", "s1", ms)

	if remaining := g.Leave("r1", "s1"); remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
	if _, ok := g.Get("r1"); ok {
		t.Error("room should be destroyed when empty")
	}
	if g.RoomCount() != 0 {
		t.Errorf("expected 0 rooms, got %d", g.RoomCount())
	}
}

func TestLeaveReflectedBeforeReturn(t *testing.T) {
	g := NewRegistry()
	ms1, _ := newMember(t, "alice")
	ms2, _ := newMember(t, "bob")
	g.Join("r1", "s1", ms1)
	g.Join("r1", "s2", ms2)

	g.Leave("r1", "s1")
	others := g.ListOthers("r1", "s2")
	if len(others) != 0 {
		t.Errorf("departed member still listed: %v", others)
	}
}

func TestBroadcastSkipsSenderAndReportsDropped(t *testing.T) {
	g := NewRegistry()
	msA, connA := newMember(t, "alice")
	msB, connB := newMember(t, "bob")
	msC, connC := newMember(t, "carol")
	connC.fail = true

	room, _ := g.Join("r1", "a", msA)
	g.Join("r1", "b", msB)
	g.Join("r1", "c", msC)

	res := room.Broadcast("a", Frame(`{"type":"x"}`))
	if res.SentTo != 1 {
		t.Errorf("expected 1 delivery, got %d", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "c" {
		t.Errorf("expected c dropped, got %v", res.Dropped)
	}
	if len(connA.received()) != 0 {
		t.Error("sender received its own broadcast")
	}
	if len(connB.received()) != 1 {
		t.Errorf("expected 1 frame at b, got %d", len(connB.received()))
	}
}

func TestSendToUnknownMember(t *testing.T) {
	g := NewRegistry()
	ms, _ := newMember(t, "alice")
	room, _ := g.Join("r1", "s1", ms)

	if err := room.SendTo("ghost", Frame("{}")); !errors.Is(err, ErrNoSuchMember) {
		t.Errorf("expected ErrNoSuchMember, got %v", err)
	}
}

func TestConcurrentJoinLeaveSameKey(t *testing.T) {
	g := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := SessionID(string(rune('A' + i%26)))
			ms, _ := newMember(t, "user")
			g.Join("r1", sid, ms)
			g.Leave("r1", sid)
		}(i)
	}
	wg.Wait()

	if g.RoomCount() != 0 {
		t.Errorf("expected no rooms after all leaves, got %d", g.RoomCount())
	}
}
