package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"interviewhub/backend/internal/collab"
	"interviewhub/backend/internal/core"
	"interviewhub/backend/internal/signal"
	"interviewhub/backend/internal/store"
)

func newTestController() *Controller {
	engine := collab.NewEngine(store.NewMemory(), 16)
	return NewController(signal.NewCoordinator(), engine, 1<<20, time.Minute)
}

func newTestClient(sid string) *client {
	return &client{sid: core.SessionID(sid), conn: newWSConn(nil, 16)}
}

// drain empties a client's outbound queue and decodes every frame.
func drain(t *testing.T, c *wsConn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case f := <-c.send:
			var m map[string]any
			if err := json.Unmarshal(f, &m); err != nil {
				t.Fatalf("bad outbound frame %s: %v", f, err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func eventTypes(frames []map[string]any) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i], _ = f["type"].(string)
	}
	return out
}

func TestVideoRoomJoinFlow(t *testing.T) {
	ctl := newTestController()
	a := newTestClient("a")
	b := newTestClient("b")

	ctl.handleVideoJoin(a, []byte(`{"type":"join-room","roomId":"R1","userId":"alice"}`))
	got := drain(t, a.conn)
	if len(got) != 2 || got[0]["type"] != "existing-users" || got[1]["type"] != "host-info" {
		t.Fatalf("first joiner events = %v", eventTypes(got))
	}
	if users := got[0]["users"].([]any); len(users) != 0 {
		t.Errorf("first joiner should see nobody, got %v", users)
	}
	if got[1]["hostId"] != "a" {
		t.Errorf("first joiner should be host, got %v", got[1]["hostId"])
	}

	ctl.handleVideoJoin(b, []byte(`{"type":"join-room","roomId":"R1","userId":"bob"}`))
	got = drain(t, b.conn)
	users := got[0]["users"].([]any)
	if len(users) != 1 || users[0].(map[string]any)["id"] != "a" {
		t.Errorf("existing-users for b = %v", users)
	}
	if got[1]["hostId"] != "a" {
		t.Errorf("b told wrong host: %v", got[1]["hostId"])
	}

	got = drain(t, a.conn)
	if len(got) != 1 || got[0]["type"] != "user-connected" || got[0]["id"] != "b" {
		t.Errorf("a should see b connect, got %v", got)
	}
}

func TestSignalRelayWithBufferedCandidate(t *testing.T) {
	ctl := newTestController()
	a := newTestClient("a")
	b := newTestClient("b")
	ctl.handleVideoJoin(a, []byte(`{"type":"join-room","roomId":"R1","userId":"alice"}`))
	ctl.handleVideoJoin(b, []byte(`{"type":"join-room","roomId":"R1","userId":"bob"}`))
	drain(t, a.conn)
	drain(t, b.conn)

	// b trickles a candidate before a's offer even exists
	ctl.handleCandidate(b, []byte(`{"type":"ice-candidate","to":"a","candidate":{"candidate":"candidate:1"}}`))
	if got := drain(t, a.conn); len(got) != 0 {
		t.Fatalf("candidate must be buffered, a got %v", eventTypes(got))
	}

	ctl.handleOffer(a, []byte(`{"type":"offer","to":"b","sdp":{"type":"offer","sdp":"v=0"}}`))
	got := drain(t, b.conn)
	if len(got) != 1 || got[0]["type"] != "offer" || got[0]["from"] != "a" {
		t.Fatalf("b expected relayed offer, got %v", eventTypes(got))
	}

	ctl.handleAnswer(b, []byte(`{"type":"answer","to":"a","sdp":{"type":"answer","sdp":"v=0"}}`))
	got = drain(t, a.conn)
	if len(got) != 2 {
		t.Fatalf("a expected answer plus flushed candidate, got %v", eventTypes(got))
	}
	if got[0]["type"] != "answer" || got[0]["from"] != "b" {
		t.Errorf("first event should be the answer, got %v", got[0])
	}
	if got[1]["type"] != "ice-candidate" || got[1]["from"] != "b" {
		t.Errorf("buffered candidate not flushed, got %v", got[1])
	}
}

func TestAnswerWithoutOfferNotRelayed(t *testing.T) {
	ctl := newTestController()
	a := newTestClient("a")
	b := newTestClient("b")
	ctl.handleVideoJoin(a, []byte(`{"type":"join-room","roomId":"R1","userId":"alice"}`))
	ctl.handleVideoJoin(b, []byte(`{"type":"join-room","roomId":"R1","userId":"bob"}`))
	drain(t, a.conn)
	drain(t, b.conn)

	ctl.handleAnswer(b, []byte(`{"type":"answer","to":"a","sdp":{"type":"answer","sdp":"v=0"}}`))
	if got := drain(t, a.conn); len(got) != 0 {
		t.Errorf("out-of-turn answer must be discarded, a got %v", eventTypes(got))
	}
}

func TestVideoDisconnectTeardown(t *testing.T) {
	ctl := newTestController()
	a := newTestClient("a")
	b := newTestClient("b")
	c := newTestClient("c")
	ctl.handleVideoJoin(a, []byte(`{"type":"join-room","roomId":"R1","userId":"alice"}`))
	ctl.handleVideoJoin(b, []byte(`{"type":"join-room","roomId":"R1","userId":"bob"}`))
	ctl.handleVideoJoin(c, []byte(`{"type":"join-room","roomId":"R1","userId":"carol"}`))
	drain(t, a.conn)
	drain(t, b.conn)
	drain(t, c.conn)

	ctl.teardownVideo(a)

	if others := ctl.VideoRooms.ListOthers(videoKey("R1"), "b"); len(others) != 1 {
		t.Errorf("a still listed after disconnect: %v", others)
	}
	for _, cl := range []*client{b, c} {
		got := drain(t, cl.conn)
		if len(got) != 2 {
			t.Fatalf("%s expected user-disconnected and host-info, got %v", cl.sid, eventTypes(got))
		}
		if got[0]["type"] != "user-disconnected" || got[0]["id"] != "a" {
			t.Errorf("%s missing user-disconnected, got %v", cl.sid, got[0])
		}
		if got[1]["type"] != "host-info" || got[1]["hostId"] != "b" {
			t.Errorf("%s missing re-election notice, got %v", cl.sid, got[1])
		}
	}
}

func TestCollabJoinEditAndLateJoiner(t *testing.T) {
	ctx := context.Background()
	ctl := newTestController()
	a := newTestClient("a")
	b := newTestClient("b")

	join := []byte(`{"type":"join-room","assessmentId":"as1","candidateId":"c1","questionId":"q1","userId":"alice"}`)
	ctl.handleCollabJoin(ctx, a, join)
	got := drain(t, a.conn)
	if len(got) != 1 || got[0]["type"] != "load-initial-state" {
		t.Fatalf("a expected snapshot, got %v", eventTypes(got))
	}
	if got[0]["code"] != "" {
		t.Errorf("fresh room should start empty, got %v", got[0]["code"])
	}

	ctl.handleCodeChange(a, []byte(`{"type":"code-change","code":"x=1","language":"python"}`))
	if got := drain(t, a.conn); len(got) != 0 {
		t.Errorf("sender must not receive its own edit, got %v", eventTypes(got))
	}

	joinB := []byte(`{"type":"join-room","assessmentId":"as1","candidateId":"c1","questionId":"q1","userId":"bob"}`)
	ctl.handleCollabJoin(ctx, b, joinB)
	got = drain(t, b.conn)
	if got[0]["type"] != "load-initial-state" || got[0]["code"] != "x=1" {
		t.Fatalf("late joiner should see applied edit, got %v", got[0])
	}

	ctl.handleCodeChange(b, []byte(`{"type":"code-change","code":"x=2"}`))
	got = drain(t, a.conn)
	// a saw b connect, then b's edit, in that order
	if len(got) != 2 || got[0]["type"] != "user-connected" || got[1]["type"] != "code-update" {
		t.Fatalf("a expected join notice then edit, got %v", eventTypes(got))
	}
	if got[1]["code"] != "x=2" {
		t.Errorf("code-update payload = %v", got[1])
	}
}

func TestWhiteboardUpdateBroadcast(t *testing.T) {
	ctx := context.Background()
	ctl := newTestController()
	a := newTestClient("a")
	b := newTestClient("b")
	join := []byte(`{"type":"join-room","assessmentId":"as1","candidateId":"c1","questionId":"q1","userId":"alice"}`)
	joinB := []byte(`{"type":"join-room","assessmentId":"as1","candidateId":"c1","questionId":"q1","userId":"bob"}`)
	ctl.handleCollabJoin(ctx, a, join)
	ctl.handleCollabJoin(ctx, b, joinB)
	drain(t, a.conn)
	drain(t, b.conn)

	ctl.handleWhiteboardChange(a, []byte(`{"type":"whiteboard-change","whiteboard":[{"id":1,"kind":"rect"}]}`))
	got := drain(t, b.conn)
	if len(got) != 1 || got[0]["type"] != "whiteboard-update" {
		t.Fatalf("b expected whiteboard-update, got %v", eventTypes(got))
	}
	if els := got[0]["whiteboard"].([]any); len(els) != 1 {
		t.Errorf("whiteboard payload = %v", els)
	}
}

func TestCollabDisconnectEvictsEmptyRoom(t *testing.T) {
	ctx := context.Background()
	ctl := newTestController()
	a := newTestClient("a")
	join := []byte(`{"type":"join-room","assessmentId":"as1","candidateId":"c1","questionId":"q1","userId":"alice"}`)
	ctl.handleCollabJoin(ctx, a, join)
	drain(t, a.conn)

	ctl.teardownCollab(a)
	if n := ctl.CollabRooms.RoomCount(); n != 0 {
		t.Errorf("collab room should be destroyed when empty, have %d", n)
	}
}

func TestJoinRejectsMissingRoomData(t *testing.T) {
	ctx := context.Background()
	ctl := newTestController()
	a := newTestClient("a")

	ctl.handleCollabJoin(ctx, a, []byte(`{"type":"join-room","assessmentId":"as1","userId":"alice"}`))
	got := drain(t, a.conn)
	if len(got) != 1 || got[0]["type"] != "error" {
		t.Fatalf("expected error event, got %v", eventTypes(got))
	}
	if a.joined {
		t.Error("client must not be marked joined")
	}
}
