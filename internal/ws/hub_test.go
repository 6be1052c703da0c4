package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ballsim/backend/internal/sim"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ sim.Broadcaster = (*Hub)(nil)
	_ sim.Notifier    = (*Hub)(nil)
	_ Controller      = (*sim.Session)(nil)
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func fakeClient(h *Hub, simID string, f Format, buffer int) *Client {
	return &Client{hub: h, simID: simID, format: f, send: make(chan []byte, buffer), registered: make(chan struct{})}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatJSON, "json": FormatJSON, "msgpack": FormatMsgpack}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) accepted")
	}
}

func TestHubBroadcastsPerFormat(t *testing.T) {
	h := startHub(t)
	jsonClient := fakeClient(h, "sim_a", FormatJSON, 4)
	mpClient := fakeClient(h, "sim_a", FormatMsgpack, 4)
	other := fakeClient(h, "sim_b", FormatJSON, 4)
	for _, c := range []*Client{jsonClient, mpClient, other} {
		h.add(c)
	}
	waitFor(t, "registration", func() bool { return h.Viewers("sim_a") == 2 && h.Viewers("sim_b") == 1 })

	h.BroadcastFrame(&sim.FrameMessage{
		Type:   TypeFrame,
		SimID:  "sim_a",
		Tick:   7,
		State:  sim.Snapshot{Mode: sim.ModePaused},
		Events: []sim.CollisionEvent{{Kind: sim.KindWall, Intensity: 0.5}},
	})

	var fromJSON sim.FrameMessage
	if err := json.Unmarshal(<-jsonClient.send, &fromJSON); err != nil {
		t.Fatal(err)
	}
	var fromMsgpack sim.FrameMessage
	if err := msgpack.Unmarshal(<-mpClient.send, &fromMsgpack); err != nil {
		t.Fatal(err)
	}
	for name, got := range map[string]sim.FrameMessage{"json": fromJSON, "msgpack": fromMsgpack} {
		if got.Tick != 7 || got.State.Mode != sim.ModePaused || len(got.Events) != 1 || got.Events[0].Kind != sim.KindWall {
			t.Errorf("%s frame = %+v", name, got)
		}
	}
	if len(other.send) != 0 {
		t.Error("frame leaked into another room")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := startHub(t)
	c := fakeClient(h, "sim_a", FormatJSON, 1)
	h.add(c)
	waitFor(t, "registration", func() bool { return h.Viewers("sim_a") == 1 })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.BroadcastFrame(&sim.FrameMessage{Type: TypeFrame, SimID: "sim_a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(c.send) != 1 {
		t.Errorf("buffered = %d, want 1", len(c.send))
	}
}

func TestStoppedNoticeClosesRoom(t *testing.T) {
	h := startHub(t)
	c := fakeClient(h, "sim_a", FormatJSON, 4)
	h.add(c)
	waitFor(t, "registration", func() bool { return h.Viewers("sim_a") == 1 })

	if err := h.Notify(context.Background(), sim.Notice{Type: sim.NoticeStopped, SimID: "sim_a"}); err != nil {
		t.Fatal(err)
	}

	var msg NoticeMessage
	if err := json.Unmarshal(<-c.send, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeNotice || msg.Notice.Type != sim.NoticeStopped {
		t.Errorf("message = %+v", msg)
	}
	if _, open := <-c.send; open {
		t.Error("send channel still open after sim_stopped")
	}
	if h.Viewers("sim_a") != 0 {
		t.Error("room not removed")
	}

	// A late unregister from the read pump must not close the channel twice.
	h.remove(c)
	h.remove(c)
}

type fakeController struct {
	mu      sync.Mutex
	spawned [][2]float64
	resets  int
	mode    sim.Mode
}

func (f *fakeController) Spawn(_ context.Context, x, y float64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawned = append(f.spawned, [2]float64{x, y})
	return len(f.spawned)
}

func (f *fakeController) Delete(context.Context) int { return 0 }

func (f *fakeController) Reset(context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return 0
}

func (f *fakeController) TogglePause(context.Context) sim.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = f.mode.Toggle()
	return f.mode
}

func (f *fakeController) Snapshot() sim.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sim.Snapshot{Mode: f.mode, Balls: make([]sim.BallView, len(f.spawned))}
}

func (f *fakeController) spawnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawned)
}

func dial(t *testing.T, h *Hub, ctrl Controller, opts ServeOptions) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts.Session = ctrl
		Serve(h, w, r, opts)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestServeSendsStateAndGatesControl(t *testing.T) {
	h := startHub(t)
	ctrl := &fakeController{mode: sim.ModeRunning}
	conn := dial(t, h, ctrl, ServeOptions{SimID: "sim_a", Format: FormatJSON})

	if msg := readJSON(t, conn); msg["type"] != TypeFrame {
		t.Fatalf("first message = %v, want frame", msg)
	}

	if err := conn.WriteJSON(ControlMessage{Type: ControlSpawn, X: 100, Y: 100}); err != nil {
		t.Fatal(err)
	}
	if msg := readJSON(t, conn); msg["type"] != TypeError || msg["message"] != "control token required" {
		t.Errorf("reply = %v", msg)
	}

	if err := conn.WriteJSON(ControlMessage{Type: ControlGetState}); err != nil {
		t.Fatal(err)
	}
	if msg := readJSON(t, conn); msg["type"] != TypeFrame {
		t.Errorf("get_state reply = %v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	if msg := readJSON(t, conn); msg["message"] != "invalid message format" {
		t.Errorf("reply = %v", msg)
	}
	if ctrl.spawnCount() != 0 {
		t.Error("viewer without token spawned a ball")
	}
}

func TestServeAppliesMsgpackControl(t *testing.T) {
	h := startHub(t)
	ctrl := &fakeController{mode: sim.ModeRunning}
	conn := dial(t, h, ctrl, ServeOptions{SimID: "sim_a", Format: FormatMsgpack, CanControl: true})

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if messageType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", messageType)
	}
	var first sim.FrameMessage
	if err := msgpack.Unmarshal(data, &first); err != nil || first.Type != TypeFrame || first.SimID != "sim_a" {
		t.Fatalf("first frame = %+v, %v", first, err)
	}

	payload, _ := msgpack.Marshal(&ControlMessage{Type: ControlSpawn, X: 120, Y: 80})
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "spawn", func() bool { return ctrl.spawnCount() == 1 })

	payload, _ = msgpack.Marshal(&ControlMessage{Type: ControlTogglePause})
	conn.WriteMessage(websocket.BinaryMessage, payload)
	payload, _ = msgpack.Marshal(&ControlMessage{Type: ControlGetState})
	conn.WriteMessage(websocket.BinaryMessage, payload)

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var state sim.FrameMessage
	if err := msgpack.Unmarshal(data, &state); err != nil {
		t.Fatal(err)
	}
	if state.State.Mode != sim.ModePaused || len(state.State.Balls) != 1 {
		t.Errorf("state = %+v", state.State)
	}
}

func TestViewerDisconnectLeavesRoom(t *testing.T) {
	h := startHub(t)
	conn := dial(t, h, &fakeController{}, ServeOptions{SimID: "sim_a", Format: FormatJSON})
	waitFor(t, "register", func() bool { return h.Viewers("sim_a") == 1 })

	conn.Close()
	waitFor(t, "unregister", func() bool { return h.Viewers("sim_a") == 0 })
}
