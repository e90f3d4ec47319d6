package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/ilnaes/downstream/internal/auth"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/config"
	"github.com/ilnaes/downstream/internal/replica"
	"github.com/ilnaes/downstream/internal/sprite"
	"github.com/ilnaes/downstream/internal/store"
	"github.com/ilnaes/downstream/internal/transport"
)

func newTestServer(t *testing.T, st store.Store) (*Server, common.Transport) {
	t.Helper()
	cfg := config.Default()
	a, b := transport.Pipe(64)
	e := sprite.NewEngine(nil, cfg.Touch)
	s := New(cfg, e, a, st, nil)
	t.Cleanup(s.work.Stop)
	return s, b
}

func drain(ch <-chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case p := <-ch:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestTickSendsEveryFrame(t *testing.T) {
	s, peer := newTestServer(t, nil)
	s.Tick(0)
	s.Tick(time.Millisecond)

	packets := drain(peer.Inbox())
	if len(packets) != 2 {
		t.Fatalf("got %d packets", len(packets))
	}
	for i, p := range packets {
		f, err := replica.Decode(p)
		if err != nil {
			t.Fatal(err)
		}
		if f.Seq != uint32(i+1) || f.Number != int32(i+1) {
			t.Errorf("packet %d: seq %d frame %d", i, f.Seq, f.Number)
		}
	}
}

func TestRequestWorld(t *testing.T) {
	s, peer := newTestServer(t, nil)
	s.engine.NewSprite(nil)
	s.Tick(0)
	drain(peer.Inbox())

	p, _ := replica.EncodeCommands(1, replica.RequestWorld("wall"))
	peer.Send(p)
	s.Tick(time.Millisecond)

	packets := drain(peer.Inbox())
	if len(packets) != 1 {
		t.Fatalf("got %d packets", len(packets))
	}
	f, err := replica.Decode(packets[0])
	if err != nil {
		t.Fatal(err)
	}
	if !f.World {
		t.Error("requested world not sent")
	}
	if s.sender.State() != replica.Running {
		t.Errorf("sender state = %v", s.sender.State())
	}
}

func TestRemoteTouchTaps(t *testing.T) {
	s, peer := newTestServer(t, nil)
	sp := s.engine.NewSprite(nil)
	sp.SetSize(100, 100)
	var tapped []mgl32.Vec3
	sp.SetTapCallback(func(p mgl32.Vec3) { tapped = append(tapped, p) })

	p, _ := replica.EncodeCommands(1,
		replica.TouchInput(common.InputAdded, 0, 50, 50),
		replica.TouchInput(common.InputRemoved, 0, 52, 50),
	)
	peer.Send(p)
	s.Tick(0)

	if len(tapped) != 1 || tapped[0] != (mgl32.Vec3{52, 50, 0}) {
		t.Errorf("taps = %v", tapped)
	}
}

func TestHTTPTouchAndStatus(t *testing.T) {
	s, _ := newTestServer(t, nil)
	sp := s.engine.NewSprite(nil)
	sp.SetSize(100, 100)
	taps := 0
	sp.SetTapCallback(func(mgl32.Vec3) { taps++ })

	router := s.Router(auth.NewSigner("", time.Hour))

	body := `[{"phase":"added","finger":1,"x":10,"y":10},{"phase":"removed","finger":1,"x":10,"y":10}]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/touch", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("touch code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/touch", strings.NewReader(`[{"phase":"hover"}]`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad phase code = %d", rec.Code)
	}

	s.Tick(0)
	if taps != 1 {
		t.Errorf("taps = %d", taps)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Frame != 1 || st.Sprites != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewBolt(filepath.Join(t.TempDir(), "snap.db"), "snapshots")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close(ctx)

	s, _ := newTestServer(t, st)
	s.cfg.Store.SnapshotInterval = time.Millisecond
	parent := s.engine.NewSprite(nil)
	c := s.engine.NewCircle(parent, 25)
	c.SetPosition(mgl32.Vec3{3, 4, 0})

	s.Tick(time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for s.saving {
		if time.Now().After(deadline) {
			t.Fatal("snapshot never finished")
		}
		time.Sleep(time.Millisecond)
		s.work.Update()
	}

	restored, _ := newTestServer(t, st)
	if err := restored.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if restored.engine.Len() != 2 {
		t.Fatalf("restored %d sprites", restored.engine.Len())
	}
	got, ok := restored.engine.Lookup(c.ID())
	if !ok {
		t.Fatal("circle missing")
	}
	rc, ok := sprite.As[*sprite.Circle](got)
	if !ok || rc.Radius() != 25 || rc.Position() != (mgl32.Vec3{3, 4, 0}) {
		t.Errorf("restored circle %+v", got)
	}
	if got.Parent() == nil || got.Parent().ID() != parent.ID() {
		t.Error("circle lost its parent")
	}

	// new sprites must not reuse restored ids
	if n := restored.engine.NewSprite(nil); n.ID() <= c.ID() {
		t.Errorf("new id %d collides with restored ids", n.ID())
	}
}

func TestHubDropsStalledClient(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	for i := 0; len(h.Clients()) == 0; i++ {
		if i > 100 {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// the client never reads, so its queue fills up
	packet := make([]byte, 256<<10)
	start := time.Now()
	for i := 0; i < 400 && len(h.Clients()) > 0; i++ {
		h.Send(packet)
	}
	if n := len(h.Clients()); n != 0 {
		t.Errorf("%d stalled clients still registered", n)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("broadcast blocked for %v", d)
	}
}
