package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/app"
	"github.com/ayusman/volverse/internal/capture"
	"github.com/ayusman/volverse/internal/detector"
	"github.com/ayusman/volverse/internal/events"
	"github.com/ayusman/volverse/internal/metrics"
	"github.com/ayusman/volverse/internal/server"
	"github.com/ayusman/volverse/internal/store"
	"github.com/ayusman/volverse/testdata"
)

var t0 = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func ticking(step time.Duration) func() time.Time {
	now := t0
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: decode: %v", url, err)
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "volverse.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestE2E_CloakSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := openStore(t)
	sess, err := st.Sessions().Start(store.EffectCloak)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	plate := testdata.PlateFrame()
	defer plate.Close()
	person := testdata.PersonFrame()
	defer person.Close()
	frames := append(testdata.Sequence(plate, 1), testdata.Sequence(person, 6)...)
	defer testdata.CloseAll(frames)

	hands := detector.NewMockDetector()
	hands.SetSequence([][]detector.HandLandmarks{{detector.ThumbsUpLandmarks()}})

	hub := server.NewEventHub(nil)
	buffer := server.NewFrameBuffer()
	m := metrics.New()

	cloak := app.NewCloak(app.CloakConfig{
		Camera:     capture.NewMockCamera(frames, false),
		Hands:      hands,
		Segmenter:  &detector.MockSegmenter{Score: 1, Region: testdata.PersonRect},
		Display:    app.NewHeadlessDisplay(),
		Events:     events.Multi{hub, st.Events().Publisher(sess.ID)},
		Metrics:    m,
		Frames:     buffer,
		Now:        ticking(100 * time.Millisecond),
		FadeFrames: 2,
		Cooldown:   time.Second,
	})

	ts := httptest.NewServer(server.New(server.Config{
		Status:  cloak.Status,
		Frames:  buffer,
		Events:  hub,
		Metrics: m,
		Store:   st,
	}))
	defer ts.Close()
	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := cloak.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := st.Sessions().End(sess.ID, cloak.Status().Frames); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	t.Run("websocket", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var e events.Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if e.Type != events.TypeCloakToggle || e.Detail != "fading_to_invisible" {
			t.Errorf("event = %+v", e)
		}
	})

	t.Run("state", func(t *testing.T) {
		var s server.Status
		getJSON(t, client, ts.URL+"/api/state", &s)
		if s.Effect != "cloak" || s.Phase != "invisible" || s.Frames != 6 || s.Opacity != 1 {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("session", func(t *testing.T) {
		var got struct {
			ID      string `json:"id"`
			Effect  string `json:"effect"`
			EndedAt string `json:"ended_at"`
			Frames  int    `json:"frames"`
		}
		getJSON(t, client, ts.URL+"/api/sessions/"+sess.ID, &got)
		if got.Effect != "cloak" || got.Frames != 6 || got.EndedAt == "" {
			t.Errorf("session = %+v", got)
		}
	})

	t.Run("session events", func(t *testing.T) {
		var got struct {
			Events []struct {
				Type    string `json:"type"`
				Gesture string `json:"gesture"`
				Detail  string `json:"detail"`
			} `json:"events"`
		}
		getJSON(t, client, ts.URL+"/api/sessions/"+sess.ID+"/events", &got)
		if len(got.Events) != 1 {
			t.Fatalf("got %d events, want 1", len(got.Events))
		}
		e := got.Events[0]
		if e.Type != "cloak_toggle" || e.Gesture != "thumbs_up" || e.Detail != "fading_to_invisible" {
			t.Errorf("event = %+v", e)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		for _, want := range []string{
			"volverse_frames_total 6",
			`volverse_triggers_total{outcome="accepted"} 1`,
			"volverse_effect_phase 3",
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})

	t.Run("latest frame", func(t *testing.T) {
		jpeg, seq, _ := buffer.Latest()
		if seq != 6 {
			t.Errorf("seq = %d, want 6", seq)
		}
		if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
			t.Error("latest frame is not a JPEG")
		}
	})
}

func TestE2E_CanvasArtwork(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := openStore(t)
	sess, err := st.Sessions().Start(store.EffectCanvas)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	frames := testdata.Sequence(black, 3)
	defer testdata.CloseAll(frames)

	hands := detector.NewMockDetector()
	hands.SetSequence([][]detector.HandLandmarks{
		{detector.IndexUpLandmarks(0.3, 0.5)},
		{detector.IndexUpLandmarks(0.5, 0.5)},
		{detector.OpenPalmLandmarks()},
	})

	display := app.NewHeadlessDisplay()
	display.QueueKeys(app.KeyNone, app.KeySave)

	board := app.NewCanvas(app.CanvasConfig{
		Camera:     capture.NewMockCamera(frames, false),
		Hands:      hands,
		Display:    display,
		Events:     st.Events().Publisher(sess.ID),
		Now:        ticking(time.Second),
		ArtworkDir: t.TempDir(),
		Artworks:   st.Artworks(),
		SessionID:  sess.ID,
	})
	if err := board.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{Store: st}))
	defer ts.Close()

	var artworks struct {
		Artworks []struct {
			SessionID string `json:"session_id"`
			Path      string `json:"path"`
			Width     int    `json:"width"`
		} `json:"artworks"`
	}
	getJSON(t, ts.Client(), ts.URL+"/api/artworks", &artworks)
	if len(artworks.Artworks) != 1 {
		t.Fatalf("got %d artworks, want 1", len(artworks.Artworks))
	}
	if a := artworks.Artworks[0]; a.SessionID != sess.ID || a.Width != 640 {
		t.Errorf("artwork = %+v", a)
	}

	saved := gocv.IMRead(artworks.Artworks[0].Path, gocv.IMReadColor)
	defer saved.Close()
	if saved.Empty() {
		t.Fatal("saved artwork is unreadable")
	}
	if v := saved.GetVecbAt(240, 256); v[2] != 255 {
		t.Errorf("stroke pixel = %v, want red", v)
	}

	var evs struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	getJSON(t, ts.Client(), ts.URL+"/api/sessions/"+sess.ID+"/events", &evs)
	var types []string
	for _, e := range evs.Events {
		types = append(types, e.Type)
	}
	if strings.Join(types, ",") != "artwork_saved,canvas_clear" {
		t.Errorf("event types = %v, want artwork_saved then canvas_clear", types)
	}
}
