package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haivivi/voicelock/pkg/audio/capture"
	"github.com/haivivi/voicelock/pkg/audio/mfcc"
	"github.com/haivivi/voicelock/pkg/journal"
	"github.com/haivivi/voicelock/pkg/relay"
	"github.com/haivivi/voicelock/pkg/voicelock"
)

type recordSink struct {
	mu   sync.Mutex
	cmds []relay.Command
}

func (s *recordSink) Send(_ context.Context, cmd relay.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)
	return nil
}

func (s *recordSink) Close() error { return nil }

func (s *recordSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmds)
}

type testEnv struct {
	srv     *httptest.Server
	sink    *recordSink
	journal *journal.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	j := journal.NewMemory()
	mgr := voicelock.NewManager(voicelock.DefaultConfig(), voicelock.WithJournal(j))
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "voicelock_test_total"}))

	sink := &recordSink{}
	s := New(Options{
		Manager:  mgr,
		Journal:  j,
		Registry: reg,
		NewSink:  func(string) relay.Sink { return sink },
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
		mgr.Close()
	})
	return &testEnv{srv: srv, sink: sink, journal: j}
}

func toneWAV(t *testing.T, n int) []byte {
	t.Helper()
	sig := capture.Signal{Samples: make([]float64, n), SampleRate: 16000}
	for i := range sig.Samples {
		sig.Samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}
	data, err := capture.EncodeWAV(sig)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func (e *testEnv) create(t *testing.T) SessionView {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/v1/sessions", "", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d: %s", resp.StatusCode, body)
	}
	var v SessionView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func (e *testEnv) capture(t *testing.T, id string, wav []byte) (int, OutcomeView) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/v1/sessions/"+id+"/captures", "audio/wav", wav)
	var v OutcomeView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode outcome (%d): %v: %s", resp.StatusCode, err, body)
	}
	return resp.StatusCode, v
}

func (e *testEnv) unlock(t *testing.T, id string) {
	t.Helper()
	wav := toneWAV(t, 8000)
	for i := 0; i < 3; i++ {
		if code, out := e.capture(t, id, wav); code != http.StatusOK || out.Verdict != "enrolled" {
			t.Fatalf("enroll %d: %d %+v", i, code, out)
		}
	}
	code, out := e.capture(t, id, wav)
	if code != http.StatusOK || out.Verdict != "accepted" {
		t.Fatalf("verify: %d %+v", code, out)
	}
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestEnv(t)
	v := e.create(t)
	if !v.Locked || v.State != "enrolling(0/3)" {
		t.Fatalf("new session = %+v", v)
	}

	e.unlock(t, v.ID)

	resp, body := e.do(t, http.MethodGet, "/v1/sessions/"+v.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d", resp.StatusCode)
	}
	var got SessionView
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Locked || got.Phase != "unlocked" {
		t.Fatalf("after verify = %+v", got)
	}

	// A further capture is ignored.
	code, out := e.capture(t, v.ID, toneWAV(t, 8000))
	if code != http.StatusOK || out.Verdict != "already_unlocked" {
		t.Fatalf("capture while unlocked: %d %+v", code, out)
	}

	resp, body = e.do(t, http.MethodGet, "/v1/sessions/"+v.ID+"/journal", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("journal: %d", resp.StatusCode)
	}
	var recs []journal.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 5 {
		t.Fatalf("journal has %d records, want 5", len(recs))
	}
	if recs[3].Verdict != "accepted" || recs[3].Score <= 0.75 {
		t.Errorf("verify record = %+v", recs[3])
	}

	resp, body = e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/reset", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Locked || got.Enrolled != 0 {
		t.Fatalf("after reset = %+v", got)
	}

	resp, _ = e.do(t, http.MethodDelete, "/v1/sessions/"+v.ID, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodGet, "/v1/sessions/"+v.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
	left, err := journal.Collect(context.Background(), e.journal, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("journal keeps %d records after delete", len(left))
	}
}

func TestCaptureErrors(t *testing.T) {
	e := newTestEnv(t)
	v := e.create(t)

	code, out := e.capture(t, v.ID, toneWAV(t, 100))
	if code != http.StatusBadRequest || out.Verdict != "retry" || out.Error == "" {
		t.Fatalf("short capture: %d %+v", code, out)
	}

	resp, _ := e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/captures", "audio/ogg", []byte("OggS"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsupported format: %d", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodPost, "/v1/sessions/nope/captures", "audio/wav", toneWAV(t, 8000))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session: %d", resp.StatusCode)
	}
}

func TestCapturePCM(t *testing.T) {
	e := newTestEnv(t)
	v := e.create(t)

	pcm := make([]byte, 2*8000)
	for i := 0; i < 8000; i++ {
		s := int16(16000 * math.Sin(2*math.Pi*440*float64(i)/8000))
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(s >> 8)
	}
	resp, body := e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/captures", "audio/L16; rate=8000", pcm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pcm capture: %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"enrolled"`) {
		t.Fatalf("pcm capture body = %s", body)
	}
}

func TestCommandsGatedByLock(t *testing.T) {
	e := newTestEnv(t)
	v := e.create(t)
	cmd := []byte(`{"channel":"slider1","value":0.5}`)

	resp, _ := e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/commands", "application/json", cmd)
	if resp.StatusCode != http.StatusLocked {
		t.Fatalf("locked command: %d", resp.StatusCode)
	}

	e.unlock(t, v.ID)

	resp, _ = e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/commands", "application/json", cmd)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unlocked command: %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.sink.len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("command never reached the sink")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, _ = e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/commands", "application/json", []byte(`{"value":1}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("command without channel: %d", resp.StatusCode)
	}
}

func TestEventsStream(t *testing.T) {
	e := newTestEnv(t)
	v := e.create(t)

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/v1/sessions/" + v.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev EventView
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "locked" || !ev.Locked || ev.SessionID != v.ID {
		t.Fatalf("initial event = %+v", ev)
	}

	e.unlock(t, v.ID)
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "unlocked" || ev.Locked {
		t.Fatalf("event after verify = %+v", ev)
	}

	e.do(t, http.MethodPost, "/v1/sessions/"+v.ID+"/reset", "", nil)
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "locked" {
		t.Fatalf("event after reset = %+v", ev)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("healthz: %d %s", resp.StatusCode, body)
	}
	resp, body = e.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "voicelock_test_total") {
		t.Fatalf("metrics: %d %s", resp.StatusCode, body)
	}
}

func TestListSessions(t *testing.T) {
	e := newTestEnv(t)
	a := e.create(t)
	b := e.create(t)

	_, body := e.do(t, http.MethodGet, "/v1/sessions", "", nil)
	var views []SessionView
	if err := json.Unmarshal(body, &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d sessions, want 2", len(views))
	}
	ids := map[string]bool{views[0].ID: true, views[1].ID: true}
	if !ids[a.ID] || !ids[b.ID] {
		t.Fatalf("sessions = %+v", views)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("extract: %w", mfcc.ErrSignalTooShort), http.StatusBadRequest},
		{capture.ErrUnsupportedFormat, http.StatusBadRequest},
		{voicelock.ErrProfileEmpty, http.StatusConflict},
		{voicelock.ErrEnrollmentIncomplete, http.StatusConflict},
		{voicelock.ErrEnrollmentComplete, http.StatusConflict},
		{relay.ErrLocked, http.StatusLocked},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
