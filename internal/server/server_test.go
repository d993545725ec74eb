package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/session"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	base := t.TempDir()
	in := filepath.Join(base, "import")
	require.NoError(t, os.MkdirAll(in, 0o755))
	for i := 1; i <= 3; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 400, 300))
		img.Set(i, i, color.White)
		f, err := os.Create(filepath.Join(in, fmt.Sprintf("cell_t%d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	cfg := config.Default()
	return New(cfg, session.New(cfg, nil), nil), in
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) State {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "seqcrop_http_requests_total")
}

func TestNothingLoaded(t *testing.T) {
	s, _ := newTestServer(t)

	st := decodeState(t, do(t, s, http.MethodGet, "/api/state", nil))
	assert.False(t, st.Loaded)
	assert.Equal(t, "idle", st.ROIState)

	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/api/roi/arm", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": "/does/not/exist"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/open", map[string]string{}).Code)

	// an empty canvas still renders
	w := do(t, s, http.MethodGet, "/api/preview.png", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestEditAndExport(t *testing.T) {
	s, in := newTestServer(t)

	st := decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))
	assert.True(t, st.Loaded)
	assert.Equal(t, 3, st.Frames)
	assert.Equal(t, "cell_t1", st.Name)
	assert.Equal(t, 400, st.Width)
	assert.Equal(t, 1.0, st.Zoom)

	st = decodeState(t, do(t, s, http.MethodPost, "/api/navigate", map[string]any{"action": "next"}))
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/navigate", map[string]any{"action": "jump"}).Code)

	st = decodeState(t, do(t, s, http.MethodPost, "/api/view", map[string]any{"action": "zoom_in", "x": 0, "y": 0}))
	assert.InDelta(t, 1.2, st.Zoom, 1e-9)
	st = decodeState(t, do(t, s, http.MethodPost, "/api/view", map[string]any{"action": "reset"}))
	assert.Equal(t, 1.0, st.Zoom)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/roi", Rect{X0: 500, Y0: 500, X1: 600, Y1: 600}).Code)
	st = decodeState(t, do(t, s, http.MethodPut, "/api/roi", Rect{X0: 10, Y0: 20, X1: 110, Y1: 70}))
	require.NotNil(t, st.ROI)
	assert.Equal(t, Rect{X0: 10, Y0: 20, X1: 110, Y1: 70}, *st.ROI)
	assert.Equal(t, "defined", st.ROIState)

	w := do(t, s, http.MethodGet, "/api/preview.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(800, 600), img.Bounds().Size())

	out := filepath.Join(t.TempDir(), "out")
	w = do(t, s, http.MethodPost, "/api/export", map[string]any{"kind": "images", "base": "cell", "folder": out})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var started struct{ ID string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.ID)

	var job Job
	require.Eventually(t, func() bool {
		w := do(t, s, http.MethodGet, "/api/export/"+started.ID, nil)
		if w.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
		return job.Status != JobRunning
	}, 10*time.Second, 20*time.Millisecond)

	require.Equal(t, JobDone, job.Status, job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.Frames)
	assert.Equal(t, 3, job.Done)
	assert.FileExists(t, filepath.Join(out, "cell_0003.png"))

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/export/nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, s, http.MethodPost, "/api/export", map[string]any{"kind": "gif", "base": "cell", "fps": 90}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, s, http.MethodPost, "/api/export", map[string]any{"kind": "tarball", "base": "cell"}).Code)
}

func TestOpenRefusedWhileExportRuns(t *testing.T) {
	s, in := newTestServer(t)
	decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))

	s.jobs.add(&Job{ID: "busy", Status: JobRunning, finished: make(chan struct{})})
	w := do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	st := decodeState(t, do(t, s, http.MethodGet, "/api/state", nil))
	assert.True(t, st.Loaded)

	s.jobs.update("busy", func(j *Job) { j.Status = JobDone })
	decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))
}

func TestExportRegistersJobBeforeReplying(t *testing.T) {
	s, in := newTestServer(t)
	decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))
	decodeState(t, do(t, s, http.MethodPut, "/api/roi", Rect{X0: 0, Y0: 0, X1: 50, Y1: 50}))

	w := do(t, s, http.MethodPost, "/api/export", map[string]any{"kind": "gif", "base": "cell", "folder": t.TempDir()})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var started struct{ ID string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	j, ok := s.jobs.get(started.ID)
	require.True(t, ok)
	<-j.finished
	j, _ = s.jobs.get(started.ID)
	assert.Equal(t, JobDone, j.Status, j.Error)
}

func TestExportWithoutROI(t *testing.T) {
	s, in := newTestServer(t)
	decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))

	w := do(t, s, http.MethodPost, "/api/export", map[string]any{"kind": "gif", "base": "cell"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPresetEndpoint(t *testing.T) {
	s, in := newTestServer(t)
	decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))
	decodeState(t, do(t, s, http.MethodPut, "/api/roi", Rect{X0: 5, Y0: 5, X1: 50, Y1: 40}))

	path := filepath.Join(t.TempDir(), "roi.yaml")
	decodeState(t, do(t, s, http.MethodPost, "/api/roi/preset", map[string]string{"action": "save", "path": path, "name": "a"}))
	st := decodeState(t, do(t, s, http.MethodDelete, "/api/roi", nil))
	assert.Nil(t, st.ROI)

	st = decodeState(t, do(t, s, http.MethodPost, "/api/roi/preset", map[string]string{"action": "load", "path": path}))
	require.NotNil(t, st.ROI)
	assert.Equal(t, Rect{X0: 5, Y0: 5, X1: 50, Y1: 40}, *st.ROI)
}

func TestWebsocketDrawsROI(t *testing.T) {
	s, in := newTestServer(t)
	decodeState(t, do(t, s, http.MethodPost, "/api/open", map[string]string{"path": in}))
	decodeState(t, do(t, s, http.MethodPost, "/api/roi/arm", nil))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(ev inputEvent) message {
		require.NoError(t, conn.WriteJSON(ev))
		var m message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	m := send(inputEvent{Type: "press", X: 20, Y: 30})
	require.Equal(t, "state", m.Type)
	assert.Equal(t, "drawing", m.State.ROIState)

	send(inputEvent{Type: "drag", X: 60, Y: 60})
	m = send(inputEvent{Type: "release", X: 120, Y: 90})
	require.NotNil(t, m.State.ROI)
	assert.Equal(t, Rect{X0: 20, Y0: 30, X1: 120, Y1: 90}, *m.State.ROI)
	assert.False(t, m.State.Armed)

	m = send(inputEvent{Type: "wheel", X: 0, Y: 0, Delta: 1})
	assert.InDelta(t, 1.2, m.State.Zoom, 1e-9)

	m = send(inputEvent{Type: "teleport"})
	assert.Equal(t, "error", m.Type)
}
