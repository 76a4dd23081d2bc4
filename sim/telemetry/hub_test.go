package telemetry

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phasesim/phasesim/sim"
	"github.com/phasesim/phasesim/sim/trace"
)

// fakeController records the control calls it receives.
type fakeController struct {
	mu      sync.Mutex
	calls   []string
	phase   sim.Phase
	patch   sim.ConfigPatch
	traceID string
	err     error
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeController) UpdateConfig(p sim.ConfigPatch) error {
	f.record("update_config")
	f.mu.Lock()
	f.patch = p
	f.mu.Unlock()
	return f.err
}

func (f *fakeController) SelectPhase(p sim.Phase) error {
	f.record("select_phase")
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
	return f.err
}

func (f *fakeController) StartRecording() error {
	f.record("start_recording")
	return f.err
}

func (f *fakeController) StopRecording(now time.Time) (*trace.TraceRecord, error) {
	f.record("stop_recording")
	if f.err != nil {
		return nil, f.err
	}
	return &trace.TraceRecord{ID: "rec-1", CreatedAt: now}, nil
}

func (f *fakeController) SelectTrace(id string) error {
	f.record("select_trace")
	f.mu.Lock()
	f.traceID = id
	f.mu.Unlock()
	return f.err
}

func (f *fakeController) RequestAudit(context.Context)        { f.record("audit") }
func (f *fakeController) RequestPathological(context.Context) { f.record("pathological") }

func startHub(t *testing.T, ctrl Controller) (*Hub, string) {
	t.Helper()
	h := NewHub(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	server := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return h, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, req ControlRequest) ControlResponse {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var resp ControlResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestHub_BroadcastsTickFrames(t *testing.T) {
	// GIVEN a connected client (the ack proves it is registered)
	h, url := startHub(t, &fakeController{})
	conn := dial(t, url)
	require.Equal(t, "ack", send(t, conn, ControlRequest{Type: "start_recording"}).Type)

	// WHEN a tick is observed
	h.Observe(sampleReport())

	// THEN the client receives the frame
	var frame TickFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "tick", frame.Type)
	assert.Equal(t, int64(7), frame.Metrics.Timestamp)
	assert.Equal(t, "CASCADING_FAILURE", frame.Phase)
	assert.Equal(t, 3, frame.Arrivals)
	assert.True(t, frame.Config.IsRecording)
}

func TestHub_NewClientGetsLatestFrame(t *testing.T) {
	h, url := startHub(t, nil)
	h.Observe(sampleReport())

	conn := dial(t, url)

	var frame TickFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, int64(7), frame.Metrics.Timestamp)
}

func TestHub_ControlRequests(t *testing.T) {
	ctrl := &fakeController{}
	_, url := startHub(t, ctrl)
	conn := dial(t, url)

	resp := send(t, conn, ControlRequest{Type: "select_phase", Phase: "ZERO_ERROR_AUDIT"})
	assert.Equal(t, "ack", resp.Type)

	resp = send(t, conn, ControlRequest{Type: "update_config", Config: &sim.ConfigPatch{ConcurrencyLimit: sim.IntPtr(4)}})
	assert.Equal(t, "ack", resp.Type)

	resp = send(t, conn, ControlRequest{Type: "stop_recording"})
	assert.Equal(t, "rec-1", resp.TraceID)

	resp = send(t, conn, ControlRequest{Type: "select_trace", TraceID: "rec-1"})
	assert.Equal(t, "ack", resp.Type)

	send(t, conn, ControlRequest{Type: "audit"})
	send(t, conn, ControlRequest{Type: "pathological"})

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []string{"select_phase", "update_config", "stop_recording", "select_trace", "audit", "pathological"}, ctrl.calls)
	assert.Equal(t, sim.PhaseZeroErrorAudit, ctrl.phase)
	require.NotNil(t, ctrl.patch.ConcurrencyLimit)
	assert.Equal(t, 4, *ctrl.patch.ConcurrencyLimit)
	assert.Equal(t, "rec-1", ctrl.traceID)
}

func TestHub_ControlErrors(t *testing.T) {
	ctrl := &fakeController{err: errors.New("boom")}
	_, url := startHub(t, ctrl)
	conn := dial(t, url)

	tests := []struct {
		name string
		req  ControlRequest
		want string
	}{
		{"unknown type", ControlRequest{Type: "reboot"}, "unknown control request"},
		{"bad phase", ControlRequest{Type: "select_phase", Phase: "WARMUP"}, "WARMUP"},
		{"missing patch", ControlRequest{Type: "update_config"}, "missing config"},
		{"controller error", ControlRequest{Type: "start_recording"}, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, conn, tt.req)
			assert.Equal(t, "error", resp.Type)
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestHub_MalformedJSON(t *testing.T) {
	_, url := startHub(t, &fakeController{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	var resp ControlResponse
	require.NoError(t, conn.ReadJSON(&resp))

	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Error, "invalid request")
}

func TestHub_ReadOnlyFeed(t *testing.T) {
	_, url := startHub(t, nil)
	conn := dial(t, url)

	resp := send(t, conn, ControlRequest{Type: "start_recording"})

	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "read-only feed", resp.Error)
}

func TestHub_Observe_NeverBlocks(t *testing.T) {
	// no Run loop: the buffer fills and further frames are dropped
	h := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 4*broadcastBuffer; i++ {
			h.Observe(sampleReport())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked on a full broadcast buffer")
	}
	assert.Len(t, h.broadcast, broadcastBuffer)
}

func TestHub_DrivesEngine(t *testing.T) {
	// GIVEN a hub controlling a real engine
	e := sim.NewEngine(sim.EngineConfig{Config: sim.DefaultConfig(), Source: scriptedSource{}})
	_, url := startHub(t, e)
	conn := dial(t, url)

	// WHEN the dashboard selects a phase
	resp := send(t, conn, ControlRequest{Type: "select_phase", Phase: "RESOURCE_STARVATION"})

	// THEN the engine enters it with its delta
	assert.Equal(t, "ack", resp.Type)
	assert.Equal(t, sim.PhaseResourceStarvation, e.Phase())
	assert.False(t, e.Config().RetriesEnabled)
}
