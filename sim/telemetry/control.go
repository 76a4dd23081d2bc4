package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phasesim/phasesim/sim"
	"github.com/phasesim/phasesim/sim/trace"
)

// Controller is the operator surface a dashboard may drive. *sim.Engine
// satisfies it.
type Controller interface {
	UpdateConfig(patch sim.ConfigPatch) error
	SelectPhase(p sim.Phase) error
	StartRecording() error
	StopRecording(now time.Time) (*trace.TraceRecord, error)
	SelectTrace(id string) error
	RequestAudit(ctx context.Context)
	RequestPathological(ctx context.Context)
}

var _ Controller = (*sim.Engine)(nil)

// ControlRequest is a dashboard command.
type ControlRequest struct {
	Type    string           `json:"type"`
	Phase   string           `json:"phase,omitempty"`
	TraceID string           `json:"traceId,omitempty"`
	Config  *sim.ConfigPatch `json:"config,omitempty"`
}

// ControlResponse acknowledges one ControlRequest.
type ControlResponse struct {
	Type    string `json:"type"` // "ack" or "error"
	Request string `json:"request"`
	Error   string `json:"error,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

func (h *Hub) handleControl(ctx context.Context, message []byte) ControlResponse {
	var req ControlRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return ControlResponse{Type: "error", Error: fmt.Sprintf("invalid request: %v", err)}
	}
	traceID, err := h.apply(ctx, req)
	if err != nil {
		logrus.Debugf("control %q rejected: %v", req.Type, err)
		return ControlResponse{Type: "error", Request: req.Type, Error: err.Error()}
	}
	return ControlResponse{Type: "ack", Request: req.Type, TraceID: traceID}
}

func (h *Hub) apply(ctx context.Context, req ControlRequest) (string, error) {
	if h.ctrl == nil {
		return "", fmt.Errorf("read-only feed")
	}
	switch req.Type {
	case "update_config":
		if req.Config == nil {
			return "", fmt.Errorf("update_config: missing config")
		}
		return "", h.ctrl.UpdateConfig(*req.Config)
	case "select_phase":
		p, err := sim.ParsePhase(req.Phase)
		if err != nil {
			return "", err
		}
		return "", h.ctrl.SelectPhase(p)
	case "start_recording":
		return "", h.ctrl.StartRecording()
	case "stop_recording":
		rec, err := h.ctrl.StopRecording(time.Now())
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	case "select_trace":
		return req.TraceID, h.ctrl.SelectTrace(req.TraceID)
	case "audit":
		h.ctrl.RequestAudit(ctx)
		return "", nil
	case "pathological":
		h.ctrl.RequestPathological(ctx)
		return "", nil
	default:
		return "", fmt.Errorf("unknown control request %q", req.Type)
	}
}
