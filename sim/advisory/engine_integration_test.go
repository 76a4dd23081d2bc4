package advisory

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phasesim/phasesim/sim"
	"github.com/phasesim/phasesim/sim/trace"
)

type emptySource struct{}

func (emptySource) Arrivals(int64, sim.Phase, bool) []trace.Arrival { return nil }

func TestClient_DrivesEngineAudit(t *testing.T) {
	// GIVEN an engine wired to a live advisory endpoint
	server, _ := newServer(t, "/audit", http.StatusOK, sim.AuditResult{IntegrityScore: 77, Recommendation: "ok"})
	e := sim.NewEngine(sim.EngineConfig{
		Config:  sim.DefaultConfig(),
		Source:  emptySource{},
		Advisor: NewClient(server.URL, "", time.Second),
	})

	// WHEN an audit is requested and the clock keeps ticking
	e.RequestAudit(context.Background())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Eventually(t, func() bool {
		now = now.Add(time.Second)
		e.Tick(context.Background(), now)
		return e.LastAudit() != nil
	}, 2*time.Second, 5*time.Millisecond)

	// THEN the audit lands in the decision log
	assert.Equal(t, 77.0, e.LastAudit().IntegrityScore)
	assert.NotEmpty(t, e.Decisions())
}
