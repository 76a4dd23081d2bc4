package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/phasesim/phasesim/sim"
)

const (
	writeWait       = 5 * time.Second
	broadcastBuffer = 16
)

// TickFrame is the JSON frame pushed to dashboard clients after each tick.
type TickFrame struct {
	Type        string               `json:"type"` // always "tick"
	Metrics     sim.SystemMetrics    `json:"metrics"`
	Config      sim.SimulationConfig `json:"config"`
	Phase       string               `json:"phase"`
	Advanced    bool                 `json:"advanced,omitempty"`
	ReplayEnded bool                 `json:"replayEnded,omitempty"`
	Arrivals    int                  `json:"arrivals"`
}

type directFrame struct {
	conn *websocket.Conn
	data []byte
}

// Hub fans tick frames out to WebSocket clients and forwards their control
// requests to a Controller. The run loop is the only writer on any
// connection.
type Hub struct {
	upgrader  websocket.Upgrader
	ctrl      Controller // nil = read-only feed
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	direct    chan directFrame
	done      chan struct{}
	latest    []byte
}

var _ sim.Observer = (*Hub)(nil)

// NewHub creates a hub. Call Run before serving connections.
func NewHub(ctrl Controller) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctrl:      ctrl,
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, broadcastBuffer),
		direct:    make(chan directFrame, broadcastBuffer),
		done:      make(chan struct{}),
	}
}

// Run owns the client set until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				_ = conn.Close()
			}
			h.clients = nil
			return
		case conn := <-h.register:
			h.clients[conn] = true
			if h.latest != nil {
				h.write(conn, h.latest)
			}
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				_ = conn.Close()
			}
		case msg := <-h.broadcast:
			h.latest = msg
			for conn := range h.clients {
				h.write(conn, msg)
			}
		case d := <-h.direct:
			if h.clients[d.conn] {
				h.write(d.conn, d.data)
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, msg []byte) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		logrus.Warnf("failed to send frame to WebSocket client: %v", err)
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Observe implements sim.Observer. Never blocks the tick loop: when the
// broadcast buffer is full the frame is dropped.
func (h *Hub) Observe(r sim.TickReport) {
	data, err := json.Marshal(TickFrame{
		Type:        "tick",
		Metrics:     r.Metrics,
		Config:      r.Config,
		Phase:       r.Transition.To.String(),
		Advanced:    r.Transition.Advanced,
		ReplayEnded: r.ReplayEnded,
		Arrivals:    r.Arrivals,
	})
	if err != nil {
		logrus.Errorf("failed to marshal tick frame: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logrus.Warnf("dropping tick %d frame: broadcast buffer full", r.Metrics.Timestamp)
	}
}

// ServeHTTP upgrades the connection and reads control requests until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.done:
			}
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logrus.Warnf("WebSocket error: %v", err)
				}
				return
			}
			// the request context ends with ServeHTTP; advisory calls must outlive it
			h.reply(conn, h.handleControl(context.Background(), message))
		}
	}()
}

func (h *Hub) reply(conn *websocket.Conn, resp ControlResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logrus.Errorf("failed to marshal control response: %v", err)
		return
	}
	select {
	case h.direct <- directFrame{conn: conn, data: data}:
	case <-h.done:
	}
}
