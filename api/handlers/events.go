package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RoshiKK/emergency-response-api/models"
)

// IncidentEvent is the frame pushed to every connected dashboard whenever
// an incident changes.
type IncidentEvent struct {
	Action   string          `json:"action"`
	Incident models.Incident `json:"incident"`
	SentAt   time.Time       `json:"sentAt"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventHub fans incident events out to connected websocket clients. A slow
// client is dropped rather than allowed to block the broadcast loop.
type EventHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan IncidentEvent
}

// NewEventHub creates an idle hub. Call Run in a goroutine to start it.
func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan IncidentEvent, 64),
	}
}

// Run owns the client set. All membership changes and writes go through
// this loop so conns are never written concurrently.
func (h *EventHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case event := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					zap.S().With(err).Warn("dropping slow websocket client")
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// ServeWS upgrades the request and parks the connection in the hub. The
// read loop exists only to notice the peer going away.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().With(err).Error("failed to upgrade websocket")
		return
	}
	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BroadcastIncident queues an event without blocking the caller. Safe on a
// nil hub so handlers can be exercised without a running loop.
func (h *EventHub) BroadcastIncident(action string, incident models.Incident) {
	if h == nil {
		return
	}
	event := IncidentEvent{Action: action, Incident: incident, SentAt: time.Now()}
	select {
	case h.broadcast <- event:
	default:
		zap.S().Warn("event buffer full, dropping incident event")
	}
}
