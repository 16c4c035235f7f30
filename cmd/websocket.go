package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteDeadline = 5 * time.Second
	wsPingInterval  = 15 * time.Second
	wsReadDeadline  = 120 * time.Second
)

type wsEvent struct {
	agentID int
	payload any
}

type wsClient struct {
	agentID int
	conn    *websocket.Conn
}

type wsUnreg struct {
	agentID int
	conn    *websocket.Conn
}

// StatusHub streams referral and payment status events to the agent's open
// dashboards. All map access happens in Run.
type StatusHub struct {
	clients    map[int][]*websocket.Conn
	events     chan wsEvent
	register   chan wsClient
	unregister chan wsUnreg
}

func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients:    make(map[int][]*websocket.Conn),
		events:     make(chan wsEvent, 64),
		register:   make(chan wsClient),
		unregister: make(chan wsUnreg),
	}
}

// Broadcast never blocks the settlement path: if the hub is saturated the
// event is dropped, the dashboard re-reads on reconnect.
func (h *StatusHub) Broadcast(agentID int, event any) {
	select {
	case h.events <- wsEvent{agentID: agentID, payload: event}:
	default:
	}
}

func (h *StatusHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c.agentID] = append(h.clients[c.agentID], c.conn)

		case u := <-h.unregister:
			conns := h.clients[u.agentID]
			for i, conn := range conns {
				if conn == u.conn {
					_ = conn.Close()
					h.clients[u.agentID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(h.clients[u.agentID]) == 0 {
				delete(h.clients, u.agentID)
			}

		case ev := <-h.events:
			conns := h.clients[ev.agentID]
			alive := conns[:0]
			for _, conn := range conns {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteJSON(ev.payload); err != nil {
					_ = conn.Close()
					continue
				}
				alive = append(alive, conn)
			}
			if len(alive) == 0 {
				delete(h.clients, ev.agentID)
			} else {
				h.clients[ev.agentID] = alive
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (app *application) serveWS(w http.ResponseWriter, r *http.Request) {
	agentID, err := strconv.Atoi(r.URL.Query().Get(":agent_id"))
	if err != nil {
		http.Error(w, "invalid agent_id", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.errorLog.Printf("ws upgrade: %v", err)
		return
	}

	app.statusHub.register <- wsClient{agentID: agentID, conn: conn}

	go func() {
		defer func() {
			app.statusHub.unregister <- wsUnreg{agentID: agentID, conn: conn}
		}()
		conn.SetReadLimit(1 << 20)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		})
		pinger := time.NewTicker(wsPingInterval)
		defer pinger.Stop()
		go func() {
			for range pinger.C {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if conn.WriteMessage(websocket.PingMessage, nil) != nil {
					return
				}
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
