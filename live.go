/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/grimoire/games"
)

const writeWait = 10 * time.Second

// Messages sent to clients

// SessionMessage is sent to everyone whenever the game changes.
type SessionMessage struct {
	Type    string        `json:"type"` // "session"
	Session games.Summary `json:"session"`
}

// RoleMessage is sent only to a player who has been handed a character.
type RoleMessage struct {
	Type string   `json:"type"` // "role"
	Role roleView `json:"role"`
}

// OverviewMessage is sent only to the host.
type OverviewMessage struct {
	Type     string         `json:"type"` // "host_overview"
	Overview games.Overview `json:"overview"`
}

type Client struct {
	conn          *websocket.Conn
	send          chan any
	participantID string
}

// Hub fans game updates out to every client watching one game.
type Hub struct {
	id      string
	mgr     *games.Manager
	mu      sync.Mutex
	clients map[*Client]bool
}

func newHub(gameID string, mgr *games.Manager) *Hub {
	return &Hub{
		id:      gameID,
		mgr:     mgr,
		clients: make(map[*Client]bool),
	}
}

// messagesFor builds what participantID may see of s.
func messagesFor(s games.Session, participantID string) []any {
	msgs := []any{SessionMessage{Type: "session", Session: s.Summary()}}

	if c, ok := s.PlayerRole(participantID); ok {
		msgs = append(msgs, RoleMessage{Type: "role", Role: newRoleView(c)})
	}

	if ov, err := s.HostOverview(participantID); err == nil {
		msgs = append(msgs, OverviewMessage{Type: "host_overview", Overview: ov})
	}

	return msgs
}

// sendLocked queues msgs for c, dropping c if its buffer is full.
// It assumes h.mu is already held.
func (h *Hub) sendLocked(c *Client, msgs []any) {
	for _, msg := range msgs {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			return
		}
	}
}

// register adds c and sends it the current state. The session is read
// under h.mu so no update published after this point can be missed.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.mgr.Session(h.id)
	if err != nil {
		return false
	}

	h.clients[c] = true
	h.sendLocked(c, messagesFor(s, c.participantID))

	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.mgr.Session(h.id)
	if err != nil {
		return
	}

	for c := range h.clients {
		h.sendLocked(c, messagesFor(s, c.participantID))
	}
}

// closeAll disconnects all clients of this hub.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// liveUpdates holds a hub per game ID, created when the first client connects.
type liveUpdates struct {
	mu   sync.Mutex
	hubs map[string]*Hub
	mgr  *games.Manager
}

func newLiveUpdates(mgr *games.Manager) *liveUpdates {
	return &liveUpdates{
		hubs: make(map[string]*Hub),
		mgr:  mgr,
	}
}

func (lu *liveUpdates) hub(gameID string) *Hub {
	lu.mu.Lock()
	defer lu.mu.Unlock()

	if hub, ok := lu.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID, lu.mgr)
	lu.hubs[gameID] = hub
	return hub
}

// publish pushes the current state of a game to everyone watching it.
func (lu *liveUpdates) publish(gameID string) {
	lu.mu.Lock()
	hub, ok := lu.hubs[gameID]
	lu.mu.Unlock()

	if ok {
		hub.broadcast()
	}
}

// close drops the hub for a game that has ended.
func (lu *liveUpdates) close(gameID string) {
	lu.mu.Lock()
	hub, ok := lu.hubs[gameID]
	delete(lu.hubs, gameID)
	lu.mu.Unlock()

	if ok {
		hub.closeAll()
	}
}

func (lu *liveUpdates) closeAll() {
	lu.mu.Lock()
	hubs := lu.hubs
	lu.hubs = make(map[string]*Hub)
	lu.mu.Unlock()

	for _, hub := range hubs {
		hub.closeAll()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveLive upgrades to a WebSocket for :gameid. The participant query
// parameter decides which private messages the client receives.
func serveLive(cfg *Config, mgr *games.Manager, live *liveUpdates) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")

		if _, err := mgr.Session(gameID); err != nil {
			serveError(cfg, w, r, err, nil)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:          conn,
			send:          make(chan any, 8),
			participantID: r.URL.Query().Get("participant"),
		}

		hub := live.hub(gameID)
		if !hub.register(client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Live updates for %s to %s", gameID, realIP(r))

		go client.writePump()
		client.readPump(hub)
	}
}

// readPump discards anything the client sends; it only exists to notice
// when the connection goes away.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	// The server's read deadline survives the upgrade.
	_ = c.conn.SetReadDeadline(time.Time{})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
