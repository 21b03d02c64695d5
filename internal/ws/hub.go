package ws

import (
	"encoding/json"
	"sync"
)

// Client is one websocket connection of a console session.
type Client struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub
	mu        sync.Mutex
	closed    bool
}

func NewClient(sessionID string) *Client {
	return &Client{SessionID: sessionID, Send: make(chan []byte, 256)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// trySend queues data unless the client is closed or its buffer is full.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Hub tracks connections per console session.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	bySession map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		bySession: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.bySession[c.SessionID] == nil {
		h.bySession[c.SessionID] = make(map[*Client]struct{})
	}
	h.bySession[c.SessionID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.bySession[c.SessionID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.bySession, c.SessionID)
		}
	}
}

func (h *Hub) sessionClients(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := h.bySession[sessionID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	return clients
}

// BroadcastToSession sends payload to every connection of a session. Slow
// connections drop messages rather than block the sender.
func (h *Hub) BroadcastToSession(sessionID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, c := range h.sessionClients(sessionID) {
		c.trySend(data)
	}
}

// CloseSession disconnects every connection of a session.
func (h *Hub) CloseSession(sessionID string) {
	for _, c := range h.sessionClients(sessionID) {
		c.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
