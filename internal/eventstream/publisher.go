// Package eventstream broadcasts scan progress to any number of connected
// websocket watchers — a status page, a second terminal — without the
// scanner itself knowing anything about transport. Adapted from the
// teacher's WebSocketServer/WebSocketConn pair (internal/network), trimmed
// from a generic bidirectional client/server module down to one
// server-side broadcaster.
package eventstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ramfuck/internal/scanner"
)

// Publisher runs a websocket server and fans out every Publish call to all
// currently connected clients.
type Publisher struct {
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
	nextID  uint64
}

func NewPublisher(addr string) *Publisher {
	p := &Publisher{
		clients: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/scan-progress", p.handleUpgrade)
	p.server = &http.Server{Addr: addr, Handler: mux}
	return p
}

// ListenAndServe blocks serving websocket upgrades until the server is
// closed; callers typically run it in its own goroutine.
func (p *Publisher) ListenAndServe() error {
	err := p.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	for id, conn := range p.clients {
		conn.Close()
		delete(p.clients, id)
	}
	p.mu.Unlock()
	return p.server.Close()
}

func (p *Publisher) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.nextID++
	id := fmt.Sprintf("watcher-%d", p.nextID)
	p.clients[id] = conn
	p.mu.Unlock()

	// Watchers are read-only; drain and discard so the connection's read
	// deadline logic (pings) keeps working, and drop the client once the
	// read loop errors out (the other end closed).
	go func() {
		defer p.removeClient(id, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (p *Publisher) removeClient(id string, conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.clients, id)
	p.mu.Unlock()
	conn.Close()
}

// Publish broadcasts one scanner.Progress event to every connected watcher,
// dropping (and disconnecting) any client whose write doesn't keep up
// rather than letting a slow watcher stall the scan.
func (p *Publisher) Publish(ev scanner.Progress) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	p.mu.RLock()
	targets := make(map[string]*websocket.Conn, len(p.clients))
	for id, conn := range p.clients {
		targets[id] = conn
	}
	p.mu.RUnlock()

	for id, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			p.removeClient(id, conn)
		}
	}
}
