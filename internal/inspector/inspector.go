// Package inspector is an optional, off-by-default websocket endpoint
// that streams an Interp's fiber/VM state for interactive debugging of
// a long-running script, using an upgrade-and-broadcast pattern to push
// interpreter introspection frames to a connected debugger instead of
// arbitrary script-level socket traffic.
package inspector

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"luby"
)

// Snapshot is one frame of interpreter state pushed to every connected
// client: the read-only meters plus the pending error, if any. It
// deliberately stops short of the language's own `inspect` formatting
// — values are rendered with Go's default %v.
type Snapshot struct {
	InterpID     string `json:"interp_id"`
	Instructions int64  `json:"instructions"`
	Allocations  int64  `json:"allocations"`
	MemoryBytes  int64  `json:"memory_bytes"`
	LastError    string `json:"last_error,omitempty"`
}

// Server broadcasts periodic Snapshots of one Interp to every connected
// websocket client. It is never constructed implicitly; a host wires it
// in explicitly the way it would wire any other optional debug surface.
type Server struct {
	ID       uuid.UUID
	interp   *luby.Interp
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

// NewServer wraps interp for introspection. How often a Snapshot is
// pushed to connected clients is set by Serve's period argument.
func NewServer(interp *luby.Interp) *Server {
	return &Server{
		ID:     uuid.New(),
		interp: interp,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[string]*websocket.Conn{},
	}
}

// Handler is the http.HandlerFunc a host mounts at its chosen path
// (e.g. "/debug/luby") to accept inspector connections.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := uuid.New().String()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
		conn.Close()
	}()

	// Drain (and discard) any client→server traffic so the read side
	// of the socket doesn't back up; the protocol is push-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes one Snapshot to every currently-connected client,
// dropping any connection that errors (a debug-only channel tolerates
// losing a slow or dead reader rather than blocking on it).
func (s *Server) Broadcast() {
	snap := s.snapshot()
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, c := range s.clients {
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			go func(id string) { s.drop(id) }(id)
		}
	}
}

func (s *Server) drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok {
		c.Close()
		delete(s.clients, id)
	}
}

func (s *Server) snapshot() Snapshot {
	snap := Snapshot{
		InterpID:     s.interp.ID.String(),
		Instructions: s.interp.InstructionCount(),
		Allocations:  s.interp.AllocationCount(),
		MemoryBytes:  s.interp.MemoryUsage(),
	}
	if le := s.interp.LastError(); le != nil {
		snap.LastError = le.Format()
	}
	return snap
}

// Serve starts an HTTP server exposing the inspector at addr and
// broadcasts a Snapshot to connected clients every period until stop is
// closed. It blocks; callers run it in its own goroutine.
func Serve(interp *luby.Interp, addr string, period time.Duration, stop <-chan struct{}) error {
	srv := NewServer(interp)
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/luby", srv.Handler)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.Broadcast()
			case <-stop:
				httpSrv.Close()
				return
			}
		}
	}()

	log.Printf("inspector %s listening on %s", srv.ID, addr)
	err := httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return fmt.Errorf("inspector: %w", err)
}
