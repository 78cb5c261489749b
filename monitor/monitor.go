// Package monitor implements the Monitoring Pass-Through Surface (C10): a
// deliberately thin, read-only HTTP/WS layer. It is grounded on two shapes
// from the alert-history service: the gorilla/mux-routed handler style of cmd/server's HTTP
// handlers for the REST endpoints, and the WebSocketHub broadcast pattern
// of cmd/server/handlers/silence_ws.go (a mutex-guarded client registry
// with register/unregister, a fan-out broadcast) for the live event stream — generalized here
// from alert-silence events to Change Bus ConfigurationChanged events.
// Every handler only reads through the Controller; none can mutate it.
package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/controller"
)

// upgrader configures the WebSocket handshake for the event stream.
// CheckOrigin is permissive: this surface is read-only, so an
// unauthenticated cross-origin observer can see state but never change it.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ConfigurationChangedEvent mirrors a Change Bus post-change firing, cut
// down to what an external observer is allowed to see.
type ConfigurationChangedEvent struct {
	Type      string    `json:"type"`
	VersionID int64     `json:"version_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Surface wires the read-only HTTP routes and the WebSocket event stream
// on top of a Controller.
type Surface struct {
	ctl    *controller.Controller
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// New builds a Surface over ctl. It subscribes to the Controller's
// post-change events itself, so the caller only needs to mount Routes().
func New(ctl *controller.Controller, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Surface{ctl: ctl, logger: logger, clients: make(map[*websocket.Conn]bool)}
	ctl.SubscribePost(s.onPostChange)
	return s
}

func (s *Surface) onPostChange(old, new *config.BrokerConfiguration, versionID int64) error {
	s.broadcast(ConfigurationChangedEvent{
		Type:      "configuration_changed",
		VersionID: versionID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *Surface) broadcast(event ConfigurationChangedEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.clients {
		go s.sendToClient(conn, event)
	}
}

func (s *Surface) sendToClient(conn *websocket.Conn, event ConfigurationChangedEvent) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(event); err != nil {
		s.logger.Warn("monitor: dropping websocket client after write failure", "error", err)
		s.unregister(conn)
	}
}

func (s *Surface) register(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = true
}

func (s *Surface) unregister(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
}

// Routes returns a mux.Router wiring every read-only endpoint plus the
// event-stream websocket. Mount it directly, or under a prefix via
// router.PathPrefix(...).Handler(surface.Routes()).
func (s *Surface) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/connections", s.handleConnections).Methods(http.MethodGet)
	r.HandleFunc("/persistence_stats", s.handlePersistenceStats).Methods(http.MethodGet)
	r.HandleFunc("/versions", s.handleVersions).Methods(http.MethodGet)
	r.HandleFunc("/ws/events", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

func (s *Surface) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := s.ctl.ProbeInfo(r.Context())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_running"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Surface) handleConnections(w http.ResponseWriter, r *http.Request) {
	info, ok := s.ctl.ProbeInfo(r.Context())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_running"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"connection_count": info.ConnectionCount})
}

func (s *Surface) handlePersistenceStats(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ctl.CurrentVersion()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_running"})
		return
	}
	info, _ := s.ctl.ProbeInfo(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"persistence_enabled": v.Snapshot.Persistence.Enabled,
		"store_dir":           v.Snapshot.Persistence.StoreDir,
		"max_memory":          v.Snapshot.Persistence.MaxMemory,
		"max_store":           v.Snapshot.Persistence.MaxStore,
		"persistence_active":  info.PersistenceActive,
	})
}

func (s *Surface) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.ctl.ListVersions(50, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Surface) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("monitor: websocket upgrade failed", "error", err)
		return
	}
	s.register(conn)
	go s.readPump(conn)
}

// readPump does nothing but keep the connection alive and detect closure;
// this stream is one-directional (server to observer).
func (s *Surface) readPump(conn *websocket.Conn) {
	defer s.unregister(conn)
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
