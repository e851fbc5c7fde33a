package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/config"
	"github.com/dbehnke/bridge-harness/pkg/logger"
)

// Event types pushed to websocket clients
const (
	EventParticipantUpdated = "participant_updated"
	EventReportSaved        = "report_saved"
	EventActivityStarted    = "activity_started"
	EventActivityFinished   = "activity_finished"
	EventActivityDeleted    = "activity_deleted"
)

// Server is the mock backend. Every request resolves the managers through
// the SDK, so whatever is registered in its override registry answers.
type Server struct {
	config       config.ServerConfig
	sdk          *bridgesdk.SDK
	objects      *bridgesdk.ObjectManager
	clock        Clock
	logger       *logger.Logger
	httpServer   *http.Server
	websocketHub *WebSocketHub
	hubOnce      sync.Once
	startTime    time.Time
	mu           sync.RWMutex
	running      bool
}

// WebSocketHub manages WebSocket connections
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logger.Logger
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // harness clients run on arbitrary local origins
	},
}

// NewServer creates the mock backend. A nil clock uses the real time.
func NewServer(cfg config.ServerConfig, sdk *bridgesdk.SDK, clock Clock, log *logger.Logger) *Server {
	if clock == nil {
		clock = RealClock{}
	}

	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     log.WithComponent("web.hub"),
	}

	return &Server{
		config:       cfg,
		sdk:          sdk,
		objects:      bridgesdk.NewObjectManager(),
		clock:        clock,
		logger:       log.WithComponent("web"),
		websocketHub: hub,
		startTime:    clock.Now(),
	}
}

// Handler returns the routed handler without starting a listener. It starts
// the websocket hub, which closes every client and stops when ctx is done.
// Only the first call's ctx governs the hub.
func (s *Server) Handler(ctx context.Context) http.Handler {
	s.hubOnce.Do(func() {
		go s.websocketHub.run(ctx)
	})
	return s.setupRoutes()
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Mock backend disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("mock backend already running")
	}
	s.running = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting mock backend", logger.String("address", addr))

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down mock backend")
		return s.Stop()
	}
}

// Stop stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false

	if s.httpServer != nil {
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		s.logger.Debug("Draining connections", logger.Duration("timeout", timeout))
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.corsMiddleware)
	api.Use(s.jsonMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/appconfig", s.handleAppConfig).Methods("GET")

	participants := api.PathPrefix("/participants").Subrouter()
	participants.HandleFunc("/self", s.handleGetParticipant).Methods("GET")
	participants.HandleFunc("/self", s.handleUpdateParticipant).Methods("PUT")

	api.HandleFunc("/reports/{identifier}", s.handleGetReport).Methods("GET")
	api.HandleFunc("/reports/{identifier}", s.handleSaveReport).Methods("POST")

	api.HandleFunc("/activities", s.handleListActivities).Methods("GET")
	activities := api.PathPrefix("/activities").Subrouter()
	activities.HandleFunc("/{guid}/start", s.handleStartActivity).Methods("POST")
	activities.HandleFunc("/{guid}/finish", s.handleFinishActivity).Methods("POST")
	activities.HandleFunc("/{guid}", s.handleDeleteActivity).Methods("DELETE")

	router.HandleFunc("/ws", s.handleWebSocket)

	return router
}

func (hub *WebSocketHub) run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			hub.mu.Lock()
			for client := range hub.clients {
				hub.closeLocked(client)
			}
			hub.mu.Unlock()
			return

		case client := <-hub.register:
			hub.mu.Lock()
			hub.clients[client] = true
			hub.mu.Unlock()

		case client := <-hub.unregister:
			hub.mu.Lock()
			if _, ok := hub.clients[client]; ok {
				hub.closeLocked(client)
			}
			hub.mu.Unlock()

		case message := <-hub.broadcast:
			hub.mu.Lock()
			for client := range hub.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					hub.closeLocked(client)
				}
			}
			hub.mu.Unlock()
		}
	}
}

func (hub *WebSocketHub) closeLocked(client *websocket.Conn) {
	delete(hub.clients, client)
	if err := client.Close(); err != nil {
		hub.logger.Warn("failed to close websocket client", logger.Error(err))
	}
}

// clientCount reports how many clients are registered
func (hub *WebSocketHub) clientCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// broadcastEvent queues an event for every websocket client without blocking
func (s *Server) broadcastEvent(messageType string, data any) {
	jsonData, err := json.Marshal(WebSocketMessage{Type: messageType, Data: data})
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket message", logger.Error(err))
		return
	}

	select {
	case s.websocketHub.broadcast <- jsonData:
		s.logger.Debug("Queued event", logger.String("message_type", messageType))
	default:
		s.logger.Warn("WebSocket broadcast channel full, dropping message",
			logger.String("message_type", messageType))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", logger.Error(err))
		return
	}

	s.logger.Debug("New WebSocket connection", logger.String("remote", r.RemoteAddr))

	select {
	case s.websocketHub.register <- conn:
	case <-s.websocketHub.done:
		_ = conn.Close()
		return
	}

	defer func() {
		select {
		case s.websocketHub.unregister <- conn:
		case <-s.websocketHub.done:
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket error", logger.Error(err))
			}
			return
		}
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
