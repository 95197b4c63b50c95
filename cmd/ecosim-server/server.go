package main

import (
	"net/http"

	"github.com/daniacca/ecosim/internal/eco"
	"github.com/daniacca/ecosim/internal/eco/notifiers"
)

// streamNotifierID is the ID of the built-in WebSocket notifier backing
// GET /env/{envID}/ws.
const streamNotifierID = "stream"

// Server represents the HTTP server for ecosim
type Server struct {
	manager     *eco.SimulationManager
	notifierMgr *eco.NotificationManager
	stream      *notifiers.WebSocketNotifier
	logger      *Logger
}

// NewServer creates a new server instance with the built-in WebSocket
// stream registered.
func NewServer(logger *Logger) *Server {
	notifierMgr := eco.NewNotificationManagerWithLogger(logger)
	stream := notifiers.NewWebSocketNotifier(streamNotifierID)
	if err := notifierMgr.RegisterNotifier(stream); err != nil {
		logger.Errorf("Failed to register stream notifier: %v", err)
	}

	manager := eco.NewSimulationManagerWithLogger(logger)
	manager.SetNotificationManager(notifierMgr)

	return &Server{
		manager:     manager,
		notifierMgr: notifierMgr,
		stream:      stream,
		logger:      logger,
	}
}

// Routes returns the HTTP handler serving every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/env", s.handleListSimulations)
	mux.HandleFunc("/env/", s.handleSimulationRoutes)
	mux.HandleFunc("/notifiers", s.handleNotifiersRoutes)
	mux.HandleFunc("/notifiers/", s.handleNotifiersRoutes)
	return mux
}

// Close stops every simulation and shuts the notifiers down.
func (s *Server) Close() error {
	s.manager.StopAll()
	return s.notifierMgr.Close()
}
