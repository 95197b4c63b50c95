package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/daniacca/ecosim/internal/eco"
	"github.com/daniacca/ecosim/internal/eco/notifiers"
)

// maxStepsPerRequest bounds POST /env/{envID}/step?n=.
const maxStepsPerRequest = 10000

// extractEnvID extracts the environment ID from a path like "/env/{envID}/..."
// Returns the environment ID and the remaining path, or empty string if not found
func extractEnvID(path string) (eco.EnvironmentID, string) {
	if !strings.HasPrefix(path, "/env/") {
		return "", ""
	}

	rest := path[5:]

	idx := strings.Index(rest, "/")
	if idx == -1 {
		return eco.EnvironmentID(rest), ""
	}

	return eco.EnvironmentID(rest[:idx]), rest[idx:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /env
// List all simulation IDs
func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	envIDs := s.manager.List()
	ids := make([]string, len(envIDs))
	for i, id := range envIDs {
		ids[i] = string(id)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"environments": ids})
}

// handleSimulationRoutes routes requests to simulation-specific handlers
// Handles paths like /env/{envID}/config, /env/{envID}/step, etc.
func (s *Server) handleSimulationRoutes(w http.ResponseWriter, r *http.Request) {
	envID, remainingPath := extractEnvID(r.URL.Path)
	if envID == "" {
		http.Error(w, "environment ID is required in path: /env/{envID}/...", http.StatusBadRequest)
		return
	}

	switch {
	case remainingPath == "/config" && r.Method == http.MethodPost:
		s.handleConfig(w, r, envID)
		return
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteSimulation(w, r, envID)
		return
	}

	sim, exists := s.manager.Get(envID)
	if !exists {
		http.Error(w, "environment not found", http.StatusNotFound)
		return
	}

	switch {
	case remainingPath == "/step" && r.Method == http.MethodPost:
		s.handleStep(w, r, sim)
	case remainingPath == "/reset" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, sim.Reset())
	case remainingPath == "/start" && r.Method == http.MethodPost:
		s.handleStart(w, r, sim)
	case remainingPath == "/stop" && r.Method == http.MethodPost:
		sim.Stop()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("simulation stopped"))
	case remainingPath == "/stats" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, sim.Stats())
	case remainingPath == "/field" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, sim.FieldView())
	case remainingPath == "/ws" && r.Method == http.MethodGet:
		if err := s.stream.Serve(w, r, envID); err != nil {
			s.logger.Warnf("WebSocket stream failed: env_id=%s error=%v", envID, err)
		}
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// POST /env/{envID}/config
// Body: SimulationConfig JSON; missing fields keep their defaults.
// Creates the simulation, or replaces an existing one with a fresh run.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request, envID eco.EnvironmentID) {
	defer r.Body.Close()

	cfg := eco.DefaultSimulationConfig()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid config json: "+err.Error(), http.StatusBadRequest)
		return
	}

	sim, err := s.manager.Replace(envID, cfg)
	if err != nil {
		http.Error(w, "cannot build simulation: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Simulation configured: env_id=%s name=%s field=%dx%d", envID, cfg.Name, cfg.Depth, cfg.Width)

	writeJSON(w, http.StatusOK, sim.Stats())
}

// DELETE /env/{envID}
func (s *Server) handleDeleteSimulation(w http.ResponseWriter, _ *http.Request, envID eco.EnvironmentID) {
	if err := s.manager.Delete(envID); err != nil {
		s.logger.Warnf("Failed to delete simulation: env_id=%s error=%v", envID, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation deleted"))
}

type stepResponse struct {
	Steps int                 `json:"steps"`
	Stats eco.PopulationStats `json:"stats"`
}

// POST /env/{envID}/step
// Query param: n (default: 1). Stops early once fewer than two species remain.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, sim *eco.Simulator) {
	n := 1
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		v, err := strconv.Atoi(nStr)
		if err != nil || v <= 0 || v > maxStepsPerRequest {
			http.Error(w, "invalid n: must be an integer between 1 and "+strconv.Itoa(maxStepsPerRequest), http.StatusBadRequest)
			return
		}
		n = v
	}

	steps := sim.Simulate(n)
	writeJSON(w, http.StatusOK, stepResponse{Steps: steps, Stats: sim.Stats()})
}

// POST /env/{envID}/start
// Query param: interval in milliseconds (default: the config's
// step_delay_ms, or 100ms when that is zero)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, sim *eco.Simulator) {
	interval := 100 * time.Millisecond
	if ms := sim.Config().StepDelayMS; ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		ms, err := strconv.Atoi(intervalStr)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}

	sim.Run(interval)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation started"))
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type notifierInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// GET /notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	ids := s.notifierMgr.ListNotifiers()

	list := make([]notifierInfo, 0, len(ids))
	for _, id := range ids {
		if notifier, exists := s.notifierMgr.GetNotifier(id); exists {
			list = append(list, notifierInfo{ID: id, Type: notifier.Type()})
		}
	}
	writeJSON(w, http.StatusOK, map[string][]notifierInfo{"notifiers": list})
}

// POST /notifiers
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://...", "every": 10 } }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier eco.Notifier

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := notifiers.NewWebhookNotifier(req.ID, url)

		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}
		// JSON numbers decode as float64.
		if every, ok := req.Config["every"].(float64); ok {
			wh.SetEvery(int64(every))
		}

		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("Notifier registered: id=%s type=%s", req.ID, req.Type)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	notifierID := strings.TrimPrefix(r.URL.Path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}
	if notifierID == streamNotifierID {
		http.Error(w, "notifier "+streamNotifierID+" is built in", http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}
