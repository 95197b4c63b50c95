package eco

import (
	"fmt"
	"sort"
	"sync"
)

// EnvironmentID is a unique identifier for a simulation
type EnvironmentID string

// SimulationManager manages multiple simulations, each isolated from others
type SimulationManager struct {
	mu          sync.RWMutex
	simulations map[EnvironmentID]*Simulator
	notifierMgr *NotificationManager
	logger      Logger
}

// NewSimulationManager creates a new simulation manager
func NewSimulationManager() *SimulationManager {
	return NewSimulationManagerWithLogger(NewNoOpLogger())
}

// NewSimulationManagerWithLogger creates a simulation manager whose
// simulations log to logger.
func NewSimulationManagerWithLogger(logger Logger) *SimulationManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &SimulationManager{
		simulations: make(map[EnvironmentID]*Simulator),
		logger:      logger,
	}
}

// SetNotificationManager sets the manager handed to every simulation
// created afterwards.
func (sm *SimulationManager) SetNotificationManager(mgr *NotificationManager) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.notifierMgr = mgr
}

// Create builds a simulation from cfg under id.
// Returns an error if a simulation with that ID already exists
func (sm *SimulationManager) Create(id EnvironmentID, cfg SimulationConfig) (*Simulator, error) {
	if id == "" {
		return nil, fmt.Errorf("simulation id cannot be empty")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.simulations[id]; exists {
		return nil, fmt.Errorf("simulation with id %s already exists", id)
	}

	sim, err := sm.newSimulator(id, cfg, sm.notifierMgr)
	if err != nil {
		return nil, err
	}
	sm.simulations[id] = sim
	sm.logger.Infof("Simulation created: env_id=%s field=%dx%d population=%d", id, cfg.Depth, cfg.Width, len(sim.animals))
	return sim, nil
}

// Replace builds a simulation from cfg and swaps it in under id, stopping
// the one it replaces.
func (sm *SimulationManager) Replace(id EnvironmentID, cfg SimulationConfig) (*Simulator, error) {
	if id == "" {
		return nil, fmt.Errorf("simulation id cannot be empty")
	}

	sm.mu.RLock()
	mgr := sm.notifierMgr
	sm.mu.RUnlock()

	sim, err := sm.newSimulator(id, cfg, mgr)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	old, existed := sm.simulations[id]
	sm.simulations[id] = sim
	sm.mu.Unlock()

	if existed {
		old.Stop()
		sm.logger.Infof("Simulation replaced: env_id=%s", id)
	}
	return sim, nil
}

func (sm *SimulationManager) newSimulator(id EnvironmentID, cfg SimulationConfig, mgr *NotificationManager) (*Simulator, error) {
	sim, err := NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	sim.SetEnvironmentID(id)
	sim.SetLogger(sm.logger)
	sim.SetNotificationManager(mgr)
	return sim, nil
}

// Get retrieves a simulation by ID
// Returns the simulation and a boolean indicating if it was found
func (sm *SimulationManager) Get(id EnvironmentID) (*Simulator, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sim, exists := sm.simulations[id]
	return sim, exists
}

// Delete stops and removes a simulation by ID
// Returns an error if the simulation doesn't exist
func (sm *SimulationManager) Delete(id EnvironmentID) error {
	sm.mu.Lock()
	sim, exists := sm.simulations[id]
	delete(sm.simulations, id)
	sm.mu.Unlock()

	if !exists {
		return fmt.Errorf("simulation with id %s does not exist", id)
	}

	sim.Stop()
	sm.logger.Infof("Simulation deleted: env_id=%s", id)
	return nil
}

// List returns the IDs of all simulations, sorted.
func (sm *SimulationManager) List() []EnvironmentID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]EnvironmentID, 0, len(sm.simulations))
	for id := range sm.simulations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StopAll stops every running simulation.
func (sm *SimulationManager) StopAll() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, sim := range sm.simulations {
		sim.Stop()
	}
}
