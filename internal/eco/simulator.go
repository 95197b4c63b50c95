package eco

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// Simulator drives one ecosystem: it seeds the field, steps the population
// and publishes a StepEvent after every step.
type Simulator struct {
	mu sync.Mutex

	id      EnvironmentID
	cfg     SimulationConfig
	rand    *rand.Rand
	field   *Field
	animals []Animal
	step    int64
	stats   *FieldStats

	lastBirths map[SpeciesName]int
	lastDeaths map[DeathCause]int

	logger      Logger
	notifierMgr *NotificationManager

	stopCh    chan struct{}
	isRunning bool
}

// NewSimulator validates cfg, builds the field and seeds the initial
// population.
func NewSimulator(cfg SimulationConfig) (*Simulator, error) {
	if err := ValidateSimulationConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}

	rng := NewRandom(cfg.Seed)
	s := &Simulator{
		cfg:        cfg,
		rand:       rng,
		field:      NewField(cfg.Depth, cfg.Width, rng),
		stats:      NewFieldStats(),
		lastBirths: make(map[SpeciesName]int),
		lastDeaths: make(map[DeathCause]int),
		logger:     NewNoOpLogger(),
		stopCh:     make(chan struct{}),
	}
	s.populate()
	return s, nil
}

// SetEnvironmentID sets the identifier reported in stats and step events.
func (s *Simulator) SetEnvironmentID(id EnvironmentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// SetLogger sets the logger used by the simulator.
func (s *Simulator) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetNotificationManager sets the manager that receives step events.
func (s *Simulator) SetNotificationManager(mgr *NotificationManager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifierMgr = mgr
}

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() SimulationConfig {
	return s.cfg
}

// Field returns the simulated field. It must not be mutated while the
// simulator is running.
func (s *Simulator) Field() *Field {
	return s.field
}

// CurrentStep returns the number of steps taken since the last reset.
func (s *Simulator) CurrentStep() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Animals returns a copy of the live population.
func (s *Simulator) Animals() []Animal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Animal, len(s.animals))
	copy(out, s.animals)
	return out
}

// Add places an extra animal of the given species at loc. The cell must be
// empty.
func (s *Simulator) Add(species SpeciesName, loc Location, randomAge bool) (Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.field.InBounds(loc) {
		return nil, fmt.Errorf("add %s at %s: %w", species, loc, ErrOutOfBounds)
	}
	if s.field.ObjectAt(loc) != nil {
		return nil, fmt.Errorf("add %s at %s: %w", species, loc, ErrOccupied)
	}
	a, err := New(species, s.field, loc, s.rand, randomAge)
	if err != nil {
		return nil, err
	}
	s.animals = append(s.animals, a)
	s.stats.Reset()
	return a, nil
}

// Step runs one step of the simulation. Every animal alive at the start of
// the step acts once, in population order; offspring join the population
// only after the pass and do not act until the next step.
func (s *Simulator) Step() PopulationStats {
	s.mu.Lock()
	stats, mgr := s.stepLocked(), s.notifierMgr
	s.mu.Unlock()

	if mgr != nil {
		mgr.Enqueue(StepEvent{Timestamp: time.Now().Unix(), PopulationStats: stats})
	}
	return stats
}

func (s *Simulator) stepLocked() PopulationStats {
	s.step++
	clear(s.lastBirths)
	clear(s.lastDeaths)

	snapshot := s.animals
	newborns := make([]Animal, 0)
	for _, a := range snapshot {
		newborns = a.Act(newborns)
	}

	population := make([]Animal, 0, len(snapshot)+len(newborns))
	for _, a := range snapshot {
		if a.IsAlive() {
			population = append(population, a)
		} else {
			s.lastDeaths[a.DeathCause()]++
		}
	}
	for _, a := range newborns {
		s.lastBirths[a.Species()]++
		if a.IsAlive() {
			population = append(population, a)
		} else {
			s.lastDeaths[a.DeathCause()]++
		}
	}
	s.animals = population
	s.stats.Reset()

	s.logger.Debugf("Step finished: env_id=%s step=%d population=%d births=%d", s.id, s.step, len(population), len(newborns))
	return s.statsLocked()
}

// Simulate runs up to n steps, stopping early once the field is no longer
// viable. It returns the number of steps taken.
func (s *Simulator) Simulate(n int) int {
	taken := 0
	for taken < n && s.IsViable() {
		s.Step()
		taken++
	}
	return taken
}

// Reset reseeds the random source, empties the field and seeds a fresh
// population. A reset simulator replays the same run as a new one.
func (s *Simulator) Reset() PopulationStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rand.Seed(s.cfg.Seed)
	s.step = 0
	clear(s.lastBirths)
	clear(s.lastDeaths)
	s.populate()
	s.logger.Infof("Simulation reset: env_id=%s population=%d", s.id, len(s.animals))
	return s.statsLocked()
}

// populate scans the field row by row and, for every cell, tries each
// configured species in order with an independent draw; the first hit is
// placed there with a random age.
func (s *Simulator) populate() {
	s.field.ClearAll()
	s.animals = make([]Animal, 0)
	s.stats.Reset()

	for row := 0; row < s.field.Depth(); row++ {
		for col := 0; col < s.field.Width(); col++ {
			loc := Location{Row: row, Col: col}
			for _, pc := range s.cfg.Population {
				if s.rand.Float64() > pc.CreationProbability {
					continue
				}
				a, err := New(SpeciesName(pc.Species), s.field, loc, s.rand, true)
				if err != nil {
					// Species were validated with the config.
					panic(err)
				}
				s.animals = append(s.animals, a)
				break
			}
		}
	}
}

// Stats returns the population summary for the current step.
func (s *Simulator) Stats() PopulationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Simulator) statsLocked() PopulationStats {
	counts := s.stats.Counts(s.field)
	for _, pc := range s.cfg.Population {
		if _, ok := counts[SpeciesName(pc.Species)]; !ok {
			counts[SpeciesName(pc.Species)] = 0
		}
	}

	births := make(map[SpeciesName]int, len(s.lastBirths))
	for k, v := range s.lastBirths {
		births[k] = v
	}
	deaths := make(map[DeathCause]int, len(s.lastDeaths))
	for k, v := range s.lastDeaths {
		deaths[k] = v
	}

	return PopulationStats{
		EnvironmentID: s.id,
		Step:          s.step,
		Counts:        counts,
		Births:        births,
		Deaths:        deaths,
		Viable:        s.stats.IsViable(s.field),
	}
}

// IsViable reports whether at least two species are still alive.
func (s *Simulator) IsViable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.IsViable(s.field)
}

// CellView is one occupied cell of a FieldSnapshot.
type CellView struct {
	Location
	Species SpeciesName `json:"species"`
	Age     int         `json:"age"`
}

// FieldSnapshot is a read-only picture of the field for rendering.
type FieldSnapshot struct {
	EnvironmentID EnvironmentID `json:"environment_id,omitempty"`
	Step          int64         `json:"step"`
	Depth         int           `json:"depth"`
	Width         int           `json:"width"`
	Cells         []CellView    `json:"cells"`
}

// FieldView captures the occupied cells of the field in row-major order.
func (s *Simulator) FieldView() FieldSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := make([]CellView, 0, len(s.animals))
	s.field.Occupants(func(loc Location, a Animal) bool {
		cells = append(cells, CellView{Location: loc, Species: a.Species(), Age: a.Age()})
		return true
	})
	return FieldSnapshot{
		EnvironmentID: s.id,
		Step:          s.step,
		Depth:         s.field.Depth(),
		Width:         s.field.Width(),
		Cells:         cells,
	}
}

// Run steps the simulation in a goroutine on a ticker until Stop is called.
// It can be called again after stopping.
func (s *Simulator) Run(interval time.Duration) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.isRunning = true
	stopCh := s.stopCh
	s.logger.Infof("Simulation started: env_id=%s interval=%v", s.id, interval)
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Step()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop stops a running simulation. It is a no-op when not running.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.logger.Infof("Simulation stopped: env_id=%s step=%d", s.id, s.step)
}

// IsRunning reports whether the run loop is active.
func (s *Simulator) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
