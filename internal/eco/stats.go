package eco

import "sort"

// FieldStats counts the live occupants of a field per species. Counts are
// recomputed lazily and invalidated with Reset.
type FieldStats struct {
	counts     map[SpeciesName]int
	countsFull bool
}

// NewFieldStats creates an empty counter.
func NewFieldStats() *FieldStats {
	return &FieldStats{counts: make(map[SpeciesName]int)}
}

// Reset invalidates the current counts.
func (s *FieldStats) Reset() {
	s.countsFull = false
	clear(s.counts)
}

// Increment adds one animal of species to the counts.
func (s *FieldStats) Increment(species SpeciesName) {
	s.counts[species]++
}

// CountFinished marks the counts as complete.
func (s *FieldStats) CountFinished() {
	s.countsFull = true
}

// Counts returns the per-species totals for field, recounting if needed.
func (s *FieldStats) Counts(field *Field) map[SpeciesName]int {
	if !s.countsFull {
		s.generateCounts(field)
	}
	out := make(map[SpeciesName]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// IsViable reports whether more than one species is still alive in field.
func (s *FieldStats) IsViable(field *Field) bool {
	nonZero := 0
	for _, c := range s.Counts(field) {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero > 1
}

func (s *FieldStats) generateCounts(field *Field) {
	s.Reset()
	field.Occupants(func(_ Location, a Animal) bool {
		if a.IsAlive() {
			s.Increment(a.Species())
		}
		return true
	})
	s.CountFinished()
}

// PopulationStats is the population summary of a simulation at one step.
type PopulationStats struct {
	EnvironmentID EnvironmentID       `json:"environment_id,omitempty"`
	Step          int64               `json:"step"`
	Counts        map[SpeciesName]int `json:"counts"`
	Births        map[SpeciesName]int `json:"births,omitempty"`
	Deaths        map[DeathCause]int  `json:"deaths,omitempty"`
	Viable        bool                `json:"viable"`
}

// SortedSpecies returns the species present in Counts, sorted by name.
func (p PopulationStats) SortedSpecies() []SpeciesName {
	names := make([]SpeciesName, 0, len(p.Counts))
	for name := range p.Counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
