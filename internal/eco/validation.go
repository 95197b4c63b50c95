package eco

import (
	"fmt"
	"strings"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid config: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "config validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// ValidateSimulationConfig checks dimensions, species names and creation
// probabilities of a SimulationConfig.
func ValidateSimulationConfig(cfg SimulationConfig) error {
	err := &ValidationError{}

	if cfg.Depth <= 0 || cfg.Width <= 0 {
		err.Add(fmt.Sprintf("field dimensions must be positive, got %dx%d", cfg.Depth, cfg.Width))
	}
	if cfg.Depth > MaxDimension || cfg.Width > MaxDimension {
		err.Add(fmt.Sprintf("field dimensions must not exceed %d, got %dx%d", MaxDimension, cfg.Depth, cfg.Width))
	}
	if cfg.StepDelayMS < 0 {
		err.Add(fmt.Sprintf("step_delay_ms must not be negative, got %d", cfg.StepDelayMS))
	}

	seen := make(map[string]bool)
	for i, pc := range cfg.Population {
		prefix := fmt.Sprintf("population at index %d", i)
		if pc.Species == "" {
			err.Add(prefix + ": species is required")
			continue
		}
		prefix = "population '" + pc.Species + "'"
		if _, ok := TraitsFor(SpeciesName(pc.Species)); !ok {
			err.Add(prefix + ": unknown species")
		}
		if seen[pc.Species] {
			err.Add("duplicate population species: " + pc.Species)
		}
		seen[pc.Species] = true
		if pc.CreationProbability < 0 || pc.CreationProbability > 1 {
			err.Add(fmt.Sprintf("%s: creation_probability must be between 0 and 1, got %g", prefix, pc.CreationProbability))
		}
	}

	if err.HasIssues() {
		return err
	}
	return nil
}
