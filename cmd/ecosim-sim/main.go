package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/daniacca/ecosim/internal/eco"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to simulation config JSON file (optional, defaults to the built-in 80x120 field)")
		steps      = flag.Int("steps", 500, "number of steps to run")
		seed       = flag.Uint64("seed", 0, "random seed overriding the config (0 keeps the config seed)")
		every      = flag.Int("every", 0, "print population counts every n steps (0 prints only the summary)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	sim, err := eco.NewSimulator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating simulation: %v\n", err)
		os.Exit(1)
	}

	ran := run(sim, *steps, *every, os.Stdout)
	printSummary(os.Stdout, cfg.Name, ran, sim.Stats())
}

// loadConfig reads a SimulationConfig from path, falling back to the
// default configuration when path is empty.
func loadConfig(path string) (eco.SimulationConfig, error) {
	if path == "" {
		return eco.DefaultSimulationConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return eco.SimulationConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	cfg := eco.DefaultSimulationConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return eco.SimulationConfig{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := eco.ValidateSimulationConfig(cfg); err != nil {
		return eco.SimulationConfig{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// run steps sim up to steps times, stopping early once fewer than two
// species remain. It returns the number of steps taken.
func run(sim *eco.Simulator, steps, every int, out io.Writer) int {
	ran := 0
	for ran < steps && sim.IsViable() {
		stats := sim.Step()
		ran++
		if every > 0 && ran%every == 0 {
			fmt.Fprintf(out, "step %d:%s\n", stats.Step, formatCounts(stats))
		}
	}
	return ran
}

func formatCounts(stats eco.PopulationStats) string {
	s := ""
	for _, species := range stats.SortedSpecies() {
		s += fmt.Sprintf(" %s=%d", species, stats.Counts[species])
	}
	return s
}

func printSummary(out io.Writer, name string, steps int, stats eco.PopulationStats) {
	if name == "" {
		name = "default"
	}
	fmt.Fprintf(out, "Simulation finished (config=%s, steps=%d, viable=%v)\n", name, steps, stats.Viable)
	fmt.Fprintln(out, "Species counts:")
	for _, species := range stats.SortedSpecies() {
		fmt.Fprintf(out, "  %s: %d\n", species, stats.Counts[species])
	}
}
