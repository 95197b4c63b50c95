package eco

// PopulationConfig sets how densely a species is seeded.
type PopulationConfig struct {
	Species             string  `json:"species" jsonschema:"enum=coyote,enum=fox,enum=rabbit"`
	CreationProbability float64 `json:"creation_probability" jsonschema:"minimum=0,maximum=1"`
}

// SimulationConfig describes one simulation: the field dimensions, the seed
// and the species seeded into it at population time.
type SimulationConfig struct {
	Name        string             `json:"name,omitempty"`
	Depth       int                `json:"depth" jsonschema:"minimum=1"`
	Width       int                `json:"width" jsonschema:"minimum=1"`
	Seed        uint64             `json:"seed,omitempty"`
	Population  []PopulationConfig `json:"population"`
	StepDelayMS int                `json:"step_delay_ms,omitempty" jsonschema:"minimum=0"`
}

const (
	DefaultDepth = 80
	DefaultWidth = 120
	// MaxDimension bounds each side of the field.
	MaxDimension = 4096
)

// DefaultSimulationConfig returns the classic coyotes, foxes and rabbits
// setup on an 80x120 field.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Name:  "default",
		Depth: DefaultDepth,
		Width: DefaultWidth,
		Seed:  DefaultSeed,
		Population: []PopulationConfig{
			{Species: string(Coyote), CreationProbability: 0.01},
			{Species: string(Fox), CreationProbability: 0.02},
			{Species: string(Rabbit), CreationProbability: 0.08},
		},
	}
}
