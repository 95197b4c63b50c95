package eco

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// SpeciesName is the name/identifier of a species.
type SpeciesName string

const (
	Rabbit SpeciesName = "rabbit"
	Fox    SpeciesName = "fox"
	Coyote SpeciesName = "coyote"
)

// Traits is the fixed constant table of a species.
type Traits struct {
	Species             SpeciesName
	BreedingAge         int
	MaxAge              int
	BreedingProbability float64
	MaxLitterSize       int

	// Hunters only. FoodValue is the number of steps a hunter can go
	// after eating one prey; Prey is the species it hunts.
	FoodValue int
	Prey      SpeciesName
}

// Hunts reports whether the species hunts another one.
func (t Traits) Hunts() bool {
	return t.Prey != ""
}

var (
	RabbitTraits = Traits{
		Species:             Rabbit,
		BreedingAge:         5,
		MaxAge:              40,
		BreedingProbability: 0.12,
		MaxLitterSize:       4,
	}
	FoxTraits = Traits{
		Species:             Fox,
		BreedingAge:         15,
		MaxAge:              150,
		BreedingProbability: 0.08,
		MaxLitterSize:       2,
		FoodValue:           9,
		Prey:                Rabbit,
	}
	CoyoteTraits = Traits{
		Species:             Coyote,
		BreedingAge:         15,
		MaxAge:              150,
		BreedingProbability: 0.08,
		MaxLitterSize:       2,
		FoodValue:           7,
		Prey:                Fox,
	}
)

var speciesTable = map[SpeciesName]Traits{
	Rabbit: RabbitTraits,
	Fox:    FoxTraits,
	Coyote: CoyoteTraits,
}

// AllSpecies lists the known species, hunters of hunters first.
func AllSpecies() []SpeciesName {
	return []SpeciesName{Coyote, Fox, Rabbit}
}

// TraitsFor returns the constant table of a species.
func TraitsFor(name SpeciesName) (Traits, bool) {
	t, ok := speciesTable[name]
	return t, ok
}

// New creates an animal of the named species at loc in field. With
// randomAge the animal gets a random age (and hunger for hunters), as used
// when seeding a population; otherwise it is a newborn.
func New(name SpeciesName, field *Field, loc Location, rng *rand.Rand, randomAge bool) (Animal, error) {
	traits, ok := TraitsFor(name)
	if !ok {
		return nil, fmt.Errorf("unknown species: %s", name)
	}
	if traits.Hunts() {
		return NewHunter(traits, field, loc, rng, randomAge), nil
	}
	return NewGrazer(traits, field, loc, rng, randomAge), nil
}
