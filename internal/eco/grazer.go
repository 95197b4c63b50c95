package eco

import "golang.org/x/exp/rand"

// Grazer is a foraging prey animal. It never goes hungry; it ages, breeds
// and wanders. Rabbits are grazers.
type Grazer struct {
	lifecycle
}

// NewGrazer creates a grazer at loc in field, with a random age when
// randomAge is set.
func NewGrazer(traits Traits, field *Field, loc Location, rng *rand.Rand, randomAge bool) *Grazer {
	g := &Grazer{}
	g.attach(g, traits, field, loc, rng)
	if randomAge {
		g.age = g.rand.Intn(traits.MaxAge)
	}
	return g
}

// Act ages the grazer, lets it breed and moves it to a free neighbouring
// cell, or kills it by overcrowding when none is left.
func (g *Grazer) Act(newborns []Animal) []Animal {
	if !g.alive {
		return newborns
	}
	g.incrementAge()
	if !g.alive {
		return newborns
	}

	newborns = g.giveBirth(newborns, func(field *Field, loc Location) Animal {
		return NewGrazer(g.traits, field, loc, g.rand, false)
	})

	if target, ok := g.field.FreeAdjacentLocation(g.loc); ok {
		g.setLocation(target)
	} else {
		g.setDead(CauseOvercrowding)
	}
	return newborns
}
