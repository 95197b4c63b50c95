package eco

import "golang.org/x/exp/rand"

// Hunter is a predator: it hunts one prey species, goes hungry every step and
// starves when its food level runs out. Foxes and coyotes are hunters.
type Hunter struct {
	lifecycle
	foodLevel int
}

// NewHunter creates a hunter at loc in field. A seeded hunter (randomAge)
// gets a random age and food level; a newborn starts at age zero, fully fed.
func NewHunter(traits Traits, field *Field, loc Location, rng *rand.Rand, randomAge bool) *Hunter {
	h := &Hunter{}
	h.attach(h, traits, field, loc, rng)
	if randomAge {
		h.age = h.rand.Intn(traits.MaxAge)
		h.foodLevel = h.rand.Intn(traits.FoodValue)
	} else {
		h.foodLevel = traits.FoodValue
	}
	return h
}

// FoodLevel returns the number of steps the hunter can still go without
// eating.
func (h *Hunter) FoodLevel() int { return h.foodLevel }

// Act ages the hunter, makes it hungrier, lets it breed, then moves it onto
// the first live prey it finds next to it or, failing that, into a free
// neighbouring cell. A hunter with nowhere to go dies of overcrowding.
func (h *Hunter) Act(newborns []Animal) []Animal {
	if !h.alive {
		return newborns
	}
	h.incrementAge()
	if !h.alive {
		return newborns
	}
	h.incrementHunger()
	if !h.alive {
		return newborns
	}

	newborns = h.giveBirth(newborns, func(field *Field, loc Location) Animal {
		return NewHunter(h.traits, field, loc, h.rand, false)
	})

	target, ok := h.findFood()
	if !ok {
		target, ok = h.field.FreeAdjacentLocation(h.loc)
	}
	if ok {
		h.setLocation(target)
	} else {
		h.setDead(CauseOvercrowding)
	}
	return newborns
}

func (h *Hunter) incrementHunger() {
	h.foodLevel--
	if h.foodLevel <= 0 {
		h.setDead(CauseStarvation)
	}
}

// findFood eats the first live prey among the neighbours and returns the
// cell it occupied. Only one prey is eaten per step.
func (h *Hunter) findFood() (Location, bool) {
	field := h.field
	for _, where := range field.AdjacentLocations(h.loc) {
		prey := field.ObjectAt(where)
		if prey == nil || prey.Species() != h.traits.Prey || !prey.IsAlive() {
			continue
		}
		prey.setDead(CausePredation)
		h.foodLevel = h.traits.FoodValue
		return where, true
	}
	return Location{}, false
}
