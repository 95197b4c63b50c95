package eco

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// DeathCause records why an animal died.
type DeathCause string

const (
	CauseNone         DeathCause = ""
	CauseOldAge       DeathCause = "old_age"
	CauseStarvation   DeathCause = "starvation"
	CauseOvercrowding DeathCause = "overcrowding"
	CausePredation    DeathCause = "predation"
)

// Animal is a living occupant of a Field. The set of implementations is
// closed to this package: Hunter and Grazer.
type Animal interface {
	Species() SpeciesName
	IsAlive() bool
	Age() int
	// Location returns the occupied cell; false once the animal is dead.
	Location() (Location, bool)
	DeathCause() DeathCause

	// Act runs one simulated step. Offspring are appended to newborns and
	// the extended slice is returned; they must not act until the next step.
	Act(newborns []Animal) []Animal

	setDead(cause DeathCause)
}

// lifecycle is the state and behaviour shared by every species. It is
// embedded by the concrete variants, which hand it a reference to
// themselves so it can occupy cells on their behalf.
type lifecycle struct {
	self   Animal
	traits Traits
	rand   *rand.Rand

	alive bool
	age   int
	cause DeathCause

	// field is nil exactly when the animal holds no cell.
	field *Field
	loc   Location
}

func (l *lifecycle) attach(self Animal, traits Traits, field *Field, loc Location, rng *rand.Rand) {
	if field == nil {
		panic(fmt.Errorf("eco: new %s at %s: %w", traits.Species, loc, ErrDetached))
	}
	if rng == nil {
		rng = field.rand
	}
	l.self = self
	l.traits = traits
	l.rand = rng
	l.alive = true
	l.field = field
	l.setLocation(loc)
}

func (l *lifecycle) Species() SpeciesName { return l.traits.Species }

func (l *lifecycle) IsAlive() bool { return l.alive }

func (l *lifecycle) Age() int { return l.age }

func (l *lifecycle) DeathCause() DeathCause { return l.cause }

func (l *lifecycle) Location() (Location, bool) {
	if l.field == nil {
		return Location{}, false
	}
	return l.loc, true
}

// Traits returns the species constants of the animal.
func (l *lifecycle) Traits() Traits { return l.traits }

// setDead kills the animal and releases its cell. Only the first call has
// any effect.
func (l *lifecycle) setDead(cause DeathCause) {
	if !l.alive {
		return
	}
	l.alive = false
	l.cause = cause
	if l.field != nil {
		l.field.Clear(l.loc)
		l.field = nil
		l.loc = Location{}
	}
}

// setLocation moves the animal to loc, clearing the cell it held before.
func (l *lifecycle) setLocation(loc Location) {
	if l.field == nil {
		panic(fmt.Errorf("eco: move %s to %s: %w", l.traits.Species, loc, ErrDetached))
	}
	if occupant := l.field.ObjectAt(loc); occupant != nil && occupant != l.self {
		panic(fmt.Errorf("eco: move %s to %s: held by %s: %w", l.traits.Species, loc, occupant.Species(), ErrOccupied))
	}
	if l.field.ObjectAt(l.loc) == l.self {
		l.field.Clear(l.loc)
	}
	l.loc = loc
	l.field.Place(l.self, loc)
}

// incrementAge ages the animal by one step. Exceeding the species maximum
// age kills it.
func (l *lifecycle) incrementAge() {
	l.age++
	if l.age > l.traits.MaxAge {
		l.setDead(CauseOldAge)
	}
}

func (l *lifecycle) canBreed() bool {
	return l.age >= l.traits.BreedingAge
}

// breed returns the number of births for this step, between 0 and the
// species maximum litter size.
func (l *lifecycle) breed() int {
	if l.canBreed() && l.rand.Float64() <= l.traits.BreedingProbability {
		return l.rand.Intn(l.traits.MaxLitterSize) + 1
	}
	return 0
}

// giveBirth places offspring into free neighbouring cells. Births beyond the
// number of free cells are dropped.
func (l *lifecycle) giveBirth(newborns []Animal, spawn func(*Field, Location) Animal) []Animal {
	field := l.field
	free := field.FreeAdjacentLocations(l.loc)
	births := l.breed()
	for b := 0; b < births && len(free) > 0; b++ {
		loc := free[0]
		free = free[1:]
		newborns = append(newborns, spawn(field, loc))
	}
	return newborns
}
