package eco

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Field is a bounded rectangular grid of cells. Each cell holds at most one
// animal. The dimensions are fixed at construction.
type Field struct {
	depth int
	width int
	cells []Animal
	rand  *rand.Rand
}

// NewField creates an empty field of the given depth (rows) and width
// (columns). rng drives the shuffling of adjacency queries.
func NewField(depth, width int, rng *rand.Rand) *Field {
	if depth <= 0 || width <= 0 {
		panic(fmt.Sprintf("eco: invalid field dimensions %dx%d", depth, width))
	}
	if rng == nil {
		rng = NewRandom(DefaultSeed)
	}
	return &Field{
		depth: depth,
		width: width,
		cells: make([]Animal, depth*width),
		rand:  rng,
	}
}

// Depth returns the number of rows.
func (f *Field) Depth() int { return f.depth }

// Width returns the number of columns.
func (f *Field) Width() int { return f.width }

// InBounds reports whether loc lies inside the field.
func (f *Field) InBounds(loc Location) bool {
	return loc.Row >= 0 && loc.Row < f.depth && loc.Col >= 0 && loc.Col < f.width
}

func (f *Field) index(loc Location) int {
	if !f.InBounds(loc) {
		panic(fmt.Errorf("eco: %s in %dx%d field: %w", loc, f.depth, f.width, ErrOutOfBounds))
	}
	return loc.Row*f.width + loc.Col
}

// Place stores a at loc, overwriting whatever was there. Callers relocating
// an animal must clear its previous cell first.
func (f *Field) Place(a Animal, loc Location) {
	f.cells[f.index(loc)] = a
}

// Clear empties the cell at loc. Clearing an empty cell is a no-op.
func (f *Field) Clear(loc Location) {
	f.cells[f.index(loc)] = nil
}

// ClearAll empties every cell.
func (f *Field) ClearAll() {
	clear(f.cells)
}

// ObjectAt returns the animal at loc, or nil if the cell is empty.
func (f *Field) ObjectAt(loc Location) Animal {
	return f.cells[f.index(loc)]
}

// AdjacentLocations returns the in-bounds neighbours of loc (up to eight,
// never loc itself) in a freshly shuffled order.
func (f *Field) AdjacentLocations(loc Location) []Location {
	locations := make([]Location, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		row := loc.Row + dr
		if row < 0 || row >= f.depth {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			col := loc.Col + dc
			if col < 0 || col >= f.width || (dr == 0 && dc == 0) {
				continue
			}
			locations = append(locations, Location{Row: row, Col: col})
		}
	}
	f.rand.Shuffle(len(locations), func(i, j int) {
		locations[i], locations[j] = locations[j], locations[i]
	})
	return locations
}

// FreeAdjacentLocations returns the empty neighbours of loc, shuffled.
func (f *Field) FreeAdjacentLocations(loc Location) []Location {
	adjacent := f.AdjacentLocations(loc)
	free := adjacent[:0]
	for _, next := range adjacent {
		if f.ObjectAt(next) == nil {
			free = append(free, next)
		}
	}
	return free
}

// FreeAdjacentLocation returns one empty neighbour of loc. The boolean is
// false when every neighbour is occupied.
func (f *Field) FreeAdjacentLocation(loc Location) (Location, bool) {
	free := f.FreeAdjacentLocations(loc)
	if len(free) == 0 {
		return Location{}, false
	}
	return free[0], true
}

// Occupants calls fn for every occupied cell in row-major order until fn
// returns false.
func (f *Field) Occupants(fn func(Location, Animal) bool) {
	for i, a := range f.cells {
		if a == nil {
			continue
		}
		if !fn(Location{Row: i / f.width, Col: i % f.width}, a) {
			return
		}
	}
}
