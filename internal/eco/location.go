package eco

import "fmt"

// Location is a (row, column) coordinate identifying one cell of a Field.
// It is a plain value: compare it with == and use it as a map key.
type Location struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewLocation returns the location at row and col.
func NewLocation(row, col int) Location {
	return Location{Row: row, Col: col}
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.Row, l.Col)
}
