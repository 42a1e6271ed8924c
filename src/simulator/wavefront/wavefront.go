// Package wavefront maps positions on a square PE grid to systolic delay
// groups. Cells on the same anti-diagonal share the same propagation delay
// from the array edge and are enabled together during distribution.
package wavefront

import "fmt"

// Coordinate identifies a cell on the PE grid.
type Coordinate struct {
	Row int
	Col int
}

// Table is the precomputed delay-group lookup for one grid size. It is built
// once from the grid side length; nothing in it is hardcoded per size, so the
// controller's 2S-1 distribution schedule generalizes automatically.
type Table struct {
	side    int
	groups  [][]Coordinate
	byIndex []int
}

// NewTable builds the lookup for a square grid of the given side length.
func NewTable(side int) (*Table, error) {
	if side <= 0 {
		return nil, fmt.Errorf("grid side length %d must be positive", side)
	}

	table := &Table{
		side:    side,
		groups:  make([][]Coordinate, 2*side-1),
		byIndex: make([]int, side*side),
	}

	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			group := row + col
			table.groups[group] = append(table.groups[group], Coordinate{Row: row, Col: col})
			table.byIndex[row*side+col] = group
		}
	}

	return table, nil
}

// Side returns the grid side length the table was built for.
func (t *Table) Side() int {
	return t.side
}

// NumGroups returns the number of delay groups, 2S-1 for side S.
func (t *Table) NumGroups() int {
	return 2*t.side - 1
}

// NumCells returns the total PE count, S squared.
func (t *Table) NumCells() int {
	return t.side * t.side
}

// GroupOf returns the delay group for a grid coordinate, row+col.
func (t *Table) GroupOf(row, col int) (int, error) {
	if row < 0 || row >= t.side || col < 0 || col >= t.side {
		return 0, fmt.Errorf("coordinate (%d,%d) outside %dx%d grid", row, col, t.side, t.side)
	}
	return row + col, nil
}

// GroupOfIndex returns the delay group for a flat (row-major) PE index.
func (t *Table) GroupOfIndex(idx int) (int, error) {
	if idx < 0 || idx >= len(t.byIndex) {
		return 0, fmt.Errorf("PE index %d outside 0..%d", idx, len(t.byIndex)-1)
	}
	return t.byIndex[idx], nil
}

// Indices returns every coordinate whose row+col equals the given group. The
// returned slice is owned by the table and must not be mutated.
func (t *Table) Indices(group int) ([]Coordinate, error) {
	if group < 0 || group >= t.NumGroups() {
		return nil, fmt.Errorf("delay group %d outside 0..%d", group, t.NumGroups()-1)
	}
	return t.groups[group], nil
}

// GroupSize returns the number of cells in a group without exposing the
// backing slice.
func (t *Table) GroupSize(group int) int {
	if group < 0 || group >= t.NumGroups() {
		return 0
	}
	return len(t.groups[group])
}
