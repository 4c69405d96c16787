/*
Copyright © 2025 the Gridstats authors.
This file is part of Gridstats.

Gridstats is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Gridstats is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Gridstats.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridstats

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// A Cell is an individual cell in a Lattice.
type Cell struct {
	geom.Polygonal
	Row, Col int
}

// A Lattice is a regular grid of rectangular cells. Cells are stored in
// row-major order: index = row*Nx + col, with row zero at Y0.
type Lattice struct {
	Nx, Ny int
	Dx, Dy float64
	X0, Y0 float64 // lower-left corner of the lower-left cell
	SR     *proj.SR
	Extent geom.Polygon
	cells  []*Cell
	tree   *rtree.Rtree
}

// NewLattice creates a regular lattice where all cells are the same size.
// X0 and Y0 are the coordinates of the lower-left corner of the domain and
// dx and dy are the cell edge lengths.
func NewLattice(nx, ny int, dx, dy, x0, y0 float64, sr *proj.SR) *Lattice {
	l := &Lattice{
		Nx: nx, Ny: ny,
		Dx: dx, Dy: dy,
		X0: x0, Y0: y0,
		SR: sr,
	}
	l.tree = rtree.NewTree(25, 50)
	l.cells = make([]*Cell, nx*ny)
	i := 0
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			cell := new(Cell)
			x := x0 + float64(ix)*dx
			y := y0 + float64(iy)*dy
			cell.Row, cell.Col = iy, ix
			cell.Polygonal = geom.Polygon([]geom.Path{{
				{X: x, Y: y}, {X: x + dx, Y: y},
				{X: x + dx, Y: y + dy}, {X: x, Y: y + dy}, {X: x, Y: y}}})
			l.tree.Insert(cell)
			l.cells[i] = cell
			i++
		}
	}
	l.Extent = geom.Polygon([]geom.Path{{{X: x0, Y: y0},
		{X: x0 + dx*float64(nx), Y: y0},
		{X: x0 + dx*float64(nx), Y: y0 + dy*float64(ny)},
		{X: x0, Y: y0 + dy*float64(ny)}, {X: x0, Y: y0}}})
	return l
}

// Cells returns the lattice cells in row-major order.
func (l *Lattice) Cells() []*Cell { return l.cells }

// Cell returns the cell in the given row and column.
func (l *Lattice) Cell(row, col int) *Cell { return l.cells[row*l.Nx+col] }

// Bounds returns the bounding box of the lattice.
func (l *Lattice) Bounds() *geom.Bounds { return l.Extent.Bounds() }

// searchIntersect returns the cells whose bounding boxes intersect b.
func (l *Lattice) searchIntersect(b *geom.Bounds) []*Cell {
	x := l.tree.SearchIntersect(b)
	cells := make([]*Cell, len(x))
	for i, c := range x {
		cells[i] = c.(*Cell)
	}
	return cells
}

// A Grid is a single 2-D scalar field on a Lattice, either at one time
// instant or, if Aggregate is set, summarizing a period of time. Missing
// values are represented as NaN. Grids are read-only after creation.
type Grid struct {
	// Data holds the cell values with shape [Ny, Nx].
	Data *sparse.DenseArray

	// Time is the instant the field is valid for. It is the zero
	// time when Aggregate is set.
	Time time.Time

	// Aggregate reports whether this grid summarizes multiple time
	// slices rather than representing an instantaneous field.
	Aggregate bool

	lattice *Lattice
}

// Lattice returns the spatial lattice the grid values lie on.
func (g *Grid) Lattice() *Lattice { return g.lattice }

// IsMissing reports whether v is flagged as missing.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Missing is the value used to flag a cell or result as having no
// valid data.
var Missing = math.NaN()

// A GridStack is a time-ordered sequence of Grids sharing one Lattice.
// Member timestamps are strictly increasing.
type GridStack struct {
	lattice *Lattice
	grids   []*Grid
}

// NewGridStack creates an empty stack of grids on the given lattice.
func NewGridStack(l *Lattice) *GridStack {
	return &GridStack{lattice: l}
}

// Lattice returns the spatial lattice shared by all member grids.
func (s *GridStack) Lattice() *Lattice { return s.lattice }

// Len returns the number of time slices in the stack.
func (s *GridStack) Len() int { return len(s.grids) }

// Grid returns the grid at time index i.
func (s *GridStack) Grid(i int) *Grid { return s.grids[i] }

// Grids returns the member grids in ascending time order.
func (s *GridStack) Grids() []*Grid { return s.grids }

// Times returns the member timestamps in ascending order.
func (s *GridStack) Times() []time.Time {
	t := make([]time.Time, len(s.grids))
	for i, g := range s.grids {
		t[i] = g.Time
	}
	return t
}

// Append adds a grid to the top of the stack. The grid must match the
// stack lattice dimensions, must not be an aggregate, and must be
// timestamped strictly after the current top of the stack.
func (s *GridStack) Append(data *sparse.DenseArray, t time.Time) error {
	if len(data.Shape) != 2 || data.Shape[0] != s.lattice.Ny || data.Shape[1] != s.lattice.Nx {
		return fmt.Errorf("gridstats: grid shape %v doesn't match lattice (%d, %d)",
			data.Shape, s.lattice.Ny, s.lattice.Nx)
	}
	if n := len(s.grids); n > 0 && !t.After(s.grids[n-1].Time) {
		return fmt.Errorf("gridstats: grid timestamps must be strictly increasing: %v is not after %v",
			t, s.grids[n-1].Time)
	}
	s.grids = append(s.grids, &Grid{Data: data, Time: t, lattice: s.lattice})
	return nil
}
