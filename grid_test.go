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
	"math"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

func testSR(t *testing.T) *proj.SR {
	sr, err := proj.Parse(longlat)
	if err != nil {
		t.Fatal(err)
	}
	return sr
}

// similarBounds reports whether b matches the given corners to within
// a small tolerance.
func similarBounds(b *geom.Bounds, minx, miny, maxx, maxy float64) bool {
	const tol = 1e-9
	return math.Abs(b.Min.X-minx) < tol && math.Abs(b.Min.Y-miny) < tol &&
		math.Abs(b.Max.X-maxx) < tol && math.Abs(b.Max.Y-maxy) < tol
}

// day returns midnight UTC i days after 2020-01-01.
func day(i int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// testStack returns a 2 x 2 lattice with 3 daily time slices:
//
//	t0: [[1 2] [3 4]]  t1: [[2 3] [4 5]]  t2: [[3 4] [5 6]]
func testStack(t *testing.T) *GridStack {
	l := NewLattice(2, 2, 1, 1, 0, 0, testSR(t))
	stack := NewGridStack(l)
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		data := sparse.ZerosDense(2, 2)
		data.Set(float64(i+1), 0, 0)
		data.Set(float64(i+2), 0, 1)
		data.Set(float64(i+3), 1, 0)
		data.Set(float64(i+4), 1, 1)
		if err := stack.Append(data, t0.AddDate(0, 0, i)); err != nil {
			t.Fatal(err)
		}
	}
	return stack
}

func TestNewLattice(t *testing.T) {
	l := NewLattice(3, 2, 0.5, 0.25, -1, -0.5, testSR(t))
	if len(l.Cells()) != 6 {
		t.Fatalf("expected 6 cells, got %d", len(l.Cells()))
	}
	c := l.Cell(1, 2)
	if c.Row != 1 || c.Col != 2 {
		t.Errorf("cell (1,2) has row=%d col=%d", c.Row, c.Col)
	}
	if b := c.Bounds(); !similarBounds(b, 0, -0.25, 0.5, 0) {
		t.Errorf("cell (1,2) bounds %+v, want (0, -0.25)-(0.5, 0)", b)
	}
	if b := l.Bounds(); !similarBounds(b, -1, -0.5, 0.5, 0) {
		t.Errorf("lattice bounds %+v, want (-1, -0.5)-(0.5, 0)", b)
	}
}

func TestGridStack_Append(t *testing.T) {
	l := NewLattice(2, 2, 1, 1, 0, 0, testSR(t))
	stack := NewGridStack(l)
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := stack.Append(sparse.ZerosDense(3, 2), t0); err == nil {
		t.Error("appending a mis-shaped grid should fail")
	}
	if err := stack.Append(sparse.ZerosDense(2, 2), t0); err != nil {
		t.Fatal(err)
	}
	if err := stack.Append(sparse.ZerosDense(2, 2), t0); err == nil {
		t.Error("appending a duplicate timestamp should fail")
	}
	if err := stack.Append(sparse.ZerosDense(2, 2), t0.Add(-time.Hour)); err == nil {
		t.Error("appending an earlier timestamp should fail")
	}
	if err := stack.Append(sparse.ZerosDense(2, 2), t0.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if stack.Len() != 2 {
		t.Fatalf("expected 2 time slices, got %d", stack.Len())
	}
}

func TestGridStack_Times(t *testing.T) {
	stack := testStack(t)
	times := stack.Times()
	if len(times) != stack.Len() {
		t.Fatalf("got %d timestamps for %d time slices", len(times), stack.Len())
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			t.Errorf("timestamps are not strictly increasing: %v then %v", times[i-1], times[i])
		}
	}
	for i, g := range stack.Grids() {
		if g.Aggregate {
			t.Errorf("time slice %d should not be an aggregate", i)
		}
		if !g.Time.Equal(times[i]) {
			t.Errorf("time slice %d has timestamp %v, want %v", i, g.Time, times[i])
		}
	}
}
