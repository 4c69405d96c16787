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
	"bytes"
	"testing"
)

func TestAssemble(t *testing.T) {
	stack := testStack(t)
	zones := []*Zone{square(0, 0, 1, 1), square(10, 10, 11, 11)}
	mean, err := Sample(stack, zones, Mean)
	if err != nil {
		t.Fatal(err)
	}
	stddev, err := Sample(stack, zones, StdDev)
	if err != nil {
		t.Fatal(err)
	}

	ts, err := Assemble(stack, 0, mean, stddev)
	if err != nil {
		t.Fatal(err)
	}
	if ts.ZoneIndex != 0 {
		t.Errorf("got zone index %d, want 0", ts.ZoneIndex)
	}
	if len(ts.Points) != stack.Len() {
		t.Fatalf("got %d points for %d time slices", len(ts.Points), stack.Len())
	}
	for i, p := range ts.Points {
		if !p.Time.Equal(stack.Grid(i).Time) {
			t.Errorf("point %d has timestamp %v, want %v", i, p.Time, stack.Grid(i).Time)
		}
		if i > 0 && !p.Time.After(ts.Points[i-1].Time) {
			t.Errorf("timestamps are not strictly increasing at point %d", i)
		}
		if v, want := p.Values["mean"], float64(i+1); v != want {
			t.Errorf("point %d: mean = %g, want %g", i, v, want)
		}
		if v := p.Values["stddev"]; v != 0 { // single-cell zone
			t.Errorf("point %d: stddev = %g, want 0", i, v)
		}
	}

	// The disjoint zone assembles to all-missing points, not an error.
	ts, err = Assemble(stack, 1, mean)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range ts.Points {
		if !IsMissing(p.Values["mean"]) {
			t.Errorf("point %d should be missing, got %g", i, p.Values["mean"])
		}
	}
}

func TestAssemble_Errors(t *testing.T) {
	stack := testStack(t)
	mean, err := Sample(stack, []*Zone{square(0, 0, 1, 1)}, Mean)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Assemble(stack, 1, mean); err == nil {
		t.Error("an out-of-range zone index should fail")
	}
	if _, err := Assemble(stack, -1, mean); err == nil {
		t.Error("a negative zone index should fail")
	}
	if _, err := Assemble(stack, 0); err == nil {
		t.Error("assembling with no samples should fail")
	}
	if _, err := Assemble(NewGridStack(stack.Lattice()), 0, mean); err != ErrEmptyStack {
		t.Errorf("got %v, want %v", err, ErrEmptyStack)
	}
}

func TestTimeSeries_WriteCSV(t *testing.T) {
	stack := testStack(t)
	zones := []*Zone{square(0, 0, 1, 1)}
	mean, err := Sample(stack, zones, Mean)
	if err != nil {
		t.Fatal(err)
	}
	stddev, err := Sample(stack, zones, StdDev)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := Assemble(stack, 0, mean, stddev)
	if err != nil {
		t.Fatal(err)
	}
	// Force a missing value to check that it round-trips as an empty field.
	ts.Points[1].Values["mean"] = Missing

	var b bytes.Buffer
	if err := ts.WriteCSV(&b); err != nil {
		t.Fatal(err)
	}
	want := `time,mean,stddev
2020-01-01T00:00:00Z,1,0
2020-01-02T00:00:00Z,,0
2020-01-03T00:00:00Z,3,0
`
	if b.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", b.String(), want)
	}
}
