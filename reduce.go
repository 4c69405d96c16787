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
	"runtime"

	"github.com/ctessum/sparse"
)

// Reduce collapses the stack along the time axis, computing the given
// statistic for each lattice cell over the values from every time slice
// at that cell. Missing values are excluded; cells that are missing in
// every time slice are missing in the result. The returned grid is
// tagged as an aggregate and carries no instantaneous timestamp.
func Reduce(stack *GridStack, statistic Statistic) (*Grid, error) {
	if stack.Len() == 0 {
		return nil, ErrEmptyStack
	}
	l := stack.Lattice()
	out := sparse.ZerosDense(l.Ny, l.Nx)

	nprocs := runtime.GOMAXPROCS(-1)
	rowChan := make(chan int, l.Ny)
	doneChan := make(chan int)
	for p := 0; p < nprocs; p++ {
		go func() {
			vals := make([]float64, 0, stack.Len())
			for j := range rowChan {
				for i := 0; i < l.Nx; i++ {
					vals = vals[:0]
					for _, g := range stack.Grids() {
						if v := g.Data.Get(j, i); !IsMissing(v) {
							vals = append(vals, v)
						}
					}
					if len(vals) == 0 {
						out.Set(Missing, j, i)
						continue
					}
					out.Set(statistic.compute(vals), j, i)
				}
			}
			doneChan <- 0
		}()
	}
	for j := 0; j < l.Ny; j++ {
		rowChan <- j
	}
	close(rowChan)
	for p := 0; p < nprocs; p++ {
		<-doneChan
	}

	return &Grid{Data: out, Aggregate: true, lattice: l}, nil
}
