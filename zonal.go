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
	"runtime"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// A Zone is a closed geographic boundary used to spatially subset
// lattice cells. Zones are read-only after loading.
type Zone struct {
	geom.Polygonal

	// Name identifies the zone. It is the record index formatted as a
	// number when the source file carries no name attribute.
	Name string
}

// LoadZones reads the polygons in a shapefile and reprojects them to the
// spatial reference of the given lattice. nameField, if non-empty, is the
// attribute column holding zone names.
func LoadZones(filename, nameField string, l *Lattice) ([]*Zone, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, &IOError{File: filename, Err: err}
	}
	defer d.Close()
	zoneSR, err := d.SR()
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	trans, err := zoneSR.NewTransform(l.SR)
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}

	var fields []string
	if nameField != "" {
		fields = []string{nameField}
	}
	var zones []*Zone
	for {
		g, attrs, more := d.DecodeRowFields(fields...)
		if !more {
			break
		}
		gg, err := g.Transform(trans)
		if err != nil {
			return nil, &FormatError{File: filename, Err: err}
		}
		p, ok := gg.(geom.Polygonal)
		if !ok {
			return nil, &FormatError{File: filename,
				Err: fmt.Errorf("zone %d is a %T; zones must be polygons", len(zones), gg)}
		}
		z := &Zone{Polygonal: p}
		if nameField != "" {
			z.Name = attrs[nameField]
		} else {
			z.Name = fmt.Sprintf("%d", len(zones))
		}
		zones = append(zones, z)
	}
	if err := d.Error(); err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	return zones, nil
}

// Samples holds one sampled statistic per (zone, time slice) pair.
// Pairs with no valid contributing cells hold a missing value.
type Samples struct {
	// Statistic is the statistic that was computed.
	Statistic Statistic

	nzones, ntimes int
	vals           []float64
}

// Value returns the sampled statistic for the given zone and time indices.
func (s *Samples) Value(zone, time int) float64 {
	return s.vals[zone*s.ntimes+time]
}

// NumZones returns the number of zones that were sampled.
func (s *Samples) NumZones() int { return s.nzones }

// NumTimes returns the number of time slices that were sampled.
func (s *Samples) NumTimes() int { return s.ntimes }

// Sample computes the given statistic over the cells of each time slice
// of the stack that fall within each zone, excluding missing cells.
// A cell belongs to a zone when its center lies inside the zone boundary
// or exactly on it. Zones with no valid cells in a time slice (outside
// the lattice, or entirely over missing data) yield a missing value for
// that pair. Zones are processed independently.
func Sample(stack *GridStack, zones []*Zone, statistic Statistic) (*Samples, error) {
	if stack.Len() == 0 {
		return nil, ErrEmptyStack
	}
	if len(zones) == 0 {
		return nil, ErrNoPolygons
	}
	l := stack.Lattice()

	// Resolve zone membership once; it is shared by every time slice.
	members := make([][]*Cell, len(zones))
	for zi, zone := range zones {
		for _, c := range l.searchIntersect(zone.Bounds()) {
			if c.Centroid().Within(zone.Polygonal) != geom.Outside {
				members[zi] = append(members[zi], c)
			}
		}
	}

	s := &Samples{
		Statistic: statistic,
		nzones:    len(zones),
		ntimes:    stack.Len(),
		vals:      make([]float64, len(zones)*stack.Len()),
	}

	type job struct{ zone, time int }
	nprocs := runtime.GOMAXPROCS(-1)
	jobChan := make(chan job, nprocs)
	doneChan := make(chan int)
	for p := 0; p < nprocs; p++ {
		go func() {
			var vals []float64
			for jb := range jobChan {
				g := stack.Grid(jb.time)
				vals = vals[:0]
				for _, c := range members[jb.zone] {
					if v := g.Data.Get(c.Row, c.Col); !IsMissing(v) {
						vals = append(vals, v)
					}
				}
				if len(vals) == 0 {
					s.vals[jb.zone*s.ntimes+jb.time] = Missing
					continue
				}
				s.vals[jb.zone*s.ntimes+jb.time] = statistic.compute(vals)
			}
			doneChan <- 0
		}()
	}
	for zi := range zones {
		for t := 0; t < stack.Len(); t++ {
			jobChan <- job{zone: zi, time: t}
		}
	}
	close(jobChan)
	for p := 0; p < nprocs; p++ {
		<-doneChan
	}
	return s, nil
}
