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
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// A SeriesPoint is the sampled statistics for one zone at one time slice.
type SeriesPoint struct {
	Time time.Time

	// Values maps statistic names to sampled values, which may be missing.
	Values map[string]float64
}

// A TimeSeries holds the sampled statistics for one zone, one point per
// time slice in the source stack, in ascending time order.
type TimeSeries struct {
	ZoneIndex int
	Points    []SeriesPoint
}

// Assemble pairs the timestamp of each time slice in the stack with the
// corresponding sampled statistics for the requested zone. The output
// has exactly one point per stack member, in stack order; timestamps are
// reported as given, with no interpolation or gap-filling.
func Assemble(stack *GridStack, zone int, samples ...*Samples) (*TimeSeries, error) {
	if stack.Len() == 0 {
		return nil, ErrEmptyStack
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("gridstats: assembling zone %d: no samples supplied", zone)
	}
	for _, s := range samples {
		if zone < 0 || zone >= s.NumZones() {
			return nil, fmt.Errorf("gridstats: zone index %d out of range [0, %d)", zone, s.NumZones())
		}
		if s.NumTimes() != stack.Len() {
			return nil, fmt.Errorf("gridstats: samples have %d time slices but the stack has %d",
				s.NumTimes(), stack.Len())
		}
	}
	ts := &TimeSeries{
		ZoneIndex: zone,
		Points:    make([]SeriesPoint, stack.Len()),
	}
	for t, g := range stack.Grids() {
		p := SeriesPoint{Time: g.Time, Values: make(map[string]float64, len(samples))}
		for _, s := range samples {
			p.Values[s.Statistic.String()] = s.Value(zone, t)
		}
		ts.Points[t] = p
	}
	return ts, nil
}

// WriteCSV writes the time series as delimited text with one row per
// time slice. Missing values are written as empty fields.
func (ts *TimeSeries) WriteCSV(w io.Writer) error {
	if len(ts.Points) == 0 {
		return fmt.Errorf("gridstats: time series for zone %d has no points", ts.ZoneIndex)
	}
	names := make([]string, 0, len(ts.Points[0].Values))
	for name := range ts.Points[0].Values {
		names = append(names, name)
	}
	sort.Strings(names)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	row := make([]string, len(names)+1)
	for _, p := range ts.Points {
		row[0] = p.Time.Format(time.RFC3339)
		for i, name := range names {
			v := p.Values[name]
			if IsMissing(v) {
				row[i+1] = ""
			} else {
				row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
