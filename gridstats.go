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

// Package gridstats computes summary statistics from time series of
// geospatial raster data. It reads COARDS-convention NetCDF files into
// time-ordered stacks of latitude-longitude grids, reduces the stacks
// across the time dimension, samples them over polygon boundaries read
// from shapefiles, and assembles the results into per-zone time series.
package gridstats

import (
	"fmt"

	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/stat"
)

// Version gives the version number.
const Version = "0.2.0"

// Statistic specifies a summary statistic to be calculated
// over a set of grid cell values.
type Statistic int

const (
	// Mean is the arithmetic average.
	Mean Statistic = iota
	// StdDev is the population standard deviation.
	StdDev
)

func (s Statistic) String() string {
	switch s {
	case Mean:
		return "mean"
	case StdDev:
		return "stddev"
	default:
		panic(fmt.Errorf("gridstats: invalid statistic %d", int(s)))
	}
}

// ParseStatistic returns the Statistic corresponding to name,
// which must be either "mean" or "stddev".
func ParseStatistic(name string) (Statistic, error) {
	switch name {
	case "mean":
		return Mean, nil
	case "stddev":
		return StdDev, nil
	default:
		return -1, fmt.Errorf("gridstats: invalid statistic '%s'; valid options are 'mean' and 'stddev'", name)
	}
}

// compute calculates the receiver statistic over vals,
// which must not be empty and must not contain missing values.
func (s Statistic) compute(vals []float64) float64 {
	switch s {
	case Mean:
		return stat.Mean(vals, nil)
	case StdDev:
		return stats.StatsPopulationStandardDeviation(vals)
	default:
		panic(fmt.Errorf("gridstats: invalid statistic %d", int(s)))
	}
}
