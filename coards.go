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
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// longlat is the spatial reference of COARDS latitude-longitude grids.
const longlat = "+proj=longlat"

// ReadOptions specify optional subsetting of the data being read.
// The zero value reads the full extent of the variable.
type ReadOptions struct {
	// Bounds, if non-nil, restricts the grid to cells whose centers lie
	// within the given longitude-latitude bounding box.
	Bounds *geom.Bounds

	// Level selects the index along the vertical dimension for
	// variables that have one. It is ignored otherwise.
	Level int

	// Start and End restrict the time slices that are read to
	// Start <= t < End. The zero time means no restriction.
	Start, End time.Time
}

// ReadCOARDSFile reads the named variable from a COARDS-convention
// NetCDF file (NetCDF 4 and greater not supported) and returns a stack
// holding one grid per time index in the file. Variables without a time
// dimension yield a stack of length 1. Data are assumed to be stored
// latitude-major, and cells flagged with the variable's _FillValue or
// missing_value attribute are converted to missing values.
func ReadCOARDSFile(filename, varName string, o *ReadOptions) (*GridStack, error) {
	if o == nil {
		o = new(ReadOptions)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, &IOError{File: filename, Err: err}
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}

	dims := nc.Header.Dimensions(varName)
	if len(dims) == 0 {
		return nil, &FormatError{File: filename,
			Err: fmt.Errorf("variable %s is not in the file", varName)}
	}
	axes, err := classifyDims(dims)
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	lengths := nc.Header.Lengths(varName)
	axes.nlat = lengths[axes.latIndex]
	axes.nlon = lengths[axes.lonIndex]
	if axes.vertical != "" {
		axes.nz = lengths[axes.verticalIndex]
	}

	lons, err := readCoordVar(nc, axes.lon)
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	lats, err := readCoordVar(nc, axes.lat)
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	if err := checkRegular(lons, axes.lon); err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	if err := checkRegular(lats, axes.lat); err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}

	if len(lons) != axes.nlon || len(lats) != axes.nlat {
		return nil, &FormatError{File: filename,
			Err: fmt.Errorf("coordinate lengths (%d, %d) don't match variable %s lattice (%d, %d)",
				len(lats), len(lons), varName, axes.nlat, axes.nlon)}
	}

	var times []time.Time
	nt := 1
	if axes.time != "" {
		times, err = readTimeVar(nc, axes.time)
		if err != nil {
			return nil, &FormatError{File: filename, Err: err}
		}
		if len(times) != lengths[axes.timeIndex] {
			return nil, &FormatError{File: filename,
				Err: fmt.Errorf("time coordinate length %d doesn't match variable %s", len(times), varName)}
		}
		nt = len(times)
	}

	data, err := readVar(nc, varName)
	if err != nil {
		return nil, &FormatError{File: filename, Err: err}
	}
	applyFillValue(nc, varName, data)

	// Latitudes are sometimes stored north-to-south; normalize the
	// row order to ascending latitude.
	flip := false
	if lats[len(lats)-1] < lats[0] {
		flip = true
		reverse(lats)
	}

	i0, i1 := boundsRange(lons, boundsMin(o.Bounds).X, boundsMax(o.Bounds).X)
	j0, j1 := boundsRange(lats, boundsMin(o.Bounds).Y, boundsMax(o.Bounds).Y)
	if i0 >= i1 || j0 >= j1 {
		return nil, &FormatError{File: filename,
			Err: fmt.Errorf("bounding box %v does not intersect the %s lattice", o.Bounds, varName)}
	}

	nlon, nlat := len(lons), len(lats)
	dx := (lons[nlon-1] - lons[0]) / float64(nlon-1)
	dy := (lats[nlat-1] - lats[0]) / float64(nlat-1)

	sr, err := proj.Parse(longlat)
	if err != nil {
		panic(err)
	}
	lattice := NewLattice(i1-i0, j1-j0, dx, dy,
		lons[i0]-dx/2, lats[j0]-dy/2, sr)
	stack := NewGridStack(lattice)

	level := 0
	if axes.vertical != "" {
		if o.Level < 0 || o.Level >= axes.nz {
			return nil, &FormatError{File: filename,
				Err: fmt.Errorf("level %d out of range for variable %s with %d levels", o.Level, varName, axes.nz)}
		}
		level = o.Level
	}

	for t := 0; t < nt; t++ {
		var stamp time.Time
		if times != nil {
			stamp = times[t]
			if !o.Start.IsZero() && stamp.Before(o.Start) {
				continue
			}
			if !o.End.IsZero() && !stamp.Before(o.End) {
				continue
			}
		}
		vals := sparse.ZerosDense(j1-j0, i1-i0)
		for j := j0; j < j1; j++ {
			srcRow := j
			if flip {
				srcRow = nlat - 1 - j
			}
			for i := i0; i < i1; i++ {
				vals.Set(cellValue(data, axes, t, level, srcRow, i), j-j0, i-i0)
			}
		}
		if err := stack.Append(vals, stamp); err != nil {
			return nil, &FormatError{File: filename, Err: err}
		}
	}
	if stack.Len() == 0 {
		return nil, &FormatError{File: filename,
			Err: fmt.Errorf("no time slices of %s remain within %v–%v", varName, o.Start, o.End)}
	}
	return stack, nil
}

// varAxes describes which dimension of a variable serves which role,
// along with the length of each.
type varAxes struct {
	time, vertical, lat, lon                     string
	timeIndex, verticalIndex, latIndex, lonIndex int
	rank                                         int
	nz, nlat, nlon                               int
}

// classifyDims matches the dimensions of a variable against the
// dimension orderings that COARDS allows: (time?, vertical?, lat, lon).
func classifyDims(dims []string) (*varAxes, error) {
	a := &varAxes{timeIndex: -1, verticalIndex: -1, rank: len(dims)}
	if len(dims) < 2 || len(dims) > 4 {
		return nil, fmt.Errorf("variable has %d dimensions; expected between 2 and 4", len(dims))
	}
	for i, d := range dims {
		switch {
		case isLonDim(d):
			a.lon, a.lonIndex = d, i
		case isLatDim(d):
			a.lat, a.latIndex = d, i
		case isTimeDim(d):
			a.time, a.timeIndex = d, i
		case isVerticalDim(d):
			a.vertical, a.verticalIndex = d, i
		default:
			return nil, fmt.Errorf("unrecognized dimension %s", d)
		}
	}
	if a.lat == "" || a.lon == "" {
		return nil, fmt.Errorf("dimensions %v do not contain a latitude-longitude lattice", dims)
	}
	if a.lonIndex != len(dims)-1 || a.latIndex != len(dims)-2 {
		return nil, fmt.Errorf("dimensions %v are not latitude-major", dims)
	}
	if a.time != "" && a.timeIndex != 0 {
		return nil, fmt.Errorf("time must be the first of dimensions %v", dims)
	}
	return a, nil
}

func isLonDim(d string) bool {
	switch strings.ToLower(d) {
	case "lon", "longitude", "x":
		return true
	}
	return false
}

func isLatDim(d string) bool {
	switch strings.ToLower(d) {
	case "lat", "latitude", "y":
		return true
	}
	return false
}

func isTimeDim(d string) bool {
	return strings.ToLower(d) == "time"
}

func isVerticalDim(d string) bool {
	switch strings.ToLower(d) {
	case "depth", "level", "lev", "z":
		return true
	}
	return false
}

// cellValue extracts one cell from the flattened row-major variable data.
func cellValue(data []float64, a *varAxes, t, level, row, col int) float64 {
	switch a.rank {
	case 2:
		return data[row*a.nlon+col]
	case 3:
		if a.time != "" {
			return data[(t*a.nlat+row)*a.nlon+col]
		}
		return data[(level*a.nlat+row)*a.nlon+col]
	default: // 4
		return data[((t*a.nz+level)*a.nlat+row)*a.nlon+col]
	}
}

// readVar reads the full extent of a floating-point variable.
func readVar(nc *cdf.File, v string) ([]float64, error) {
	r := nc.Reader(v, nil, nil)
	buf := r.Zero(-1)
	switch buf.(type) {
	case []float32, []float64:
	default:
		return nil, fmt.Errorf("variable %s is not floating point", v)
	}
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", v, err)
	}
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		data := make([]float64, len(b))
		for i, val := range b {
			data[i] = float64(val)
		}
		return data, nil
	default:
		panic("this shouldn't happen")
	}
}

// readCoordVar reads a 1-D coordinate variable and requires it to be
// strictly monotonic with at least 2 values.
func readCoordVar(nc *cdf.File, v string) ([]float64, error) {
	if len(nc.Header.Dimensions(v)) != 1 {
		return nil, fmt.Errorf("coordinate variable %s is missing or not 1-dimensional", v)
	}
	vals, err := readVar(nc, v)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, fmt.Errorf("coordinate variable %s must have length >= 2 but has %d", v, len(vals))
	}
	asc := vals[1] > vals[0]
	for i := 1; i < len(vals); i++ {
		if (vals[i] > vals[i-1]) != asc || vals[i] == vals[i-1] {
			return nil, fmt.Errorf("coordinate variable %s is not strictly monotonic", v)
		}
	}
	return vals, nil
}

// checkRegular requires the spacing of coordinate centers to be uniform
// to within 0.1%, the tolerance needed to treat them as a regular lattice.
func checkRegular(centers []float64, name string) error {
	d := (centers[len(centers)-1] - centers[0]) / float64(len(centers)-1)
	for i := 1; i < len(centers); i++ {
		if math.Abs((centers[i]-centers[i-1]-d)/d) > 1e-3 {
			return fmt.Errorf("coordinate variable %s is not regularly spaced", name)
		}
	}
	return nil
}

// readTimeVar reads the time coordinate and converts it to timestamps
// using its CF units attribute ("days since 2000-01-01" and the like).
func readTimeVar(nc *cdf.File, v string) ([]time.Time, error) {
	vals, err := readVar(nc, v)
	if err != nil {
		return nil, err
	}
	units := attributeString(nc, v, "units")
	if units == "" {
		return nil, fmt.Errorf("time variable %s has no units attribute", v)
	}
	step, base, err := parseTimeUnits(units)
	if err != nil {
		return nil, fmt.Errorf("time variable %s: %v", v, err)
	}
	times := make([]time.Time, len(vals))
	for i, val := range vals {
		times[i] = base.Add(time.Duration(val * float64(step)))
	}
	return times, nil
}

// parseTimeUnits splits a CF time unit string of the form
// "<interval> since <timestamp>" into a step duration and a base time.
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("invalid time units '%s'", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "second", "seconds", "sec", "secs", "s":
		step = time.Second
	case "minute", "minutes", "min", "mins":
		step = time.Minute
	case "hour", "hours", "hr", "hrs", "h":
		step = time.Hour
	case "day", "days", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("invalid time interval '%s'", parts[0])
	}
	stamp := strings.TrimSpace(parts[1])
	for _, format := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if base, err := time.Parse(format, stamp); err == nil {
			return step, base, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("invalid base time '%s'", stamp)
}

// applyFillValue converts cells holding the variable's _FillValue or
// missing_value to NaN.
func applyFillValue(nc *cdf.File, v string, data []float64) {
	for _, attr := range []string{"_FillValue", "missing_value"} {
		noDataI := nc.Header.GetAttribute(v, attr)
		if noDataI == nil {
			continue
		}
		var noData float64
		switch nd := noDataI.(type) {
		case []float32:
			if len(nd) == 0 {
				continue
			}
			noData = float64(nd[0])
		case []float64:
			if len(nd) == 0 {
				continue
			}
			noData = nd[0]
		default:
			continue
		}
		for i, d := range data {
			if d == noData {
				data[i] = math.NaN()
			}
		}
	}
}

// attributeString returns a string attribute of a variable, or "" if the
// attribute is absent or not a string.
func attributeString(nc *cdf.File, v, name string) string {
	attr := nc.Header.GetAttribute(v, name)
	switch a := attr.(type) {
	case string:
		return a
	case []byte:
		return string(a)
	default:
		return ""
	}
}

// boundsRange returns the half-open index range of coordinate centers
// falling within [min, max]. centers must be ascending.
func boundsRange(centers []float64, min, max float64) (int, int) {
	lo, hi := 0, len(centers)
	for lo < len(centers) && centers[lo] < min {
		lo++
	}
	for hi > lo && centers[hi-1] > max {
		hi--
	}
	return lo, hi
}

func boundsMin(b *geom.Bounds) geom.Point {
	if b == nil {
		return geom.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	}
	return b.Min
}

func boundsMax(b *geom.Bounds) geom.Point {
	if b == nil {
		return geom.Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return b.Max
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
