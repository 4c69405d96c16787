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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"gonum.org/v1/gonum/floats"
)

// fillValue flags missing cells in NetCDF output; it is the CF default
// fill for 32-bit floats.
const fillValue float32 = 9.96921e36

const longlatWKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// WriteShapefile saves one or more grids sharing a lattice as an ESRI
// shapefile holding one polygon per lattice cell with one attribute
// field per grid, along with a .prj projection sidecar file.
func WriteShapefile(fileName string, grids map[string]*Grid) error {
	if len(grids) == 0 {
		return fmt.Errorf("gridstats: no grids to write to %s", fileName)
	}
	vars := make([]string, 0, len(grids))
	for v := range grids {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	var l *Lattice
	for _, v := range vars {
		if l == nil {
			l = grids[v].Lattice()
		} else if grids[v].Lattice() != l {
			return fmt.Errorf("gridstats: grids written together must share a lattice")
		}
	}

	fields := make([]goshp.Field, len(vars))
	for i, v := range vars {
		fields[i] = goshp.FloatField(v, 14, 8)
	}

	fileBase := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	fileName = fileBase + ".shp"
	shape, err := shp.NewEncoderFromFields(fileName, goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("gridstats: creating output shapefile: %v", err)
	}
	for _, c := range l.Cells() {
		outFields := make([]interface{}, len(vars))
		for i, v := range vars {
			outFields[i] = grids[v].Data.Get(c.Row, c.Col)
		}
		if err := shape.EncodeFields(c.Polygonal, outFields...); err != nil {
			return fmt.Errorf("gridstats: writing output shapefile: %v", err)
		}
	}
	shape.Close()

	f, err := os.Create(fileBase + ".prj")
	if err != nil {
		return fmt.Errorf("gridstats: creating output prj file: %v", err)
	}
	fmt.Fprint(f, longlatWKT)
	return f.Close()
}

// WriteNetCDF saves a grid as a COARDS-convention NetCDF file with the
// given variable name. Missing cells are written as the _FillValue.
func WriteNetCDF(fileName, varName string, g *Grid) error {
	l := g.Lattice()

	h := cdf.NewHeader([]string{"lat", "lon"}, []int{l.Ny, l.Nx})
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable(varName, []string{"lat", "lon"}, []float32{0})
	h.AddAttribute(varName, "_FillValue", []float32{fillValue})

	data := make([]float32, l.Ny*l.Nx)
	var valid []float64
	for i, v := range g.Data.Elements {
		if IsMissing(v) {
			data[i] = fillValue
			continue
		}
		data[i] = float32(v)
		valid = append(valid, v)
	}
	if len(valid) > 0 {
		h.AddAttribute(varName, "actual_range",
			[]float32{float32(floats.Min(valid)), float32(floats.Max(valid))})
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("gridstats: creating NetCDF file %s: %v", fileName, err)
	}

	ff, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("gridstats: creating NetCDF file %s: %v", fileName, err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("gridstats: creating NetCDF file %s: %v", fileName, err)
	}

	lats := make([]float64, l.Ny)
	for j := range lats {
		lats[j] = l.Y0 + (float64(j)+0.5)*l.Dy
	}
	lons := make([]float64, l.Nx)
	for i := range lons {
		lons[i] = l.X0 + (float64(i)+0.5)*l.Dx
	}
	for _, v := range []struct {
		name string
		vals []float64
	}{{"lat", lats}, {"lon", lons}} {
		w := f.Writer(v.name, []int{0}, []int{len(v.vals)})
		if _, err := w.Write(v.vals); err != nil {
			return fmt.Errorf("gridstats: writing %s to %s: %v", v.name, fileName, err)
		}
	}
	w := f.Writer(varName, []int{0, 0}, []int{l.Ny, l.Nx})
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("gridstats: writing %s to %s: %v", varName, fileName, err)
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("gridstats: finalizing NetCDF file %s: %v", fileName, err)
	}
	return nil
}
