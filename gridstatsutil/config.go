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

package gridstatsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/gridstats"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// inputPath expands environment variables in the configuration variable
// with the given name, resolves relative paths against DataDir, and
// downloads the file if it is a URL.
func inputPath(cfg *viper.Viper, name string, c chan string) string {
	p := os.ExpandEnv(cfg.GetString(name))
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return maybeDownload(p, c)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(os.ExpandEnv(cfg.GetString("DataDir")), p)
	}
	return p
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.shp")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("gridstats: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// readOptions unmarshals the Subset configuration variables.
func readOptions(cfg *viper.Viper) (*gridstats.ReadOptions, error) {
	o := &gridstats.ReadOptions{
		Bounds: &geom.Bounds{
			Min: geom.Point{X: cfg.GetFloat64("Subset.W"), Y: cfg.GetFloat64("Subset.S")},
			Max: geom.Point{X: cfg.GetFloat64("Subset.E"), Y: cfg.GetFloat64("Subset.N")},
		},
		Level: cfg.GetInt("Subset.Level"),
	}
	if o.Bounds.Min.X >= o.Bounds.Max.X || o.Bounds.Min.Y >= o.Bounds.Max.Y {
		return nil, fmt.Errorf("gridstats: the Subset bounding box W=%g S=%g E=%g N=%g is empty",
			o.Bounds.Min.X, o.Bounds.Min.Y, o.Bounds.Max.X, o.Bounds.Max.Y)
	}
	var err error
	if s := cfg.GetString("Subset.StartDate"); s != "" {
		if o.Start, err = time.Parse("20060102", s); err != nil {
			return nil, fmt.Errorf("gridstats: parsing Subset.StartDate: %v", err)
		}
	}
	if s := cfg.GetString("Subset.EndDate"); s != "" {
		if o.End, err = time.Parse("20060102", s); err != nil {
			return nil, fmt.Errorf("gridstats: parsing Subset.EndDate: %v", err)
		}
	}
	return o, nil
}

// openStack reads the grid stack specified by the GridFile, VarName, and
// Subset configuration variables.
func openStack(cfg *viper.Viper, c chan string) (*gridstats.GridStack, error) {
	o, err := readOptions(cfg)
	if err != nil {
		return nil, err
	}
	gridFile := inputPath(cfg, "GridFile", c)
	varName := os.ExpandEnv(cfg.GetString("VarName"))
	c <- fmt.Sprintf("Reading %s from %s\n", varName, gridFile)
	stack, err := gridstats.ReadCOARDSFile(gridFile, varName, o)
	if err != nil {
		return nil, err
	}
	c <- fmt.Sprintf("Read %d time slices on a %d x %d lattice\n",
		stack.Len(), stack.Lattice().Nx, stack.Lattice().Ny)
	return stack, nil
}

// openZones reads the zone polygons specified by the ZoneFile and
// ZoneNameField configuration variables, reprojected to the lattice.
func openZones(cfg *viper.Viper, l *gridstats.Lattice, c chan string) ([]*gridstats.Zone, error) {
	zoneFile := inputPath(cfg, "ZoneFile", c)
	nameField := os.ExpandEnv(cfg.GetString("ZoneNameField"))
	zones, err := gridstats.LoadZones(zoneFile, nameField, l)
	if err != nil {
		return nil, err
	}
	c <- fmt.Sprintf("Read %d zones from %s\n", len(zones), zoneFile)
	return zones, nil
}

// getStatistics unmarshals the Statistics configuration variable.
func getStatistics(cfg *viper.Viper) ([]gridstats.Statistic, error) {
	names, err := cast.ToStringSliceE(cfg.Get("Statistics"))
	if err != nil {
		return nil, fmt.Errorf("gridstats: parsing config variable Statistics: %v", err)
	}
	names = expandStringSlice(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("gridstats: the Statistics configuration variable is empty")
	}
	statistics := make([]gridstats.Statistic, len(names))
	for i, name := range names {
		if statistics[i], err = gridstats.ParseStatistic(name); err != nil {
			return nil, err
		}
	}
	return statistics, nil
}

// saveGrids writes reduced grids to outputFile, which must end in .shp
// or .nc. NetCDF output holds one variable per file, so when more than
// one statistic was computed the statistic name is appended to the file
// name of each.
func saveGrids(outputFile, varName string, grids map[string]*gridstats.Grid) error {
	switch filepath.Ext(outputFile) {
	case ".shp":
		return gridstats.WriteShapefile(outputFile, grids)
	case ".nc":
		base := strings.TrimSuffix(outputFile, ".nc")
		for stat, g := range grids {
			fname := outputFile
			if len(grids) > 1 {
				fname = base + "_" + stat + ".nc"
			}
			if err := gridstats.WriteNetCDF(fname, varName, g); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("gridstats: OutputFile %s must end in .shp or .nc", outputFile)
	}
}

// saveSeries writes one CSV time series per zone, replacing the [ZONE]
// wild card in outputFile with the zone name.
func saveSeries(outputFile string, stack *gridstats.GridStack, zones []*gridstats.Zone, samples []*gridstats.Samples) error {
	if len(zones) > 1 && !strings.Contains(outputFile, "[ZONE]") {
		return fmt.Errorf("gridstats: OutputFile %s needs a [ZONE] wild card to hold %d zones", outputFile, len(zones))
	}
	if filepath.Ext(outputFile) != ".csv" {
		return fmt.Errorf("gridstats: OutputFile %s must end in .csv", outputFile)
	}
	for zi, zone := range zones {
		ts, err := gridstats.Assemble(stack, zi, samples...)
		if err != nil {
			return err
		}
		fname := strings.Replace(outputFile, "[ZONE]", sanitizeName(zone.Name), -1)
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("gridstats: creating output file: %v", err)
		}
		if err := ts.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeName makes a zone name safe for use in a file name.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, name)
}

// unwrapAll returns the innermost error in a chain of wrapped errors.
func unwrapAll(err error) error {
	for {
		u := errors.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
}
