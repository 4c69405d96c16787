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

// Package gridstatsutil holds the configuration and command-line
// interface for the gridstats tool.
package gridstatsutil

import (
	"fmt"
	"net/http"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridstats"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to gridstats.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "DataDir",
			usage: `
              DataDir is the directory that relative input file paths are
              resolved against.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "GridFile",
			usage: `
              GridFile is the path to the COARDS-convention NetCDF file holding the
              gridded data. It can be a URL, in which case the file will be downloaded
              first.`,
			defaultVal: "testdata/sst_monthly.nc",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "VarName",
			usage: `
              VarName is the name of the variable to read from GridFile.`,
			defaultVal: "sst",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "ZoneFile",
			usage: `
              ZoneFile is the path to the shapefile holding the zone polygons
              that grid values are sampled over. It can be a URL, in which case
              the file will be downloaded first.`,
			defaultVal: "testdata/zones.shp",
			flagsets:   []*pflag.FlagSet{zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "ZoneNameField",
			usage: `
              ZoneNameField is the attribute column in ZoneFile holding zone names.
              If it is empty, zones are named by their record index.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Statistics",
			usage: `
              Statistics lists the summary statistics to compute. The valid
              entries are 'mean' and 'stddev'.`,
			defaultVal: []string{"mean"},
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path that results are written to. For the reduce
              command it must end in .shp or .nc; for the zonal command it must
              end in .csv and may contain [ZONE] as a wild card for the zone name.`,
			defaultVal: "output_[ZONE].csv",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags()},
		},
		{
			name: "Subset.W",
			usage: `
              Subset.W is the western edge of the longitude-latitude bounding box
              that the grid is restricted to.`,
			defaultVal: -180.0,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Subset.S",
			usage: `
              Subset.S is the southern edge of the bounding box.`,
			defaultVal: -90.0,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Subset.E",
			usage: `
              Subset.E is the eastern edge of the bounding box.`,
			defaultVal: 180.0,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Subset.N",
			usage: `
              Subset.N is the northern edge of the bounding box.`,
			defaultVal: 90.0,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Subset.Level",
			usage: `
              Subset.Level selects the index along the vertical dimension for
              variables that have one.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Subset.StartDate",
			usage: `
              Subset.StartDate restricts the time slices that are read to those
              on or after this date. Format = "YYYYMMDD"; empty means no
              restriction.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Subset.EndDate",
			usage: `
              Subset.EndDate restricts the time slices that are read to those
              before this date. Format = "YYYYMMDD"; empty means no restriction.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), zonalCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "ListenAddr",
			usage: `
              ListenAddr is the address that the web map server listens on.`,
			defaultVal: ":8080",
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GRIDSTATS")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(reduceCmd)
	Root.AddCommand(zonalCmd)
	Root.AddCommand(serveCmd)
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Print(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridstats: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gridstats",
	Short: "Summary statistics for gridded geospatial time series.",
	Long: `gridstats reads a time series of gridded data from a NetCDF file,
reduces it across time, samples it over polygon boundaries, and reports
the results as maps and per-zone time series.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDSTATS_var' where 'var'
is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of gridstats.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gridstats v%s\n", gridstats.Version)
	},
	DisableAutoGenTag: true,
}

// reduceCmd collapses the grid stack across time and saves the
// resulting maps.
var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Reduce the grid stack across time.",
	Long: `reduce computes the requested summary statistics for every lattice
cell across all time slices and saves the resulting grids to OutputFile,
which must end in .shp or .nc.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := outChan()

		stack, err := openStack(Cfg, c)
		if err != nil {
			return err
		}
		statistics, err := getStatistics(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		grids := make(map[string]*gridstats.Grid)
		for _, statistic := range statistics {
			g, err := gridstats.Reduce(stack, statistic)
			if err != nil {
				return err
			}
			grids[statistic.String()] = g
		}
		return saveGrids(outputFile, Cfg.GetString("VarName"), grids)
	},
	DisableAutoGenTag: true,
}

// zonalCmd samples the grid stack over zone polygons and saves one
// time series per zone.
var zonalCmd = &cobra.Command{
	Use:   "zonal",
	Short: "Sample the grid stack over zone polygons.",
	Long: `zonal computes the requested summary statistics over the lattice
cells within each zone polygon for each time slice, and writes one CSV
time series per zone to OutputFile, where [ZONE] is a wild card for the
zone name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := outChan()

		stack, err := openStack(Cfg, c)
		if err != nil {
			return err
		}
		zones, err := openZones(Cfg, stack.Lattice(), c)
		if err != nil {
			return err
		}
		statistics, err := getStatistics(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		samples := make([]*gridstats.Samples, len(statistics))
		for i, statistic := range statistics {
			if samples[i], err = gridstats.Sample(stack, zones, statistic); err != nil {
				return err
			}
		}
		return saveSeries(outputFile, stack, zones, samples)
	},
	DisableAutoGenTag: true,
}

// serveCmd starts the web map server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve maps and charts over HTTP.",
	Long: `serve starts a web server providing map tiles, legends, and
per-zone time series charts for the gridded data. If ZoneFile doesn't
exist, the server runs without zonal sampling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := outChan()
		logger := logrus.StandardLogger()

		stack, err := openStack(Cfg, c)
		if err != nil {
			return err
		}
		var samples []*gridstats.Samples
		zones, err := openZones(Cfg, stack.Lattice(), c)
		if err == nil {
			for _, statistic := range []gridstats.Statistic{gridstats.Mean, gridstats.StdDev} {
				s, err := gridstats.Sample(stack, zones, statistic)
				if err != nil {
					return err
				}
				samples = append(samples, s)
			}
		} else if !os.IsNotExist(unwrapAll(err)) {
			return err
		}

		server, err := gridstats.NewServer(stack, samples...)
		if err != nil {
			return err
		}
		server.Log = logger
		addr := Cfg.GetString("ListenAddr")
		logger.WithFields(logrus.Fields{
			"addr": addr, "slices": stack.Len(), "zones": len(zones),
		}).Info("starting web map server")
		return http.ListenAndServe(addr, server)
	},
	DisableAutoGenTag: true,
}
