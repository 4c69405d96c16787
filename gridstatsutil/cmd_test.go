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
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spatialmodel/gridstats"
)

func TestGetStatistics(t *testing.T) {
	Cfg.Set("Statistics", []string{"stddev", "mean"})
	statistics, err := getStatistics(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []gridstats.Statistic{gridstats.StdDev, gridstats.Mean}
	if !reflect.DeepEqual(statistics, want) {
		t.Errorf("got %v, want %v", statistics, want)
	}

	Cfg.Set("Statistics", []string{"median"})
	if _, err := getStatistics(Cfg); err == nil {
		t.Error("an invalid statistic name should fail")
	}
	Cfg.Set("Statistics", []string{"mean"})
}

func TestReadOptions(t *testing.T) {
	Cfg.Set("Subset.W", -10.0)
	Cfg.Set("Subset.S", -20.0)
	Cfg.Set("Subset.E", 10.0)
	Cfg.Set("Subset.N", 20.0)
	Cfg.Set("Subset.Level", 3)
	Cfg.Set("Subset.StartDate", "20200102")
	Cfg.Set("Subset.EndDate", "20200304")
	o, err := readOptions(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if o.Bounds.Min.X != -10 || o.Bounds.Min.Y != -20 || o.Bounds.Max.X != 10 || o.Bounds.Max.Y != 20 {
		t.Errorf("unexpected bounds %+v", o.Bounds)
	}
	if o.Level != 3 {
		t.Errorf("got level %d, want 3", o.Level)
	}
	if want := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC); !o.Start.Equal(want) {
		t.Errorf("got start %v, want %v", o.Start, want)
	}
	if want := time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC); !o.End.Equal(want) {
		t.Errorf("got end %v, want %v", o.End, want)
	}

	Cfg.Set("Subset.StartDate", "Jan 2 2020")
	if _, err := readOptions(Cfg); err == nil {
		t.Error("an invalid date should fail")
	}
	Cfg.Set("Subset.StartDate", "")

	Cfg.Set("Subset.W", 10.0)
	Cfg.Set("Subset.E", -10.0)
	if _, err := readOptions(Cfg); err == nil {
		t.Error("an empty bounding box should fail")
	}
}

func TestCheckOutputFile(t *testing.T) {
	if _, err := checkOutputFile(""); err == nil {
		t.Error("an empty output file should fail")
	}
	if _, err := checkOutputFile(filepath.Join("nonexistent_directory", "out.shp")); err == nil {
		t.Error("a missing output directory should fail")
	}
	f := filepath.Join(t.TempDir(), "out.shp")
	got, err := checkOutputFile(f)
	if err != nil {
		t.Fatal(err)
	}
	if got != f {
		t.Errorf("got %q, want %q", got, f)
	}
}

func TestExpandShp(t *testing.T) {
	got := expandShp("zones.shp")
	want := []string{"zones.shp", "zones.dbf", "zones.shx", "zones.prj"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	got = expandShp("data.nc")
	if !reflect.DeepEqual(got, []string{"data.nc"}) {
		t.Errorf("got %v, want [data.nc]", got)
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("North / Sea: east"); got != "North___Sea__east" {
		t.Errorf("got %q", got)
	}
}
