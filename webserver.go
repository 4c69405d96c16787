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
	"net/http"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const webMapProj = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

// A Server serves map tiles, legends, and time-series charts for a grid
// stack and its zonal samples over HTTP. The endpoints are:
//
//	/map/name&zoom&x&y  a google maps tile, where name is "mean",
//	                    "stddev", or "t<index>" for a single time slice
//	/legend/name        a PNG legend for the named layer
//	/series/zone        a PNG chart of the sampled statistics for the
//	                    zone with the given index
type Server struct {
	Log logrus.FieldLogger

	stack        *GridStack
	mean, stddev *Grid
	samples      []*Samples
	webShapes    []geom.Geom
	mux          *http.ServeMux
}

// NewServer creates a web server for the given stack and the given
// zonal samples (which may be empty if no zones were sampled).
func NewServer(stack *GridStack, samples ...*Samples) (*Server, error) {
	if stack.Len() == 0 {
		return nil, ErrEmptyStack
	}
	s := &Server{
		Log:     logrus.StandardLogger(),
		stack:   stack,
		samples: samples,
	}
	var err error
	if s.mean, err = Reduce(stack, Mean); err != nil {
		return nil, err
	}
	if s.stddev, err = Reduce(stack, StdDev); err != nil {
		return nil, err
	}

	webSR, err := proj.Parse(webMapProj)
	if err != nil {
		panic(err)
	}
	trans, err := stack.Lattice().SR.NewTransform(webSR)
	if err != nil {
		return nil, fmt.Errorf("gridstats: creating web map reprojector: %v", err)
	}
	cells := stack.Lattice().Cells()
	s.webShapes = make([]geom.Geom, len(cells))
	for i, c := range cells {
		g, err := c.Polygonal.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("gridstats: reprojecting cell %d for web mapping: %v", i, err)
		}
		s.webShapes[i] = g
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/map/", s.mapHandler)
	s.mux.HandleFunc("/legend/", s.legendHandler)
	s.mux.HandleFunc("/series/", s.seriesHandler)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// gridByName returns the layer to be mapped: an aggregate statistic or
// a single time slice "t<index>".
func (s *Server) gridByName(name string) (*Grid, error) {
	switch {
	case name == "mean":
		return s.mean, nil
	case name == "stddev":
		return s.stddev, nil
	case strings.HasPrefix(name, "t"):
		i, err := s2i(name[1:])
		if err != nil {
			return nil, fmt.Errorf("gridstats: invalid layer name '%s'", name)
		}
		if i < 0 || i >= s.stack.Len() {
			return nil, fmt.Errorf("gridstats: time index %d out of range [0, %d)", i, s.stack.Len())
		}
		return s.stack.Grid(i), nil
	default:
		return nil, fmt.Errorf("gridstats: invalid layer name '%s'", name)
	}
}

func parseMapRequest(base string, r *http.Request) (name string,
	zoom, x, y int, err error) {
	request := strings.Split(r.URL.Path[len(base):], "&")
	if len(request) != 4 {
		err = fmt.Errorf("gridstats: map request %s should have the format name&zoom&x&y", r.URL.Path)
		return
	}
	name = request[0]
	zoom, err = s2i(request[1])
	if err != nil {
		return
	}
	x, err = s2i(request[2])
	if err != nil {
		return
	}
	y, err = s2i(request[3])
	return
}

func s2i(s string) (int, error) {
	i64, err := strconv.ParseInt(s, 10, 64)
	return int(i64), err
}

func (s *Server) mapHandler(w http.ResponseWriter, r *http.Request) {
	name, z, x, y, err := parseMapRequest("/map/", r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g, err := s.gridByName(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.Log.WithFields(logrus.Fields{
		"layer": name, "zoom": z, "x": x, "y": y,
	}).Debug("serving map tile")

	vals := g.Data.Elements
	m := carto.NewMapData(len(vals), carto.LinCutoff)
	m.Cmap.AddArray(vals)
	m.Cmap.Set()
	m.Shapes = s.webShapes
	m.Data = vals
	if err := m.WriteGoogleMapTile(w, z, x, y); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) legendHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/legend/"):]
	g, err := s.gridByName(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	cmap := carto.NewColorMap(carto.LinCutoff)
	cmap.AddArray(g.Data.Elements)
	cmap.Set()
	const legendWidth = 6.2 * vg.Inch
	const legendHeight = legendWidth * 0.1067
	cmap.LegendWidth = legendWidth
	cmap.LegendHeight = legendHeight
	cmap.LineWidth = 0.5
	cmap.FontSize = 8

	c := vgimg.New(legendWidth, legendHeight)
	dc := draw.New(c)
	if err := cmap.Legend(&dc, name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) seriesHandler(w http.ResponseWriter, r *http.Request) {
	zone, err := s2i(r.URL.Path[len("/series/"):])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(s.samples) == 0 {
		http.Error(w, "gridstats: no zonal samples are loaded", http.StatusNotFound)
		return
	}
	ts, err := Assemble(s.stack, zone, s.samples...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.Log.WithFields(logrus.Fields{"zone": zone}).Debug("serving series chart")

	p, err := plot.New()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	t0 := ts.Points[0].Time
	p.Title.Text = fmt.Sprintf("zone %d", zone)
	p.X.Label.Text = fmt.Sprintf("days since %s", t0.Format("2006-01-02"))

	var args []interface{}
	for _, sample := range s.samples {
		statName := sample.Statistic.String()
		var xys plotter.XYs
		for _, pt := range ts.Points {
			v := pt.Values[statName]
			if IsMissing(v) {
				continue
			}
			xys = append(xys, struct{ X, Y float64 }{
				X: pt.Time.Sub(t0).Hours() / 24,
				Y: v,
			})
		}
		args = append(args, statName, xys)
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := wt.WriteTo(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
