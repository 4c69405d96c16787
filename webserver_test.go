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
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T) *Server {
	stack := testStack(t)
	mean, err := Sample(stack, []*Zone{square(0, 0, 2, 2)}, Mean)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewServer(stack, mean)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServer_GridByName(t *testing.T) {
	s := testServer(t)
	for _, name := range []string{"mean", "stddev", "t0", "t2"} {
		if _, err := s.gridByName(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	for _, name := range []string{"t3", "t-1", "tx", "median", ""} {
		if _, err := s.gridByName(name); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	g, err := s.gridByName("mean")
	if err != nil {
		t.Fatal(err)
	}
	if !g.Aggregate {
		t.Error("the mean layer should be an aggregate")
	}
	g, err = s.gridByName("t1")
	if err != nil {
		t.Fatal(err)
	}
	if v := g.Data.Get(0, 0); v != 2 {
		t.Errorf("layer t1 cell (0,0): got %g, want 2", v)
	}
}

func TestServer_HTTP(t *testing.T) {
	s := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/map/mean&0&0&0", http.StatusOK},
		{"/map/t0&1&0&0", http.StatusOK},
		{"/map/mean&0&0", http.StatusBadRequest},
		{"/map/nope&0&0&0", http.StatusNotFound},
		{"/legend/stddev", http.StatusOK},
		{"/legend/nope", http.StatusNotFound},
		{"/series/0", http.StatusOK},
		{"/series/7", http.StatusNotFound},
		{"/series/x", http.StatusBadRequest},
	}
	for _, test := range tests {
		resp, err := http.Get(srv.URL + test.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != test.status {
			t.Errorf("%s: got status %d, want %d", test.path, resp.StatusCode, test.status)
		}
	}
}

func TestNewServer_EmptyStack(t *testing.T) {
	stack := NewGridStack(NewLattice(2, 2, 1, 1, 0, 0, testSR(t)))
	if _, err := NewServer(stack); err != ErrEmptyStack {
		t.Errorf("got %v, want %v", err, ErrEmptyStack)
	}
}
