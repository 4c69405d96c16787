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
	"errors"
	"fmt"
)

var (
	// ErrEmptyStack is returned by operations that require at least
	// one time slice when given a stack with zero members.
	ErrEmptyStack = errors.New("gridstats: grid stack is empty")

	// ErrNoPolygons is returned when zonal sampling is requested
	// with no zones supplied.
	ErrNoPolygons = errors.New("gridstats: no zone polygons supplied")
)

// A FormatError reports that a source file is unreadable or structurally
// inconsistent with expectations: a missing variable, a malformed lattice,
// or a non-monotonic time coordinate.
type FormatError struct {
	File string // the file that could not be interpreted
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("gridstats: reading %s: %v", e.File, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// An IOError reports an underlying file-system access failure
// while loading a source file.
type IOError struct {
	File string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("gridstats: opening %s: %v", e.File, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
