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

// Command gridstats is a command-line interface for computing summary
// statistics of gridded geospatial time series.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/gridstats/gridstatsutil"
)

func main() {
	if err := gridstatsutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
