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
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// maybeDownload downloads the file at the given URL and returns the path
// it was downloaded to. For shapefiles, it downloads all associated
// files and returns the path to the file with the ".shp" extension.
// c is a channel across which error and logging messages will be sent.
func maybeDownload(url string, c chan string) string {
	dir, err := os.MkdirTemp("", "gridstats")
	if err != nil {
		panic(fmt.Errorf("gridstatsutil: failed creating temporary download directory: %v", err))
	}

	fnames := expandShp(url)
	for _, fname := range fnames {
		c <- fmt.Sprintf("Downloading %s\n", fname)
		w, err := os.Create(filepath.Join(dir, filepath.Base(fname)))
		if err != nil {
			panic(fmt.Errorf("gridstatsutil: failed creating file for download: %v", err))
		}
		resp, err := http.Get(fname)
		if err != nil {
			c <- err.Error()
			return url
		}
		_, err = io.Copy(w, resp.Body)
		if err != nil {
			c <- err.Error()
			return url
		}
		resp.Body.Close()
		w.Close()
	}
	return filepath.Join(dir, filepath.Base(fnames[0]))
}

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise.
func expandShp(filename string) []string {
	o := []string{filename}
	ext := filepath.Ext(filename)
	if ext != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}
