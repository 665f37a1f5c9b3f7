/*
Copyright © 2025 the SigStudy authors.
This file is part of SigStudy.

SigStudy is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SigStudy is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SigStudy.  If not, see <http://www.gnu.org/licenses/>.
*/

package sigstudy

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestWriteShapefile(t *testing.T) {
	s, src := gridScenario(t)
	if err := s.Setup(src); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	name := filepath.Join(dir, "out.shp")
	if err := s.WriteShapefile(name, src); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{".shp", ".dbf", ".prj"} {
		p := filepath.Join(dir, "out"+ext)
		fi, err := os.Stat(p)
		if err != nil {
			t.Errorf("%s: %v", p, err)
			continue
		}
		if fi.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
	}
	prj, err := os.ReadFile(filepath.Join(dir, "out.prj"))
	if err != nil {
		t.Fatal(err)
	}
	if string(prj) != wgs84WKT {
		t.Error("prj file does not carry the WGS84 definition")
	}
}

func TestWriteCSV(t *testing.T) {
	s, src := gridScenario(t)
	if err := s.Setup(src); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 2 {
		t.Fatalf("got %d rows, want a header and at least one field row", len(rows))
	}
	wantHeader := []string{
		"point_lat", "point_lon", "country", "population", "households",
		"area_km", "elevation_m", "source_key", "call_sign", "role",
		"percent_time", "bearing", "distance_km", "field", "status",
	}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header column %d = %q, want %q", i, rows[0][i], col)
		}
	}

	// One row per field, longitude flipped to east-positive.
	nfields := 0
	for _, pt := range s.Points() {
		nfields += len(pt.Fields)
	}
	if got := len(rows) - 1; got != nfields {
		t.Errorf("%d field rows, want %d", got, nfields)
	}
	for _, row := range rows[1:] {
		lon, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			t.Fatal(err)
		}
		if lon > 0 {
			t.Fatalf("exported longitude %g is not east-positive for a western point", lon)
		}
		if row[8] != src.CallSign {
			t.Errorf("call sign = %q, want %q", row[8], src.CallSign)
		}
		if row[9] != "desired" {
			t.Errorf("role = %q, want desired (no undesireds in this scenario)", row[9])
		}
	}
}

func TestPointGeometryCell(t *testing.T) {
	s, src := gridScenario(t)
	if err := s.Setup(src); err != nil {
		t.Fatal(err)
	}
	pt := s.Points()[0]
	poly := s.pointGeometry(pt)
	ring := poly.Polygons()[0][0]
	if len(ring) != 5 {
		t.Fatalf("ring has %d points, want a closed 5-point box", len(ring))
	}
	if ring[0] != ring[4] {
		t.Error("ring is not explicitly closed")
	}
	south := secondsToDegrees(pt.Grid.CellLat)
	east := -secondsToDegrees(pt.Grid.CellLon)
	if ring[1].X != east || ring[1].Y != south {
		t.Errorf("southeast corner = %g, %g, want %g, %g", ring[1].X, ring[1].Y, east, south)
	}
	// Counterclockwise in east-positive coordinates: west then east along
	// the south edge.
	if ring[0].X >= ring[1].X {
		t.Error("ring does not run counterclockwise")
	}
}

func TestPointGeometryReceiver(t *testing.T) {
	s := NewStudy(Config{Mode: ModePoints, Countries: []int{1}})
	pt, err := s.AddPoint(40.5, 100.25, 10)
	if err != nil {
		t.Fatal(err)
	}
	poly := s.pointGeometry(pt)
	ring := poly.Polygons()[0][0]
	for _, p := range ring {
		if p.X != -100.25 || p.Y != 40.5 {
			t.Errorf("degenerate box corner = %g, %g, want -100.25, 40.5", p.X, p.Y)
		}
	}
}
