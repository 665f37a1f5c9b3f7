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
	"math"
	"testing"
)

func TestCellSizes(t *testing.T) {
	if got := latCellSize(2.0); got != 65 {
		t.Errorf("latCellSize(2.0) = %d, want 65", got)
	}
	if got := latCellSize(0.0001); got != 1 {
		t.Errorf("latCellSize(0.0001) = %d, want 1", got)
	}
	if got := lonCellSizeAt(2.0, 0); got != 65 {
		t.Errorf("lonCellSizeAt(2.0, 0) = %d, want 65", got)
	}
	if got := lonCellSizeAt(2.0, 60); got != 129 {
		t.Errorf("lonCellSizeAt(2.0, 60) = %d, want 129", got)
	}
}

func TestGlobalBands(t *testing.T) {
	for _, cellKm := range []float64{0.1, 2.0, 10.0, 50.0} {
		bands := globalBands(cellKm)
		if len(bands) == 0 {
			t.Fatalf("cell %g: no bands", cellKm)
		}
		for i := 1; i < len(bands); i++ {
			if bands[i].LonSize <= bands[i-1].LonSize {
				t.Errorf("cell %g: band %d size %d does not increase from %d",
					cellKm, i, bands[i].LonSize, bands[i-1].LonSize)
			}
			if bands[i].MaxLatSec <= bands[i-1].MaxLatSec {
				t.Errorf("cell %g: band %d boundary %d does not increase from %d",
					cellKm, i, bands[i].MaxLatSec, bands[i-1].MaxLatSec)
			}
		}
		if last := bands[len(bands)-1].MaxLatSec; last > int(maxBandLatDeg*3600) {
			t.Errorf("cell %g: last band boundary %d exceeds the %g° cap",
				cellKm, last, maxBandLatDeg)
		}
	}
}

func TestGlobalLonSizeSymmetry(t *testing.T) {
	bands := globalBands(2.0)
	for _, latSec := range []int{0, 36000, 144000, 216000, 270001} {
		n := globalLonSize(bands, latSec)
		s := globalLonSize(bands, -latSec)
		if n != s {
			t.Errorf("lat %d: north size %d != south size %d", latSec, n, s)
		}
	}
}

func TestRowLonCellSizeAtEquator(t *testing.T) {
	g := newGrid(GridGlobal, 2.0, 0)
	// Rows touching the equator from both sides take the equator band.
	if n, s := g.rowLonCellSize(0), g.rowLonCellSize(-1); n != s {
		t.Errorf("equator-adjacent rows differ: %d vs %d", n, s)
	}
	// A row at 60° must be wider than one at the equator.
	row60 := floorDiv(60*3600, g.LatSize)
	if lo, hi := g.rowLonCellSize(0), g.rowLonCellSize(row60); hi <= lo {
		t.Errorf("row at 60° size %d not wider than equator size %d", hi, lo)
	}
}

func TestLayoutGridAlignment(t *testing.T) {
	s := NewStudy(Config{
		Mode: ModeGrid, GridType: GridLocal,
		CellSizeKm: 2.0, LonSizeArcSec: 60,
		Countries: []int{1},
	})
	if err := s.LayoutGrid(SecondsBounds{South: 144000, North: 144300, East: 288000, West: 288300}); err != nil {
		t.Fatal(err)
	}
	g := s.Grid()
	if g.southIndex*g.LatSize > 144000 {
		t.Errorf("south edge %d does not cover the requested bound", g.southIndex*g.LatSize)
	}
	if (g.southIndex+g.latCount)*g.LatSize < 144300 {
		t.Error("north edge does not cover the requested bound")
	}
	// Layout of an overlapping box with the same parameters must keep
	// the original cell edges: indices are absolute, edges never move.
	latIdx := g.southIndex + 1
	lonIdx := g.eastIndex + 1
	cellLat, cellLon := g.cellEdges(latIdx, lonIdx)
	if cellLat%g.LatSize != 0 || cellLon%g.LonSize != 0 {
		t.Errorf("cell edges %d, %d are not whole cell multiples", cellLat, cellLon)
	}
	if err := s.LayoutGrid(SecondsBounds{South: 143000, North: 145000, East: 287000, West: 289000}); err != nil {
		t.Fatal(err)
	}
	cellLat2, cellLon2 := g.cellEdges(latIdx, lonIdx)
	if cellLat2 != cellLat || cellLon2 != cellLon {
		t.Errorf("cell edges moved from %d, %d to %d, %d after growth",
			cellLat, cellLon, cellLat2, cellLon2)
	}
}

func TestExtendKeepsPoints(t *testing.T) {
	s := NewStudy(Config{
		Mode: ModeGrid, GridType: GridLocal,
		CellSizeKm: 2.0, LonSizeArcSec: 60,
		Countries: []int{1},
	})
	if err := s.LayoutGrid(SecondsBounds{South: 144000, North: 144300, East: 288000, West: 288300}); err != nil {
		t.Fatal(err)
	}
	g := s.Grid()
	cellLat, cellLon := g.cellEdges(g.southIndex+1, g.eastIndex+1)
	pt := &StudyPoint{Grid: &GridPointData{CellLat: cellLat, CellLon: cellLon}}
	slot, ok := g.slotForEdges(cellLat, cellLon)
	if !ok {
		t.Fatal("cell not found in its own grid")
	}
	g.addPoint(slot, pt)

	if err := s.LayoutGrid(SecondsBounds{South: 142000, North: 146000, East: 286000, West: 290000}); err != nil {
		t.Fatal(err)
	}
	slot2, ok := g.slotForEdges(cellLat, cellLon)
	if !ok {
		t.Fatal("cell lost after growth")
	}
	found := false
	for _, p := range g.pointsAt(slot2) {
		if p == pt {
			found = true
		}
	}
	if !found {
		t.Error("point not redistributed to its cell after growth")
	}
}

func TestGlobalExtendKeepsPointsAcrossLongitudes(t *testing.T) {
	s := NewStudy(Config{
		Mode: ModeGrid, GridType: GridGlobal,
		CellSizeKm: 2.0, Countries: []int{1},
	})
	if err := s.LayoutGrid(SecondsBounds{South: 144000, North: 144300, East: 360000, West: 360300}); err != nil {
		t.Fatal(err)
	}
	g := s.Grid()
	latIdx := g.southIndex + 1
	lonIdx := floorDiv(360000, g.rowLonCellSize(latIdx)) + 1
	cellLat, cellLon := g.cellEdges(latIdx, lonIdx)
	pt := &StudyPoint{Grid: &GridPointData{CellLat: cellLat, CellLon: cellLon}}
	slot, ok := g.slotForEdges(cellLat, cellLon)
	if !ok {
		t.Fatal("cell not found in its own grid")
	}
	g.addPoint(slot, pt)

	// Layouts at the same latitudes but other longitudes, east and then
	// west of the first region, must keep its cells addressable: row
	// coverage is the union of everything laid out so far.
	for _, east := range []int{324000, 396000} {
		if err := s.LayoutGrid(SecondsBounds{South: 144000, North: 144300, East: east, West: east + 300}); err != nil {
			t.Fatal(err)
		}
		slot2, ok := g.slotForEdges(cellLat, cellLon)
		if !ok {
			t.Fatalf("cell %d, %d lost after layout at %d", cellLat, cellLon, east)
		}
		found := false
		for _, p := range g.pointsAt(slot2) {
			if p == pt {
				found = true
			}
		}
		if !found {
			t.Errorf("point not redistributed to its cell after layout at %d", east)
		}
	}
}

func TestCellAreaAt(t *testing.T) {
	g := newGrid(GridLocal, 2.0, 65)
	// At the equator a 65x65 arc-second cell is about 2x2 km; the cell
	// center sits half a cell north, so allow for its cosine.
	area := g.cellAreaAt(0)
	want := math.Pow(65.0/3600*KilometersPerDegree, 2)
	if math.Abs(area-want) > 1e-6 {
		t.Errorf("cellAreaAt(0) = %g, want %g", area, want)
	}
	// Area shrinks toward the poles.
	row60 := floorDiv(60*3600, g.LatSize)
	if a := g.cellAreaAt(row60); a >= area {
		t.Errorf("area at 60° (%g) not smaller than at the equator (%g)", a, area)
	}
}

func TestRegionRowColumnsGlobal(t *testing.T) {
	g := newGrid(GridGlobal, 2.0, 0)
	b := SecondsBounds{South: 215900, North: 216200, East: 288000, West: 288500}
	r := g.region(b)
	if r.East != b.East || r.West != b.West {
		t.Error("global region must keep arc-second east/west bounds")
	}
	for latIdx := r.SouthRow; latIdx < r.NorthRow; latIdx++ {
		east, west := g.rowColumns(r, latIdx)
		size := g.rowLonCellSize(latIdx)
		if east*size > b.East {
			t.Errorf("row %d: east column edge %d does not cover bound %d", latIdx, east*size, b.East)
		}
		if west*size < b.West {
			t.Errorf("row %d: west column edge %d does not cover bound %d", latIdx, west*size, b.West)
		}
	}
}

func TestGridReset(t *testing.T) {
	g := newGrid(GridLocal, 2.0, 60)
	g.extend(gridRegion{SouthRow: 10, NorthRow: 12, East: 20, West: 22})
	slot, ok := g.slot(10, 20)
	if !ok {
		t.Fatal("cell not found")
	}
	g.addPoint(slot, &StudyPoint{})
	g.reset()
	if n := len(g.pointsAt(slot)); n != 0 {
		t.Errorf("cell holds %d points after reset", n)
	}
	if g.latCount == 0 {
		t.Error("reset must keep the layout")
	}
}
