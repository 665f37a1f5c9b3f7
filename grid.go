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

	"github.com/ctessum/geom"
)

// GridType selects the geographic indexing scheme.
type GridType int

const (
	// GridLocal uses one fixed longitude cell size for the whole grid,
	// sized for one source's area.
	GridLocal GridType = iota
	// GridGlobal uses earth-aligned cells whose longitude size varies by
	// latitude band to keep cell area approximately uniform, covering
	// arbitrarily large multi-source areas.
	GridGlobal
)

// Global banding parameters. Starting at the equator the working cosine
// shrinks by 2% per band; banding stops at 75° latitude (studies are not
// meaningful closer to the poles) or after maxBands bands, which has been
// verified sufficient for cell sizes from 0.02 to 50 km. Because cell
// sizes are whole arc-seconds, actual cell area varies from the 2% target
// by roughly ±1-4% at typical sizes (up to ±20% at very fine 0.1 km
// sizes); that variation is an accepted limitation of integer cell edges.
const (
	bandCosineStep = 0.98
	maxBands       = 100
	maxBandLatDeg  = 75.
)

// A lonBand maps absolute latitudes below MaxLatSec to one longitude cell
// size. The table is symmetric about the equator.
type lonBand struct {
	MaxLatSec int // exclusive upper bound, arc-seconds of absolute latitude
	LonSize   int // arc-seconds
}

// latCellSize returns the latitude cell size in whole arc-seconds for the
// given cell size in kilometers, minimum one arc-second.
func latCellSize(cellKm float64) int {
	sz := int(math.Round(cellKm / KilometersPerDegree * 3600))
	if sz < 1 {
		sz = 1
	}
	return sz
}

// lonCellSizeAt returns the local-mode longitude cell size in whole
// arc-seconds at the given latitude, minimum one arc-second. Callers
// combining several sources in one local grid supply the smallest size
// any of them needs.
func lonCellSizeAt(cellKm, latDeg float64) int {
	sz := int(math.Round(cellKm / (KilometersPerDegree * math.Cos(latDeg*degToRad)) * 3600))
	if sz < 1 {
		sz = 1
	}
	return sz
}

// globalBands builds the latitude banding table for the given cell size.
// Longitude sizes increase strictly from band to band: when the 2% cosine
// step does not grow the integer size, the size is forced up by one
// arc-second and the band boundary recomputed by inverse cosine.
func globalBands(cellKm float64) []lonBand {
	target := cellKm / KilometersPerDegree * 3600 // arc-seconds at the equator
	cosv := 1.
	prev := 0
	bands := make([]lonBand, 0, maxBands)
	for len(bands) < maxBands {
		cosv *= bandCosineStep
		size := int(math.Round(target / cosv))
		if size < 1 {
			size = 1
		}
		if size <= prev {
			size = prev + 1
			c := target / float64(size)
			if c > 1 {
				c = 1
			}
			cosv = c
		}
		latSec := int(math.Round(math.Acos(cosv) / degToRad * 3600))
		if latSec >= int(maxBandLatDeg*3600) {
			bands = append(bands, lonBand{MaxLatSec: int(maxBandLatDeg * 3600), LonSize: size})
			break
		}
		bands = append(bands, lonBand{MaxLatSec: latSec, LonSize: size})
		prev = size
	}
	return bands
}

// globalLonSize looks up the longitude cell size for the latitude band
// containing the given absolute latitude. Latitudes beyond the last band
// boundary use the last band's size.
func globalLonSize(bands []lonBand, latSec int) int {
	if latSec < 0 {
		latSec = -latSec
	}
	for _, b := range bands {
		if latSec < b.MaxLatSec {
			return b.LonSize
		}
	}
	return bands[len(bands)-1].LonSize
}

// SecondsBounds is a geographic bounding box in whole arc-seconds, with
// longitude positive west (so West >= East).
type SecondsBounds struct {
	South, North int
	East, West   int
}

// boundsToSeconds converts geographic degree bounds (X longitude positive
// west, Y latitude) to arc-seconds, expanding outward.
func boundsToSeconds(b geom.Bounds) SecondsBounds {
	return SecondsBounds{
		South: int(math.Floor(b.Min.Y * 3600)),
		North: int(math.Ceil(b.Max.Y * 3600)),
		East:  int(math.Floor(b.Min.X * 3600)),
		West:  int(math.Ceil(b.Max.X * 3600)),
	}
}

// A gridRegion is a cell-index bounding region within a grid. Rows are
// absolute latitude cell indices, south inclusive and north exclusive.
// In local mode East and West are absolute longitude cell indices (east
// inclusive, west exclusive); in global mode they are arc-seconds,
// because the longitude cell size differs per row.
type gridRegion struct {
	SouthRow, NorthRow int
	East, West         int
}

// A Grid is the spatial container for grid-mode study points: an array of
// per-cell point lists indexed by (row × width + column), plus per-row
// metadata in global mode. Rows count northward from the aligned south
// edge; columns count westward from each row's aligned east edge. Every
// row carries one extra cell of slack on its west edge to absorb
// alignment drift between rows of differing width.
type Grid struct {
	Type    GridType
	LatSize int // arc-seconds
	LonSize int // arc-seconds, local mode only
	bands   []lonBand

	southIndex int // latitude cell index of row 0
	latCount   int
	eastIndex  int // local mode: longitude cell index of column 0
	lonCount   int // array width: max row cell count + 1 slack

	cells [][]*StudyPoint

	// Per-row metadata, global mode only.
	rowLonSize   []int
	rowCellArea  []float64
	rowLonCount  []int
	rowEastIndex []int
}

// newGrid creates an empty grid with the given cell-size parameters.
func newGrid(t GridType, cellKm float64, lonSize int) *Grid {
	g := &Grid{Type: t, LatSize: latCellSize(cellKm), LonSize: lonSize}
	if t == GridGlobal {
		g.bands = globalBands(cellKm)
	}
	return g
}

// rowLonCellSize returns the longitude cell size of the row with the
// given absolute latitude index. In global mode the band is chosen by the
// row edge nearest the equator, so all rows sharing a latitude band use
// identical cell sizes regardless of which source laid them out.
func (g *Grid) rowLonCellSize(latIdx int) int {
	if g.Type == GridLocal {
		return g.LonSize
	}
	south := latIdx * g.LatSize
	north := south + g.LatSize
	edge := 0
	switch {
	case south >= 0:
		edge = south
	case north <= 0:
		edge = -north
	}
	return globalLonSize(g.bands, edge)
}

// cellAreaAt returns the area in km² of a cell in the row with the given
// absolute latitude index.
func (g *Grid) cellAreaAt(latIdx int) float64 {
	lonSize := g.rowLonCellSize(latIdx)
	centerLat := (float64(latIdx) + 0.5) * float64(g.LatSize) / 3600
	h := float64(g.LatSize) / 3600 * KilometersPerDegree
	w := float64(lonSize) / 3600 * KilometersPerDegree * math.Cos(centerLat*degToRad)
	return h * w
}

// region converts an arc-second bounding box to the grid's cell-index
// region, aligning south/east edges downward to whole cell multiples.
func (g *Grid) region(b SecondsBounds) gridRegion {
	r := gridRegion{
		SouthRow: floorDiv(b.South, g.LatSize),
		NorthRow: floorDiv(b.North-1, g.LatSize) + 1,
	}
	if g.Type == GridLocal {
		r.East = floorDiv(b.East, g.LonSize)
		r.West = floorDiv(b.West-1, g.LonSize) + 1
	} else {
		r.East = b.East
		r.West = b.West
	}
	return r
}

// rowColumns returns the absolute east and west longitude cell indices
// (east inclusive, west exclusive) that a region covers in the row with
// the given absolute latitude index.
func (g *Grid) rowColumns(r gridRegion, latIdx int) (east, west int) {
	if g.Type == GridLocal {
		return r.East, r.West
	}
	size := g.rowLonCellSize(latIdx)
	return floorDiv(r.East, size), floorDiv(r.West-1, size) + 1
}

// extend grows the grid to cover the given region, keeping cell-edge
// alignment global: cell identity is by absolute indices, so growth never
// moves an edge, it only widens coverage. Arrays only grow within a
// study. Existing points are redistributed into the grown array by their
// stored cell edges.
func (g *Grid) extend(r gridRegion) {
	southIndex := r.SouthRow
	northIndex := r.NorthRow
	if g.latCount > 0 {
		if g.southIndex < southIndex {
			southIndex = g.southIndex
		}
		if n := g.southIndex + g.latCount; n > northIndex {
			northIndex = n
		}
	}
	latCount := northIndex - southIndex

	eastIndex := g.eastIndex
	lonCount := g.lonCount
	var rowEast, rowWidth []int
	if g.Type == GridLocal {
		west := r.West + 1 // +1 west-edge slack
		if g.lonCount > 0 {
			if g.eastIndex < r.East {
				eastIndex = g.eastIndex
			} else {
				eastIndex = r.East
			}
			if old := g.eastIndex + g.lonCount; old > west {
				west = old
			}
		} else {
			eastIndex = r.East
		}
		lonCount = west - eastIndex
	} else {
		// Each row's coverage is the union of its existing coverage and
		// the new region, so no previously laid-out cell ever falls
		// outside the array. The array width fits the widest row.
		rowEast = make([]int, latCount)
		rowWidth = make([]int, latCount)
		lonCount = 0
		for row := 0; row < latCount; row++ {
			latIdx := southIndex + row
			east, west := g.rowColumns(r, latIdx)
			west++ // +1 west-edge slack
			if oldRow := latIdx - g.southIndex; g.cells != nil &&
				oldRow >= 0 && oldRow < g.latCount && g.rowLonSize[oldRow] != 0 {
				if oldEast := g.rowEastIndex[oldRow]; oldEast < east {
					east = oldEast
				}
				if oldWest := g.rowEastIndex[oldRow] + g.rowLonCount[oldRow]; oldWest > west {
					west = oldWest
				}
			}
			rowEast[row] = east
			rowWidth[row] = west - east
			if rowWidth[row] > lonCount {
				lonCount = rowWidth[row]
			}
		}
	}

	if southIndex == g.southIndex && latCount == g.latCount &&
		eastIndex == g.eastIndex && lonCount == g.lonCount &&
		g.cells != nil && !g.rowsChanged(rowEast, rowWidth) {
		return
	}

	old := g.cells

	g.southIndex = southIndex
	g.latCount = latCount
	g.eastIndex = eastIndex
	g.lonCount = lonCount
	g.cells = make([][]*StudyPoint, latCount*lonCount)
	g.rowLonSize = make([]int, latCount)
	g.rowCellArea = make([]float64, latCount)
	g.rowLonCount = make([]int, latCount)
	g.rowEastIndex = make([]int, latCount)
	for row := 0; row < latCount; row++ {
		latIdx := southIndex + row
		g.rowLonSize[row] = g.rowLonCellSize(latIdx)
		g.rowCellArea[row] = g.cellAreaAt(latIdx)
		if g.Type == GridLocal {
			g.rowEastIndex[row] = eastIndex
			g.rowLonCount[row] = lonCount
		} else {
			g.rowEastIndex[row] = rowEast[row]
			g.rowLonCount[row] = rowWidth[row]
		}
	}

	// Redistribute retained points by their absolute cell edges. Row
	// coverage only grows, so every point finds a slot in the new array.
	for _, cell := range old {
		for _, pt := range cell {
			slot, ok := g.slotForEdges(pt.Grid.CellLat, pt.Grid.CellLon)
			if ok {
				g.cells[slot] = append(g.cells[slot], pt)
			}
		}
	}
}

// rowsChanged reports whether the prospective global-mode per-row
// coverage differs from the current metadata. Only meaningful when the
// array shape is otherwise unchanged.
func (g *Grid) rowsChanged(rowEast, rowWidth []int) bool {
	if g.Type == GridLocal {
		return false
	}
	for row := range rowEast {
		if g.rowEastIndex[row] != rowEast[row] || g.rowLonCount[row] != rowWidth[row] {
			return true
		}
	}
	return false
}

// slotForEdges returns the cell array slot for a cell identified by its
// south and east edges in arc-seconds.
func (g *Grid) slotForEdges(cellLat, cellLon int) (int, bool) {
	row := floorDiv(cellLat, g.LatSize) - g.southIndex
	if row < 0 || row >= g.latCount {
		return 0, false
	}
	size := g.rowLonCellSize(g.southIndex + row)
	col := floorDiv(cellLon, size) - g.rowEastIndexAt(row)
	if col < 0 || col >= g.lonCount {
		return 0, false
	}
	return row*g.lonCount + col, true
}

// rowEastIndexAt returns the absolute east-edge column index of a row.
func (g *Grid) rowEastIndexAt(row int) int {
	if g.Type == GridLocal {
		return g.eastIndex
	}
	return g.rowEastIndex[row]
}

// slot returns the cell array slot for the cell with the given absolute
// latitude row index and longitude column index, or false when the cell
// is outside the laid-out grid.
func (g *Grid) slot(latIdx, lonIdx int) (int, bool) {
	row := latIdx - g.southIndex
	if row < 0 || row >= g.latCount {
		return 0, false
	}
	col := lonIdx - g.rowEastIndexAt(row)
	if col < 0 || col >= g.lonCount {
		return 0, false
	}
	return row*g.lonCount + col, true
}

// pointsAt returns the study points in the given cell slot.
func (g *Grid) pointsAt(slot int) []*StudyPoint { return g.cells[slot] }

// addPoint attaches a point to a cell slot.
func (g *Grid) addPoint(slot int, pt *StudyPoint) {
	g.cells[slot] = append(g.cells[slot], pt)
}

// cellEdges returns the south and east edges in arc-seconds of the cell
// with the given absolute indices.
func (g *Grid) cellEdges(latIdx, lonIdx int) (cellLat, cellLon int) {
	return latIdx * g.LatSize, lonIdx * g.rowLonCellSize(latIdx)
}

// cellCenter returns the geographic center of the cell with the given
// absolute indices.
func (g *Grid) cellCenter(latIdx, lonIdx int) (lat, lon float64) {
	size := g.rowLonCellSize(latIdx)
	lat = (float64(latIdx) + 0.5) * float64(g.LatSize) / 3600
	lon = (float64(lonIdx) + 0.5) * float64(size) / 3600
	return lat, lon
}

// reset drops all points from the grid, keeping the layout and arrays.
func (g *Grid) reset() {
	for i := range g.cells {
		g.cells[i] = nil
	}
}
