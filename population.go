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
	"fmt"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// LoadAllPopulation eagerly loads population for the entire laid-out
// grid, letting subsequent per-source setups skip their region loads.
func (s *Study) LoadAllPopulation() error {
	if s.Mode != ModeGrid {
		return fmt.Errorf("%w: population loading requires grid mode", ErrWrongMode)
	}
	if s.grid.latCount == 0 {
		return fmt.Errorf("sigstudy: population load before any grid layout")
	}
	r := gridRegion{
		SouthRow: s.grid.southIndex,
		NorthRow: s.grid.southIndex + s.grid.latCount,
	}
	if s.GridType == GridLocal {
		r.East = s.grid.eastIndex
		r.West = s.grid.eastIndex + s.grid.lonCount
	} else {
		b := s.regionSeconds()
		r.East = b.East
		r.West = b.West
	}
	if err := s.loadPopulation(r, nil); err != nil {
		return err
	}
	s.popLoadedAll = true
	return nil
}

// regionSeconds returns the arc-second bounds of the whole laid-out grid.
func (s *Study) regionSeconds() SecondsBounds {
	g := s.grid
	b := SecondsBounds{
		South: g.southIndex * g.LatSize,
		North: (g.southIndex + g.latCount) * g.LatSize,
	}
	if g.Type == GridLocal {
		b.East = g.eastIndex * g.LonSize
		b.West = (g.eastIndex + g.lonCount) * g.LonSize
		return b
	}
	first := true
	for row := 0; row < g.latCount; row++ {
		size := g.rowLonSize[row]
		east := g.rowEastIndex[row] * size
		west := (g.rowEastIndex[row] + g.rowLonCount[row]) * size
		if first || east < b.East {
			b.East = east
		}
		if first || west > b.West {
			b.West = west
		}
		first = false
	}
	return b
}

// regionBounds computes the minimal geographic bounding box covering a
// grid-index region, row by row in global mode since row edges differ.
func (s *Study) regionBounds(r gridRegion) SecondsBounds {
	g := s.grid
	b := SecondsBounds{
		South: r.SouthRow * g.LatSize,
		North: r.NorthRow * g.LatSize,
	}
	if g.Type == GridLocal {
		b.East = r.East * g.LonSize
		b.West = r.West * g.LonSize
		return b
	}
	first := true
	for latIdx := r.SouthRow; latIdx < r.NorthRow; latIdx++ {
		size := g.rowLonCellSize(latIdx)
		east, west := g.rowColumns(r, latIdx)
		if first || east*size < b.East {
			b.East = east * size
		}
		if first || west*size > b.West {
			b.West = west * size
		}
		first = false
	}
	return b
}

// loadPopulation merges externally queried demographic records into the
// grid region, creating or updating study points. In local mode src
// supplies the uniform cell area; in global mode per-row areas apply and
// src may be nil.
func (s *Study) loadPopulation(r gridRegion, src *Source) error {
	if s.Mode != ModeGrid {
		return fmt.Errorf("%w: population loading requires grid mode", ErrWrongMode)
	}
	g := s.grid
	bounds := s.regionBounds(r)

	touched := make(map[int]bool)

	for _, country := range s.Countries {
		rows, err := s.Pop.QueryPopulation(country, bounds)
		if err != nil {
			return fmt.Errorf("sigstudy: population query for country %d: %v", country, err)
		}
		log.WithFields(log.Fields{"country": country, "rows": len(rows)}).
			Debug("population query")

		for _, rec := range rows {
			if rec.Population <= 0 {
				continue // data-quality paranoia; never expected
			}
			latIdx := floorDiv(rec.LatIndex, g.LatSize)
			if latIdx < r.SouthRow || latIdx >= r.NorthRow {
				continue // query may legitimately return a larger box
			}
			size := g.rowLonCellSize(latIdx)
			lonIdx := floorDiv(rec.LonIndex, size)
			east, west := g.rowColumns(r, latIdx)
			if lonIdx < east || lonIdx >= west {
				continue
			}
			slot, ok := g.slot(latIdx, lonIdx)
			if !ok {
				continue
			}

			pt := s.matchPoint(slot, country, rec)
			if pt == nil {
				pt = s.pools.points.alloc()
				pt.Lat = rec.Lat
				pt.Lon = rec.Lon
				cellLat, cellLon := g.cellEdges(latIdx, lonIdx)
				pt.Grid = &GridPointData{CellLat: cellLat, CellLon: cellLon}
				pt.Country = country
				pt.CensusStatus = CensusUnderConstruction
				g.addPoint(slot, pt)
			}
			if pt.CensusStatus == CensusResolved {
				// An overlapping earlier query already accounted for
				// this record.
				continue
			}
			cp := s.pools.census.alloc()
			cp.Lat = rec.Lat
			cp.Lon = rec.Lon
			cp.Population = rec.Population
			cp.Households = rec.Households
			cp.BlockID = rec.BlockID
			pt.CensusPoints = append(pt.CensusPoints, cp)
			touched[slot] = true
		}
	}

	// Second pass: aggregate each under-construction point and derive
	// its representative coordinate.
	for slot := range touched {
		for _, pt := range g.pointsAt(slot) {
			if pt.CensusStatus == CensusUnderConstruction {
				if err := s.resolvePoint(pt, src); err != nil {
					return err
				}
			}
			// Cache-restored points keep their aggregate totals; the
			// reattached census detail completes them.
			if pt.CensusStatus == CensusFromCache && len(pt.CensusPoints) > 0 {
				pt.CensusStatus = CensusResolved
			}
		}
	}

	// Third pass: when a cell holds several points (multi-country or the
	// no-aggregation method), split the cell area by population share.
	for slot := range touched {
		s.partitionCellArea(g.pointsAt(slot), src)
	}
	return nil
}

// matchPoint locates the study point a demographic record merges into,
// or nil if a new point is needed. The no-aggregation method matches by
// country and exact coordinate among points not already finalized; every
// other method matches by country alone.
func (s *Study) matchPoint(slot, country int, rec PopulationRow) *StudyPoint {
	for _, pt := range s.grid.pointsAt(slot) {
		if pt.Country != country {
			continue
		}
		if s.PointMethod == PointMethodAll {
			if pt.CensusStatus != CensusResolved && pt.Lat == rec.Lat && pt.Lon == rec.Lon {
				return pt
			}
			continue
		}
		return pt
	}
	return nil
}

// resolvePoint aggregates an under-construction point's census points
// into totals, derives its representative coordinate by the configured
// method, looks up terrain attributes, and marks it fully resolved.
func (s *Study) resolvePoint(pt *StudyPoint, src *Source) error {
	g := s.grid
	var pop, households int
	weights := make([]float64, len(pt.CensusPoints))
	lats := make([]float64, len(pt.CensusPoints))
	lons := make([]float64, len(pt.CensusPoints))
	largest := 0
	for i, cp := range pt.CensusPoints {
		pop += cp.Population
		households += cp.Households
		weights[i] = float64(cp.Population)
		lats[i] = cp.Lat
		lons[i] = cp.Lon
		if cp.Population > pt.CensusPoints[largest].Population {
			largest = i
		}
	}
	pt.Grid.Population = pop
	pt.Grid.Households = households

	snapped := false
	switch s.PointMethod {
	case PointMethodCentroid:
		w := floats.Sum(weights)
		pt.Lat = floats.Dot(lats, weights) / w
		pt.Lon = floats.Dot(lons, weights) / w
	case PointMethodLargest:
		pt.Lat = lats[largest]
		pt.Lon = lons[largest]
		snapped = true
	case PointMethodCenter:
		latIdx := floorDiv(pt.Grid.CellLat, g.LatSize)
		lonIdx := floorDiv(pt.Grid.CellLon, g.rowLonCellSize(latIdx))
		pt.Lat, pt.Lon = g.cellCenter(latIdx, lonIdx)
	case PointMethodAll:
		pt.Lat = lats[0]
		pt.Lon = lons[0]
		snapped = true
	}
	if s.SnapToCensusPoint && !snapped && len(pt.CensusPoints) > 0 {
		best, bestDist := 0, -1.
		for i := range pt.CensusPoints {
			d, _, _ := BearingDistance(pt.Lat, pt.Lon, lats[i], lons[i])
			if bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		pt.Lat = lats[best]
		pt.Lon = lons[best]
	}

	pt.Grid.AreaKm = s.cellAreaFor(pt, src)
	if err := s.pointAttributes(pt); err != nil {
		return err
	}
	pt.CensusStatus = CensusResolved
	return nil
}

// cellAreaFor returns the full area of the point's cell: the source's
// uniform value in local mode, the per-row value in global mode.
func (s *Study) cellAreaFor(pt *StudyPoint, src *Source) float64 {
	latIdx := floorDiv(pt.Grid.CellLat, s.grid.LatSize)
	if s.GridType == GridLocal && src != nil && src.cellAreaKm > 0 {
		return src.cellAreaKm
	}
	return s.grid.cellAreaAt(latIdx)
}

// partitionCellArea allocates a cell's total area to its points in
// proportion to each point's share of the cell's total population.
func (s *Study) partitionCellArea(pts []*StudyPoint, src *Source) {
	if len(pts) < 2 {
		return
	}
	total := 0
	for _, pt := range pts {
		total += pt.Grid.Population
	}
	if total == 0 {
		return
	}
	cellArea := s.cellAreaFor(pts[0], src)
	for _, pt := range pts {
		pt.Grid.AreaKm = cellArea * float64(pt.Grid.Population) / float64(total)
	}
}
