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
)

// setupGrid guarantees that every cell inside (or potentially inside) the
// source's service area has a study point carrying a desired field for
// the source, then completes each such point's undesired field list. Two
// sequential scans run over the source's bounding cell range; both are
// re-entrant across sources and scenarios because all state persists in
// the pooled points.
func (s *Study) setupGrid(src *Source) error {
	if s.Mode != ModeGrid {
		return fmt.Errorf("%w: grid setup on a points-mode study", ErrWrongMode)
	}
	if !src.hasServiceArea() {
		return fmt.Errorf("%w: source %s (%d)", ErrNoServiceArea, src.CallSign, src.Key)
	}

	b, err := src.serviceBounds()
	if err != nil {
		return err
	}
	sb := boundsToSeconds(b)
	if s.GridType == GridLocal && s.grid.LonSize == 0 {
		if err := s.LayoutGrid(sb); err != nil {
			return err
		}
	}
	region := s.grid.region(sb)
	s.grid.extend(region)
	if s.GridType == GridLocal {
		centerRow := floorDiv(sb.South+sb.North, 2*s.grid.LatSize)
		src.cellAreaKm = s.grid.cellAreaAt(centerRow)
	}

	// A complete cache load makes the desired scan redundant; a partial
	// or failed load still requires it to fill the gaps.
	desiredCached := CacheNotUsable
	if s.Cache != nil {
		var n int
		desiredCached, n, err = s.Cache.ReadFields(s, src, false)
		if err != nil {
			log.WithField("source", src.CallSign).Warnf("desired cache read failed: %v", err)
			desiredCached = CacheNotUsable
		} else if desiredCached != CacheNotUsable {
			log.WithFields(log.Fields{"source": src.CallSign, "fields": n}).
				Debug("desired fields from cache")
		}
	}

	if desiredCached != CacheComplete {
		if !s.popLoadedAll {
			if err := s.loadPopulation(region, src); err != nil {
				return err
			}
		}
		if err := s.scanDesired(src, region); err != nil {
			return err
		}
	}

	if len(src.undesireds) > 0 || (src.IsDTS() && s.CheckSelfInterference) {
		undesiredCached := CacheNotUsable
		if s.Cache != nil {
			undesiredCached, _, err = s.Cache.ReadFields(s, src, true)
			if err != nil {
				log.WithField("source", src.CallSign).Warnf("undesired cache read failed: %v", err)
				undesiredCached = CacheNotUsable
			}
		}
		if undesiredCached != CacheComplete {
			if err := s.scanUndesired(src, region); err != nil {
				return err
			}
		}
	}

	if s.Cache != nil {
		if err := s.Cache.WriteFields(s, src, false); err != nil {
			return fmt.Errorf("sigstudy: desired cache write for %s: %v", src.CallSign, err)
		}
		if err := s.Cache.WriteFields(s, src, true); err != nil {
			return fmt.Errorf("sigstudy: undesired cache write for %s: %v", src.CallSign, err)
		}
	}
	return nil
}

// scanDesired is the first setup scan: it visits every cell in the
// source's region, tests service-area membership at each existing point
// (or at the geometric cell center when the cell is empty), and appends
// desired fields, materializing synthetic zero-population points where
// the service area covers an empty cell.
func (s *Study) scanDesired(src *Source, region gridRegion) error {
	g := s.grid
	for latIdx := region.SouthRow; latIdx < region.NorthRow; latIdx++ {
		east, west := g.rowColumns(region, latIdx)
		for lonIdx := east; lonIdx < west; lonIdx++ {
			slot, ok := g.slot(latIdx, lonIdx)
			if !ok {
				continue
			}
			pts := g.pointsAt(slot)
			if len(pts) == 0 {
				lat, lon := g.cellCenter(latIdx, lonIdx)
				in, err := s.serviceAreaContains(src, lat, lon)
				if err != nil {
					return err
				}
				if !in {
					continue
				}
				pt, err := s.materializePoint(latIdx, lonIdx, lat, lon, src)
				if err != nil {
					return err
				}
				g.addPoint(slot, pt)
				dist, bearing, rev := BearingDistance(src.Lat, src.Lon, lat, lon)
				s.addFields(pt, src, nil, bearing, rev, dist, false)
				continue
			}
			for _, pt := range pts {
				if pt.desiredField(src.Key) != nil {
					continue // already present, e.g. loaded from cache
				}
				in, err := s.serviceAreaContains(src, pt.Lat, pt.Lon)
				if err != nil {
					return err
				}
				if !in {
					continue
				}
				dist, bearing, rev := BearingDistance(src.Lat, src.Lon, pt.Lat, pt.Lon)
				s.addFields(pt, src, nil, bearing, rev, dist, false)
			}
		}
	}
	return nil
}

// materializePoint creates a synthetic zero-population study point at a
// cell center. The country comes from geographic lookup, falling back to
// the source's own country; census status is fully resolved since there
// are no census points to reconcile.
func (s *Study) materializePoint(latIdx, lonIdx int, lat, lon float64, src *Source) (*StudyPoint, error) {
	g := s.grid
	pt := s.pools.points.alloc()
	pt.Lat = lat
	pt.Lon = lon
	cellLat, cellLon := g.cellEdges(latIdx, lonIdx)
	pt.Grid = &GridPointData{CellLat: cellLat, CellLon: cellLon}
	if s.GridType == GridLocal && src.cellAreaKm > 0 {
		pt.Grid.AreaKm = src.cellAreaKm
	} else {
		pt.Grid.AreaKm = g.cellAreaAt(latIdx)
	}

	country, err := s.CountryDB.Country(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("sigstudy: country lookup at %.6f, %.6f: %v", lat, lon, err)
	}
	if country == 0 {
		country = src.Country
	}
	pt.Country = country

	if err := s.pointAttributes(pt); err != nil {
		return nil, err
	}
	pt.CensusStatus = CensusResolved
	return pt, nil
}

// scanUndesired is the second setup scan: every point carrying a
// complete desired field for the source receives the undesired fields
// its entry list requires, plus the composite self-interference field
// when that check is enabled.
func (s *Study) scanUndesired(src *Source, region gridRegion) error {
	g := s.grid
	for latIdx := region.SouthRow; latIdx < region.NorthRow; latIdx++ {
		east, west := g.rowColumns(region, latIdx)
		for lonIdx := east; lonIdx < west; lonIdx++ {
			slot, ok := g.slot(latIdx, lonIdx)
			if !ok {
				continue
			}
			for _, pt := range g.pointsAt(slot) {
				if !pt.hasCompleteDesired(src) {
					continue
				}
				s.addUndesiredFields(pt, src)
			}
		}
	}
	return nil
}

// undesiredKey identifies one undesired field: a source at a percent-time.
type undesiredKey struct {
	sourceKey   int
	percentTime float64
}

// addUndesiredFields appends every missing undesired field at one point.
// The existing field list is scanned once to record which entries are
// already present (e.g. from an earlier source's setup or a cache load)
// and whether a composite self-interference field exists.
func (s *Study) addUndesiredFields(pt *StudyPoint, src *Source) {
	present := make(map[undesiredKey]bool)
	selfIx := false
	for _, f := range pt.Fields {
		if !f.IsUndesired {
			continue
		}
		present[undesiredKey{f.SourceKey, f.PercentTime}] = true
		if f.SourceKey == src.Key {
			selfIx = true
		}
	}

	for _, ud := range src.undesireds {
		if present[undesiredKey{ud.SourceKey, ud.PercentTime}] {
			continue
		}
		und := s.lookupSource(ud.SourceKey)
		dist, bearing, rev := BearingDistance(und.Lat, und.Lon, pt.Lat, pt.Lon)
		cullDist := dist
		if und.IsDTS() && s.DTSMinimumDistance {
			// The cull tests the minimum distance across all
			// constituent transmitters; the field itself keeps the
			// reference-point geometry.
			for _, c := range und.DTS {
				if d, _, _ := BearingDistance(c.Lat, c.Lon, pt.Lat, pt.Lon); d < cullDist {
					cullDist = d
				}
			}
		}
		if ud.CheckDistance && cullDist > ud.CullDistanceKm {
			continue
		}
		s.addFields(pt, und, ud, bearing, rev, dist, false)
	}

	if src.IsDTS() && s.CheckSelfInterference && !selfIx {
		dist, bearing, rev := BearingDistance(src.Lat, src.Lon, pt.Lat, pt.Lon)
		self := &UndesiredEntry{SourceKey: src.Key, PercentTime: s.SelfIxPercentTime}
		s.addFields(pt, src, self, bearing, rev, dist, false)
	}
}

// setupPoints is the points-mode setup: a single pass over the flat
// point list. Every point gets a desired field for the source regardless
// of distance, so each desired source is represented at every point for
// reporting symmetry; beyond the maximum calculation distance the field
// is a calculated no-result placeholder. Service-area membership is
// recorded as an informational flag only, never used to exclude the
// field. Points with a valid (non-placeholder) desired field then
// receive undesired fields under the same per-entry culling rule as the
// grid scan.
func (s *Study) setupPoints(src *Source) error {
	if s.Mode != ModePoints {
		return fmt.Errorf("%w: points setup on a grid-mode study", ErrWrongMode)
	}
	if !src.hasServiceArea() {
		return fmt.Errorf("%w: source %s (%d)", ErrNoServiceArea, src.CallSign, src.Key)
	}
	for _, pt := range s.points {
		if pt.desiredField(src.Key) != nil {
			continue
		}
		in, err := s.serviceAreaContains(src, pt.Lat, pt.Lon)
		if err != nil {
			return err
		}
		dist, bearing, rev := BearingDistance(src.Lat, src.Lon, pt.Lat, pt.Lon)
		f := s.addFields(pt, src, nil, bearing, rev, dist, in)
		if f.isPlaceholderResult() {
			continue
		}
		if len(src.undesireds) > 0 || (src.IsDTS() && s.CheckSelfInterference) {
			s.addUndesiredFields(pt, src)
		}
	}
	return nil
}
