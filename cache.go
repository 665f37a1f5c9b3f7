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
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// CacheStatus is the tri-state outcome of a cache read.
type CacheStatus int

const (
	// CacheNotUsable means nothing was restored; the full scan must run.
	CacheNotUsable CacheStatus = iota
	// CachePartial means some fields were restored but the grid scan
	// must still run to fill gaps.
	CachePartial
	// CacheComplete means the cached field set for the source and role
	// was fully restored.
	CacheComplete
)

// A PointCache persists and restores one source's desired or undesired
// field set. Census detail is never persisted: a cache-restored point
// carries aggregate totals only (census status CensusFromCache) and its
// CensusPoints must be rebuilt by the population loader at the caller's
// discretion.
type PointCache interface {
	ReadFields(s *Study, src *Source, undesired bool) (CacheStatus, int, error)
	WriteFields(s *Study, src *Source, undesired bool) error
}

// cacheFileVersion invalidates cache files when the record layout
// changes.
const cacheFileVersion = 2

type cachedField struct {
	SourceKey      int
	Bearing        float64
	ReverseBearing float64
	DistanceKm     float64
	FieldStrength  float64
	IsUndesired    bool
	PercentTime    float64
	Status         int
	DTS            []cachedField
}

type cachedPoint struct {
	Lat, Lon         float64
	CellLat, CellLon int
	Population       int
	Households       int
	AreaKm           float64
	ElevationM       float64
	Country          int
	Clutter          int
	Fields           []cachedField
}

type cacheFile struct {
	Version  int
	Complete bool
	Points   []cachedPoint
}

// A FileCache stores one gob file per source and role under Dir.
type FileCache struct {
	Dir string
}

func (c *FileCache) path(src *Source, undesired bool) string {
	role := "desired"
	if undesired {
		role = "undesired"
	}
	return filepath.Join(c.Dir, fmt.Sprintf("source%d_%s.gob", src.Key, role))
}

// WriteFields persists the source's current field set for the given role
// across all grid points.
func (c *FileCache) WriteFields(s *Study, src *Source, undesired bool) error {
	if s.Mode != ModeGrid {
		return nil // the cache covers grid studies only
	}
	var out cacheFile
	out.Version = cacheFileVersion
	out.Complete = true
	for _, pt := range s.Points() {
		var fields []cachedField
		for _, f := range pt.Fields {
			if f.IsUndesired != undesired {
				continue
			}
			if !undesired && f.SourceKey != src.Key {
				continue
			}
			if undesired && !s.isUndesiredOf(src, f) {
				continue
			}
			fields = append(fields, encodeField(f))
		}
		if len(fields) == 0 {
			continue
		}
		out.Points = append(out.Points, cachedPoint{
			Lat: pt.Lat, Lon: pt.Lon,
			CellLat: pt.Grid.CellLat, CellLon: pt.Grid.CellLon,
			Population: pt.Grid.Population, Households: pt.Grid.Households,
			AreaKm: pt.Grid.AreaKm, ElevationM: pt.ElevationM,
			Country: pt.Country, Clutter: pt.Clutter,
			Fields: fields,
		})
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(c.path(src, undesired))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(&out); err != nil {
		return fmt.Errorf("sigstudy: encoding cache file: %v", err)
	}
	return nil
}

// isUndesiredOf reports whether a field belongs to the source's undesired
// entry set (or is its self-interference field).
func (s *Study) isUndesiredOf(src *Source, f *Field) bool {
	if f.SourceKey == src.Key {
		return true
	}
	for _, ud := range src.undesireds {
		if ud.SourceKey == f.SourceKey && ud.PercentTime == f.PercentTime {
			return true
		}
	}
	return false
}

// ReadFields restores the source's cached field set for the given role,
// materializing any cached points the grid does not yet hold. Restored
// points carry aggregate census totals only. Cached points whose cells
// fall outside the laid-out grid are skipped, downgrading the result to
// partial.
func (c *FileCache) ReadFields(s *Study, src *Source, undesired bool) (CacheStatus, int, error) {
	if s.Mode != ModeGrid {
		return CacheNotUsable, 0, nil
	}
	f, err := os.Open(c.path(src, undesired))
	if os.IsNotExist(err) {
		return CacheNotUsable, 0, nil
	}
	if err != nil {
		return CacheNotUsable, 0, err
	}
	defer f.Close()

	var in cacheFile
	if err := gob.NewDecoder(f).Decode(&in); err != nil {
		return CacheNotUsable, 0, fmt.Errorf("sigstudy: decoding cache file: %v", err)
	}
	if in.Version != cacheFileVersion {
		return CacheNotUsable, 0, nil
	}

	status := CachePartial
	if in.Complete {
		status = CacheComplete
	}
	count := 0
	for i := range in.Points {
		cp := &in.Points[i]
		slot, ok := s.grid.slotForEdges(cp.CellLat, cp.CellLon)
		if !ok {
			status = CachePartial
			continue
		}
		pt := s.restorePoint(slot, cp)
		for j := range cp.Fields {
			cf := &cp.Fields[j]
			if fieldPresent(pt, cf) {
				continue
			}
			pt.Fields = append(pt.Fields, s.decodeField(cf))
			count++
		}
	}
	return status, count, nil
}

// restorePoint finds the grid point matching a cached point, creating it
// with census status CensusFromCache when absent.
func (s *Study) restorePoint(slot int, cp *cachedPoint) *StudyPoint {
	for _, pt := range s.grid.pointsAt(slot) {
		if pt.Country == cp.Country && pt.Lat == cp.Lat && pt.Lon == cp.Lon {
			return pt
		}
	}
	pt := s.pools.points.alloc()
	pt.Lat = cp.Lat
	pt.Lon = cp.Lon
	pt.Grid = &GridPointData{
		CellLat: cp.CellLat, CellLon: cp.CellLon,
		Population: cp.Population, Households: cp.Households,
		AreaKm: cp.AreaKm,
	}
	pt.ElevationM = cp.ElevationM
	pt.Country = cp.Country
	pt.Clutter = cp.Clutter
	pt.CensusStatus = CensusFromCache
	s.grid.addPoint(slot, pt)
	return pt
}

func fieldPresent(pt *StudyPoint, cf *cachedField) bool {
	for _, f := range pt.Fields {
		if f.SourceKey == cf.SourceKey && f.IsUndesired == cf.IsUndesired &&
			f.PercentTime == cf.PercentTime {
			return true
		}
	}
	return false
}

func encodeField(f *Field) cachedField {
	cf := cachedField{
		SourceKey:      f.SourceKey,
		Bearing:        f.Bearing,
		ReverseBearing: f.ReverseBearing,
		DistanceKm:     f.DistanceKm,
		FieldStrength:  f.FieldStrength,
		IsUndesired:    f.IsUndesired,
		PercentTime:    f.PercentTime,
		Status:         f.Status,
	}
	for _, c := range f.DTS {
		cf.DTS = append(cf.DTS, encodeField(c))
	}
	return cf
}

func (s *Study) decodeField(cf *cachedField) *Field {
	f := s.pools.fields.alloc()
	f.SourceKey = cf.SourceKey
	f.Bearing = cf.Bearing
	f.ReverseBearing = cf.ReverseBearing
	f.DistanceKm = cf.DistanceKm
	f.FieldStrength = cf.FieldStrength
	f.IsUndesired = cf.IsUndesired
	f.PercentTime = cf.PercentTime
	f.Status = cf.Status
	f.Cached = true
	for i := range cf.DTS {
		f.DTS = append(f.DTS, s.decodeField(&cf.DTS[i]))
	}
	return f
}
