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

// Package sigstudy computes broadcast-station interference and coverage
// over a geographic study area. It lays out a spatial grid (or an
// arbitrary point set), populates each cell or point with demographic and
// terrain attributes, and attaches field records representing the
// predicted signal from every relevant desired and undesired transmitter
// at each location. Propagation physics, database schemas, and report
// formatting live outside this package; the engine consumes them through
// the collaborator interfaces defined here.
package sigstudy

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// StudyMode selects between the cell grid and an arbitrary point set.
type StudyMode int

const (
	// ModeGrid evaluates a spatial grid with demographic data.
	ModeGrid StudyMode = iota
	// ModePoints evaluates user-specified receiver locations; no grid,
	// population, or land area is involved.
	ModePoints
)

// Service-area study modes. Standard mode applies DTS truncation; other
// modes study the union of constituent areas unrestricted.
const (
	ServiceAreaStandard = iota
	ServiceAreaUnrestricted
)

// PointMethod selects how raw census records aggregate into a cell's
// study point coordinates.
type PointMethod int

const (
	// PointMethodCentroid derives the coordinate as the
	// population-weighted centroid of the cell's census points.
	PointMethodCentroid PointMethod = iota
	// PointMethodLargest uses the single census point with the largest
	// population.
	PointMethodLargest
	// PointMethodCenter uses the geometric cell center, still summing
	// census totals.
	PointMethodCenter
	// PointMethodAll creates one independent study point per census
	// point, with no aggregation.
	PointMethodAll
)

// DefaultRuleExtraDistance is the slack, in kilometers, allowed between a
// source's service-area radius and an interference rule's culling
// distance before the consistency check warns. The value is historical;
// it is carried as a configurable constant rather than re-derived.
const DefaultRuleExtraDistance = 0.1

// Recoverable conditions: the per-source driver loop logs these and skips
// the source, and the run continues.
var (
	// ErrWrongMode is returned when a grid operation is invoked on a
	// points-mode study or vice versa.
	ErrWrongMode = errors.New("operation does not match study mode")
	// ErrNoServiceArea is returned when a source has neither an explicit
	// geography nor a contour.
	ErrNoServiceArea = errors.New("source has no service area definition")
)

// A PopulationRow is one demographic record returned by the population
// query collaborator. LatIndex and LonIndex are the record coordinate in
// whole arc-seconds (longitude positive west); rows are ordered by
// LatIndex then LonIndex. Duplicate rows may exist on both sides of the
// antimeridian by design.
type PopulationRow struct {
	LatIndex, LonIndex int
	Lat, Lon           float64
	Population         int
	Households         int
	BlockID            string
}

// A PopulationQuerier returns demographic records for a country within a
// bounding box.
type PopulationQuerier interface {
	QueryPopulation(country int, b SecondsBounds) ([]PopulationRow, error)
}

// A TerrainLookup returns ground elevation in meters at a coordinate from
// the selected elevation database. Lookup failure is serious and aborts
// the calling operation.
type TerrainLookup interface {
	Elevation(lat, lon float64, db int) (float64, error)
}

// A LandCoverLookup returns the land-cover category at a coordinate for
// the selected data version, or a negative category for unknown.
type LandCoverLookup interface {
	Category(lat, lon float64, version int) (int, error)
}

// A CountryLookup returns the country code at a coordinate, 0 when the
// coordinate matches no country (the caller then defaults to the source's
// own country), or an error on lookup failure.
type CountryLookup interface {
	Country(lat, lon float64) (int, error)
}

// Config holds the study parameters fixed at study open.
type Config struct {
	Mode     StudyMode
	GridType GridType

	// CellSizeKm is the target cell size. LonSizeArcSec optionally fixes
	// the local-mode longitude cell size; when zero it is derived from
	// CellSizeKm at the first layout call's center latitude. Callers
	// combining several sources in one local grid supply the smallest
	// size any of them needs.
	CellSizeKm    float64
	LonSizeArcSec int

	PointMethod       PointMethod
	SnapToCensusPoint bool

	ServiceAreaMode       int
	CheckSelfInterference bool

	// SelfIxPercentTime is the percent-time assigned to composite
	// self-interference fields when CheckSelfInterference is set.
	SelfIxPercentTime float64

	// DTSMinimumDistance evaluates a composite undesired's culling
	// distance as the minimum across all constituent transmitters
	// instead of the distance from the reference point.
	DTSMinimumDistance bool

	// Countries to query population for, in evaluation order.
	Countries []int

	// ClutterTable translates land-cover categories to clutter types;
	// unknown categories map to ClutterUnknown.
	ClutterTable map[int]int

	TerrainDB        int
	LandCoverVersion int

	RuleExtraDistanceKm float64
}

// ClutterUnknown is the clutter type assigned when land cover is unknown.
const ClutterUnknown = 0

// A Study owns all mutable state for one open study: the grid, the
// record pools, the source index, and the collaborator handles. It is not
// safe for concurrent use; the engine studies one source at a time with
// exclusive ownership of the grid and pools.
type Study struct {
	Config

	// Collaborators. Pop, Terrain, and CountryDB must be set before
	// setup runs; LandCover and Cache are optional.
	Pop       PopulationQuerier
	Terrain   TerrainLookup
	LandCover LandCoverLookup
	CountryDB CountryLookup
	Cache     PointCache

	grid  *Grid
	pools *pools

	// points is the flat point list in points mode.
	points []*StudyPoint

	sources map[int]*Source

	// popLoadedAll is set once population has been loaded eagerly for
	// the whole grid, letting per-source setup skip its region load.
	popLoadedAll bool
}

// NewStudy opens a study with the given configuration. Collaborator
// fields are assigned by the caller before any setup call.
func NewStudy(cfg Config) *Study {
	if cfg.RuleExtraDistanceKm == 0 {
		cfg.RuleExtraDistanceKm = DefaultRuleExtraDistance
	}
	s := &Study{
		Config:  cfg,
		pools:   newPools(),
		sources: make(map[int]*Source),
	}
	if cfg.Mode == ModeGrid {
		s.grid = newGrid(cfg.GridType, cfg.CellSizeKm, cfg.LonSizeArcSec)
	}
	return s
}

// Grid exposes the study grid for export and inspection.
func (s *Study) Grid() *Grid { return s.grid }

// Points returns the flat study point list: every point in points mode,
// or every materialized grid point in grid mode.
func (s *Study) Points() []*StudyPoint {
	if s.Mode == ModePoints {
		return s.points
	}
	var out []*StudyPoint
	if s.grid == nil {
		return nil
	}
	for _, cell := range s.grid.cells {
		out = append(out, cell...)
	}
	return out
}

// AddSources registers sources (and, recursively, DTS constituents) in
// the study's reverse lookup index. Keys must be unique.
func (s *Study) AddSources(sources ...*Source) error {
	for _, src := range sources {
		if dup, ok := s.sources[src.Key]; ok && dup != src {
			return fmt.Errorf("sigstudy: duplicate source key %d (%s, %s)", src.Key, dup.CallSign, src.CallSign)
		}
		s.sources[src.Key] = src
		if err := s.AddSources(src.DTS...); err != nil {
			return err
		}
	}
	return nil
}

// lookupSource resolves a source key through the reverse index. A miss
// indicates corrupted in-memory state, not a data problem, and is
// unrecoverable.
func (s *Study) lookupSource(key int) *Source {
	src, ok := s.sources[key]
	if !ok {
		panic(fmt.Sprintf("sigstudy: source key %d missing from study index", key))
	}
	return src
}

// AddPoint appends a receiver location to a points-mode study.
func (s *Study) AddPoint(lat, lon, receiveHeightM float64) (*StudyPoint, error) {
	if s.Mode != ModePoints {
		return nil, fmt.Errorf("%w: AddPoint requires points mode", ErrWrongMode)
	}
	pt := s.pools.points.alloc()
	pt.Lat = lat
	pt.Lon = lon
	pt.Receiver = &ReceiverPointData{Index: len(s.points), ReceiveHeightM: receiveHeightM}
	pt.CensusStatus = CensusResolved
	s.points = append(s.points, pt)
	return pt, nil
}

// LayoutGrid lays out (or extends) the study grid to cover the given
// arc-second bounding box. Edges align downward to whole cell multiples,
// so the resulting bounds are always a product of the layout, never the
// raw input, and two overlapping layouts with the same cell parameters
// produce exactly coincident cell edges.
func (s *Study) LayoutGrid(b SecondsBounds) error {
	if s.Mode != ModeGrid {
		return fmt.Errorf("%w: LayoutGrid requires grid mode", ErrWrongMode)
	}
	if s.GridType == GridLocal && s.grid.LonSize == 0 {
		centerLat := float64(b.South+b.North) / 2 / 3600
		s.grid.LonSize = lonCellSizeAt(s.CellSizeKm, centerLat)
	}
	s.grid.extend(s.grid.region(b))
	return nil
}

// Setup runs the cell/point setup engine for one source acting as
// desired: after it returns, every study point inside (or potentially
// inside) the source's service area has a desired field for it, and every
// such point has the full complement of undesired fields the interference
// rules require.
func (s *Study) Setup(src *Source) error {
	if s.Mode == ModeGrid {
		return s.setupGrid(src)
	}
	return s.setupPoints(src)
}

// Run processes a list of desired sources in order. Recoverable
// conditions (wrong mode, missing service area) disable the one source
// and the run continues; anything else is scenario-fatal and returns.
func (s *Study) Run(desired []*Source) error {
	for _, src := range desired {
		err := s.Setup(src)
		switch {
		case err == nil:
		case errors.Is(err, ErrWrongMode), errors.Is(err, ErrNoServiceArea):
			log.WithFields(log.Fields{"source": src.CallSign, "key": src.Key}).
				Warnf("skipping source: %v", err)
		default:
			return fmt.Errorf("sigstudy: source %s (%d): %v", src.CallSign, src.Key, err)
		}
	}
	return nil
}

// Reset clears all study state between independent studies or when
// switching modes: every pool is bulk-reset and the grid and point list
// are emptied. Block memory and grid arrays are retained.
func (s *Study) Reset() {
	s.pools.reset()
	if s.grid != nil {
		s.grid.reset()
	}
	s.points = nil
	s.popLoadedAll = false
}

// ResetFields clears every point's field list between independent
// points-mode scenario runs; the points themselves survive. Grid-mode
// field lists share the field pool with the grid points, so a grid
// study must use Reset instead.
func (s *Study) ResetFields() error {
	if s.Mode != ModePoints {
		return fmt.Errorf("%w: ResetFields requires a points-mode study", ErrWrongMode)
	}
	for _, pt := range s.points {
		pt.Fields = nil
	}
	s.pools.fields.reset()
	return nil
}

// clutterFor translates a land-cover category through the configured
// clutter table; negative (unknown) categories map to ClutterUnknown.
func (s *Study) clutterFor(category int) int {
	if category < 0 {
		return ClutterUnknown
	}
	if c, ok := s.ClutterTable[category]; ok {
		return c
	}
	return ClutterUnknown
}

// pointAttributes fills a point's terrain-derived attributes: ground
// elevation (serious error on failure) and land-cover clutter.
func (s *Study) pointAttributes(pt *StudyPoint) error {
	elev, err := s.Terrain.Elevation(pt.Lat, pt.Lon, s.TerrainDB)
	if err != nil {
		return fmt.Errorf("sigstudy: terrain lookup at %.6f, %.6f: %v", pt.Lat, pt.Lon, err)
	}
	pt.ElevationM = elev
	if s.LandCover != nil {
		cat, err := s.LandCover.Category(pt.Lat, pt.Lon, s.LandCoverVersion)
		if err != nil {
			return fmt.Errorf("sigstudy: land cover lookup at %.6f, %.6f: %v", pt.Lat, pt.Lon, err)
		}
		pt.Clutter = s.clutterFor(cat)
	}
	return nil
}
