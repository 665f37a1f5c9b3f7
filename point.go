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

// Census status of a StudyPoint. A point is under construction while the
// population loader is merging raw census rows into it, resolved once its
// totals and representative coordinate are final, and from-cache when it
// was restored from a result cache that persisted only aggregate totals
// (its CensusPoints must be rebuilt by the loader before any operation
// that needs them).
const (
	CensusUnderConstruction = -1
	CensusFromCache         = 0
	CensusResolved          = 1
)

// Field status values. Negative means the field still needs a propagation
// calculation; zero means it was calculated, or deliberately marked as a
// no-result placeholder; positive values are recoverable calculation
// error codes.
const (
	FieldNeedsCalculation = -1
	FieldCalculated       = 0
)

// NoServiceField is the sentinel field strength stored in a placeholder
// field that is beyond the maximum calculation distance.
const NoServiceField = -999.

// A GridPointData holds the grid-mode attributes of a StudyPoint: the
// identifying cell edges and the accumulated demographics.
type GridPointData struct {
	// CellLat and CellLon are the south and east edges of the containing
	// cell, in arc-seconds (longitude positive west).
	CellLat, CellLon int

	Population int
	Households int

	// AreaKm is the share of the cell's land area allocated to this
	// point; when a cell holds several points the cell area is split in
	// proportion to population.
	AreaKm float64
}

// A ReceiverPointData holds the points-mode attributes of a StudyPoint:
// its index in the study's point list and the receive antenna height.
type ReceiverPointData struct {
	Index          int
	ReceiveHeightM float64
}

// A StudyPoint is one location at which signal and demographic data are
// evaluated. Exactly one of Grid or Receiver is non-nil, depending on the
// study mode.
type StudyPoint struct {
	Lat, Lon float64 // degrees, longitude positive west

	Grid     *GridPointData
	Receiver *ReceiverPointData

	ElevationM float64
	Country    int
	Clutter    int

	// CensusStatus is one of CensusUnderConstruction, CensusFromCache,
	// or CensusResolved.
	CensusStatus int

	CensusPoints []*CensusPoint
	Fields       []*Field
}

// A CensusPoint is one raw population record aggregated into a
// StudyPoint. It is immutable after creation and is never persisted to a
// cache.
type CensusPoint struct {
	Lat, Lon   float64
	Population int
	Households int
	BlockID    string
}

// A Field is the predicted signal from one source at one StudyPoint, in
// either the desired role or an undesired role at a specific
// percent-time.
type Field struct {
	SourceKey int

	Bearing        float64 // degrees true, source toward point
	ReverseBearing float64 // degrees true, point toward source
	DistanceKm     float64

	FieldStrength float64 // dBu; NoServiceField for out-of-range placeholders

	// IsUndesired marks the role; PercentTime is meaningful only for
	// undesired fields.
	IsUndesired bool
	PercentTime float64

	// Status follows the FieldNeedsCalculation/FieldCalculated
	// convention; positive values are recoverable error codes.
	Status int

	// Cached is true when the field was restored from a result cache in
	// grid mode; in points mode the same flag records whether the point
	// is inside the source's service area (informational only).
	Cached bool

	// DTS holds the constituent-transmitter fields of a composite
	// source, owned by the composite's placeholder field. Keeping the
	// group embedded in its placeholder guarantees no other field can
	// ever split it.
	DTS []*Field
}

// desiredField returns the desired field for the given source key, or nil.
func (p *StudyPoint) desiredField(key int) *Field {
	for _, f := range p.Fields {
		if !f.IsUndesired && f.SourceKey == key {
			return f
		}
	}
	return nil
}

// hasCompleteDesired reports whether the point carries a usable desired
// field for src. For a composite source every constituent's field must be
// present, not just the placeholder.
func (p *StudyPoint) hasCompleteDesired(src *Source) bool {
	f := p.desiredField(src.Key)
	if f == nil {
		return false
	}
	if !src.IsDTS() {
		return true
	}
	return len(f.DTS) == len(src.DTS)
}
