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

// addFields is the single appending primitive used by both setup scans.
// For a non-composite source it appends exactly one field; for a
// composite it appends one placeholder for the composite identity whose
// DTS slice owns one field per constituent transmitter, so the group can
// never be split by a later independent insertion. The desired role
// applies the maximum-distance placeholder rule per individual field. An
// undesired entry, when given, supplies the role and percent-time.
func (s *Study) addFields(pt *StudyPoint, src *Source, ud *UndesiredEntry,
	bearing, revBearing, distKm float64, cached bool) *Field {

	f := s.newField(src, ud, bearing, revBearing, distKm, cached)
	if src.IsDTS() {
		// The placeholder is never individually calculated; the
		// composite result derives from its constituents.
		f.Status = FieldCalculated
		f.FieldStrength = NoServiceField
		f.DTS = make([]*Field, 0, len(src.DTS))
		for _, c := range src.DTS {
			d, b, rb := BearingDistance(c.Lat, c.Lon, pt.Lat, pt.Lon)
			cf := s.newField(c, ud, b, rb, d, cached)
			f.DTS = append(f.DTS, cf)
		}
	}
	pt.Fields = append(pt.Fields, f)
	return f
}

// newField allocates and initializes one field record.
func (s *Study) newField(src *Source, ud *UndesiredEntry,
	bearing, revBearing, distKm float64, cached bool) *Field {

	f := s.pools.fields.alloc()
	f.SourceKey = src.Key
	f.Bearing = bearing
	f.ReverseBearing = revBearing
	f.DistanceKm = distKm
	f.Cached = cached
	if ud != nil {
		f.IsUndesired = true
		f.PercentTime = ud.PercentTime
	}
	if ud == nil && src.MaximumDistanceKm > 0 && distKm > src.MaximumDistanceKm {
		// Beyond the maximum calculation distance: a deliberate
		// no-result placeholder, not a missing field.
		f.Status = FieldCalculated
		f.FieldStrength = NoServiceField
	} else {
		f.Status = FieldNeedsCalculation
	}
	return f
}

// needsCalculation reports whether the field (or, for a composite
// placeholder, any constituent field) still awaits a propagation
// calculation.
func (f *Field) needsCalculation() bool {
	if len(f.DTS) > 0 {
		for _, c := range f.DTS {
			if c.Status < 0 {
				return true
			}
		}
		return false
	}
	return f.Status < 0
}

// isPlaceholderResult reports whether the field was deliberately marked
// no-result for being beyond the maximum calculation distance. For a
// composite placeholder, every constituent must be a no-result for the
// composite to count as one.
func (f *Field) isPlaceholderResult() bool {
	if len(f.DTS) > 0 {
		for _, c := range f.DTS {
			if !c.isPlaceholderResult() {
				return false
			}
		}
		return true
	}
	return f.Status == FieldCalculated && f.FieldStrength == NoServiceField
}
