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

	"github.com/ctessum/geom"
)

// A Source is one transmitting facility (or, for a DTS composite, the
// logical station standing for several physical transmitters). Its
// service area is given either by an explicit Geography, which takes
// precedence, or by a tabulated Contour interpolated by bearing.
type Source struct {
	Key      int // unique within a study; the reverse lookup index key
	CallSign string

	Country         int
	Service         int
	SignalType      int
	Channel         int
	EmissionMask    int
	FrequencyOffset int

	Lat, Lon float64 // degrees, longitude positive west

	Geography *Geography
	Contour   *Contour

	// MaximumDistanceKm bounds desired-field calculations; a desired
	// field beyond it becomes a calculated no-result placeholder.
	MaximumDistanceKm float64

	// DTS constituents. A composite source's own coordinates are the
	// reference point; its service area is the union of the
	// constituents' areas, optionally truncated (see Truncate).
	DTS []*Source

	// DTSBoundary is the composite's combined boundary; RefContour is
	// the reference facility's contour. When Truncate is set and the
	// study runs in the standard service-area mode, a point must also
	// fall inside the boundary, or within the reference contour distance
	// of the reference point, to count as inside.
	DTSBoundary *Geography
	RefContour  *Contour
	Truncate    bool

	// cellAreaKm is the uniform local-mode cell area for this source,
	// set during grid layout.
	cellAreaKm float64

	// undesireds is the precomputed list of potential interferers for
	// this source acting as desired, built from the interference-rule
	// table before setup runs.
	undesireds []*UndesiredEntry
}

// IsDTS reports whether the source is a multi-transmitter composite.
func (src *Source) IsDTS() bool { return len(src.DTS) > 0 }

// An UndesiredEntry is one potential interferer of a desired source,
// carrying the rule outcome that applies to the pair.
type UndesiredEntry struct {
	SourceKey   int
	PercentTime float64

	// CullDistanceKm is the distance beyond which the undesired is
	// assumed negligible; CheckDistance enables the cull.
	CullDistanceKm float64
	CheckDistance  bool

	RequiredDU float64 // required desired-to-undesired ratio, dB
}

// hasServiceArea reports whether the source has any service-area
// definition at all.
func (src *Source) hasServiceArea() bool {
	if src.IsDTS() {
		for _, c := range src.DTS {
			if c.Geography != nil || c.Contour != nil {
				return true
			}
		}
		return false
	}
	return src.Geography != nil || src.Contour != nil
}

// contains tests the given coordinate against one non-composite source's
// service area: inside the explicit geography if there is one, otherwise
// within the interpolated contour distance at the bearing from the
// source.
func (src *Source) contains(lat, lon float64) (bool, error) {
	if src.Geography != nil {
		b, err := src.Geography.Render()
		if err != nil {
			return false, err
		}
		return b.Contains(lat, lon), nil
	}
	if src.Contour != nil {
		dist, bearing, _ := BearingDistance(src.Lat, src.Lon, lat, lon)
		return dist <= src.Contour.DistanceAt(bearing), nil
	}
	return false, fmt.Errorf("%w: source %s (%d)", ErrNoServiceArea, src.CallSign, src.Key)
}

// serviceAreaContains tests service-area membership for any source. A
// composite contains a point if at least one constituent's own area does;
// with truncation active in the standard service-area mode the point must
// additionally fall inside the composite's combined boundary or within
// the reference-facility contour distance from the reference point.
func (s *Study) serviceAreaContains(src *Source, lat, lon float64) (bool, error) {
	if !src.IsDTS() {
		return src.contains(lat, lon)
	}
	if !src.hasServiceArea() {
		return false, fmt.Errorf("%w: DTS source %s (%d)", ErrNoServiceArea, src.CallSign, src.Key)
	}
	inside := false
	for _, c := range src.DTS {
		in, err := c.contains(lat, lon)
		if err != nil {
			return false, err
		}
		if in {
			inside = true
			break
		}
	}
	if !inside {
		return false, nil
	}
	if src.Truncate && s.ServiceAreaMode == ServiceAreaStandard {
		if src.DTSBoundary != nil {
			b, err := src.DTSBoundary.Render()
			if err != nil {
				return false, err
			}
			return b.Contains(lat, lon), nil
		}
		if src.RefContour != nil {
			dist, bearing, _ := BearingDistance(src.Lat, src.Lon, lat, lon)
			return dist <= src.RefContour.DistanceAt(bearing), nil
		}
	}
	return true, nil
}

// serviceBounds returns the geographic bounding box of the source's
// service area, used to size the grid region the setup engine must scan.
func (src *Source) serviceBounds() (geom.Bounds, error) {
	if src.IsDTS() {
		b := *geom.NewBounds()
		for _, c := range src.DTS {
			cb, err := c.serviceBounds()
			if err != nil {
				return b, err
			}
			b.Extend(&cb)
		}
		return b, nil
	}
	if src.Geography != nil {
		rendered, err := src.Geography.Render()
		if err != nil {
			return *geom.NewBounds(), err
		}
		return rendered.Bounds(), nil
	}
	if src.Contour != nil {
		return radiusBounds(src.Lat, src.Lon, src.Contour.MaxDistance()), nil
	}
	return *geom.NewBounds(), fmt.Errorf("%w: source %s (%d)", ErrNoServiceArea, src.CallSign, src.Key)
}

// serviceRadiusKm returns the largest service-area extent from the
// source point, used for rule-distance consistency checking.
func (src *Source) serviceRadiusKm() float64 {
	if src.IsDTS() {
		max := 0.
		for _, c := range src.DTS {
			d, _, _ := BearingDistance(src.Lat, src.Lon, c.Lat, c.Lon)
			if r := d + c.serviceRadiusKm(); r > max {
				max = r
			}
		}
		return max
	}
	if src.Geography != nil {
		if b, err := src.Geography.Render(); err == nil {
			max := 0.
			for _, p := range b.Points {
				if p.Y >= PolygonBreak {
					continue
				}
				if d, _, _ := BearingDistance(src.Lat, src.Lon, p.Y, p.X); d > max {
					max = d
				}
			}
			return max
		}
	}
	if src.Contour != nil {
		return src.Contour.MaxDistance()
	}
	return 0
}

// radiusBounds is the bounding box of a circle of the given radius around
// a point, built from destination points on the four cardinal bearings.
func radiusBounds(lat, lon, radiusKm float64) geom.Bounds {
	b := *geom.NewBounds()
	north, _ := DestinationPoint(lat, lon, 0, radiusKm)
	south, _ := DestinationPoint(lat, lon, 180, radiusKm)
	_, east := DestinationPoint(lat, lon, 90, radiusKm)
	_, west := DestinationPoint(lat, lon, 270, radiusKm)
	// Longitude is positive west, so the eastern edge is the minimum X.
	b.Extend(&geom.Bounds{Min: geom.Point{X: east, Y: south}, Max: geom.Point{X: west, Y: north}})
	return b
}
