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
	"math"

	"github.com/ctessum/geom"
)

// PolygonBreak is the sentinel latitude separating the closed rings of a
// compound boundary (islands, lakes) in a single vertex sequence. Any
// vertex with Y >= PolygonBreak starts a new ring.
const PolygonBreak = 999.

// Rendering constants bounding the densified boundary of a rendered
// geography or contour. Segment length is in kilometers at map scale;
// the curvature tolerance is the maximum bearing change in degrees
// allowed across one segment before the walk shortens its step.
const (
	renderSegmentKm        = 1.0
	renderMinSegmentKm     = 0.2
	renderCurveTolerance   = 3.0
	renderStepAdjust       = 0.1
	renderMaxStepRetries   = 25
	circleRenderMaxAngle   = 5.0 // degrees of arc per segment, upper bound
	sectorEdgePointSpacing = renderSegmentKm
)

// A Boundary is a densified closed point sequence in geographic
// coordinates (X is longitude positive west, Y is latitude), suitable for
// containment testing and mapping. Compound boundaries separate rings
// with a PolygonBreak vertex.
type Boundary struct {
	Points []geom.Point
	bounds geom.Bounds
}

func newBoundary(pts []geom.Point) *Boundary {
	b := &Boundary{Points: pts}
	b.bounds = *geom.NewBounds()
	for _, p := range pts {
		if p.Y >= PolygonBreak {
			continue
		}
		b.bounds.Extend(&geom.Bounds{Min: p, Max: p})
	}
	return b
}

// Bounds returns the geographic bounding box of the boundary, excluding
// ring-break sentinels.
func (b *Boundary) Bounds() geom.Bounds { return b.bounds }

// Contains tests whether the point at lat, lon is inside the boundary by
// the even-odd rule. A point exactly on an edge or coincident with a
// vertex is inside; the tie-break is deterministic rather than
// geometrically meaningful. Compound boundaries are handled ring by ring:
// an odd total crossing count over all rings means inside, so holes
// subtract and islands add.
func (b *Boundary) Contains(lat, lon float64) bool {
	if len(b.Points) < 3 {
		return false
	}
	if lat < b.bounds.Min.Y || lat > b.bounds.Max.Y ||
		lon < b.bounds.Min.X || lon > b.bounds.Max.X {
		return false
	}

	inside := false
	start := 0
	for i := 0; i <= len(b.Points); i++ {
		if i < len(b.Points) && b.Points[i].Y < PolygonBreak {
			continue
		}
		ring := b.Points[start:i]
		onEdge, odd := ringCrossings(ring, lat, lon)
		if onEdge {
			return true
		}
		if odd {
			inside = !inside
		}
		start = i + 1
	}
	return inside
}

// ringCrossings counts crossings of the eastward ray from (lat, lon)
// with the edges of one closed ring. It reports whether the point lies on
// an edge or vertex, and whether the crossing count is odd.
func ringCrossings(ring []geom.Point, lat, lon float64) (onEdge, odd bool) {
	n := len(ring)
	if n < 3 {
		return false, false
	}
	crossings := 0
	for i := 0; i < n; i++ {
		p1 := ring[i]
		p2 := ring[(i+1)%n]
		if p1.Y == lat && p1.X == lon {
			return true, false
		}
		// Edge coincidence: collinear and within the segment box.
		cross := (p2.X-p1.X)*(lat-p1.Y) - (p2.Y-p1.Y)*(lon-p1.X)
		if cross == 0 &&
			lon >= math.Min(p1.X, p2.X) && lon <= math.Max(p1.X, p2.X) &&
			lat >= math.Min(p1.Y, p2.Y) && lat <= math.Max(p1.Y, p2.Y) {
			return true, false
		}
		// Half-open test excludes double-counting at shared vertices.
		if (p1.Y > lat) != (p2.Y > lat) {
			x := p1.X + (lat-p1.Y)/(p2.Y-p1.Y)*(p2.X-p1.X)
			if x > lon {
				crossings++
			}
		}
	}
	return false, crossings%2 == 1
}

// GeographyType identifies the shape of an explicit service-area
// geography.
type GeographyType int

// Geography shapes.
const (
	GeoPolygon GeographyType = iota
	GeoCircle
	GeoBox
	GeoSectors
)

// A Sector is one azimuth span of a sectors geography. The span runs
// clockwise from Azimuth to the next sector's Azimuth at the given radius.
type Sector struct {
	Azimuth  float64 // degrees true
	RadiusKm float64
}

// A Geography is an explicit service-area shape: a polygon given directly
// by vertices, or a circle, box, or set of sectors around a center point.
// Rendering densifies the shape into a Boundary and memoizes the result.
type Geography struct {
	Type GeographyType

	// Center of a circle, box, or sectors shape.
	CenterLat, CenterLon float64

	RadiusKm          float64 // circle
	WidthKm, HeightKm float64 // box: east-west and north-south extents

	Sectors []Sector

	// Vertices of a polygon geography, possibly compound with
	// PolygonBreak separators. X is longitude positive west.
	Vertices []geom.Point

	rendered *Boundary
}

// Render returns the densified boundary for the geography, rendering it
// on first use.
func (g *Geography) Render() (*Boundary, error) {
	if g.rendered != nil {
		return g.rendered, nil
	}
	var pts []geom.Point
	switch g.Type {
	case GeoPolygon:
		if len(g.Vertices) < 3 {
			return nil, fmt.Errorf("sigstudy: polygon geography has %d vertices", len(g.Vertices))
		}
		pts = densifyPolygon(g.Vertices)
	case GeoCircle:
		if g.RadiusKm <= 0 {
			return nil, fmt.Errorf("sigstudy: circle geography has radius %g", g.RadiusKm)
		}
		pts = renderArc(g.CenterLat, g.CenterLon, g.RadiusKm, 0, 360)
	case GeoBox:
		if g.WidthKm <= 0 || g.HeightKm <= 0 {
			return nil, fmt.Errorf("sigstudy: box geography is %g by %g km", g.WidthKm, g.HeightKm)
		}
		pts = renderBox(g.CenterLat, g.CenterLon, g.WidthKm, g.HeightKm)
	case GeoSectors:
		if len(g.Sectors) == 0 {
			return nil, fmt.Errorf("sigstudy: sectors geography has no sectors")
		}
		pts = renderSectors(g.CenterLat, g.CenterLon, g.Sectors)
	default:
		return nil, fmt.Errorf("sigstudy: unknown geography type %d", g.Type)
	}
	g.rendered = newBoundary(pts)
	return g.rendered, nil
}

// densifyPolygon subdivides polygon edges longer than the target segment
// length so containment and mapping behave consistently with rendered
// shapes. Ring breaks pass through unchanged.
func densifyPolygon(verts []geom.Point) []geom.Point {
	var out []geom.Point
	start := 0
	flush := func(ring []geom.Point) {
		n := len(ring)
		for i := 0; i < n; i++ {
			p1 := ring[i]
			p2 := ring[(i+1)%n]
			out = append(out, p1)
			dist, bearing, _ := BearingDistance(p1.Y, p1.X, p2.Y, p2.X)
			steps := int(dist / renderSegmentKm)
			for k := 1; k <= steps; k++ {
				la, lo := DestinationPoint(p1.Y, p1.X, bearing, dist*float64(k)/float64(steps+1))
				out = append(out, geom.Point{X: lo, Y: la})
			}
		}
	}
	for i := 0; i <= len(verts); i++ {
		if i < len(verts) && verts[i].Y < PolygonBreak {
			continue
		}
		flush(verts[start:i])
		if i < len(verts) {
			out = append(out, verts[i])
		}
		start = i + 1
	}
	return out
}

// renderArc densifies the arc of a circle of the given radius around a
// center point from azimuth az1 clockwise to az2.
func renderArc(lat, lon, radiusKm, az1, az2 float64) []geom.Point {
	if az2 <= az1 {
		az2 += 360
	}
	// Segment angular step bounded by both the target chord length and
	// the absolute angle bound.
	step := renderSegmentKm / radiusKm / degToRad
	if step > circleRenderMaxAngle {
		step = circleRenderMaxAngle
	}
	n := int(math.Ceil((az2 - az1) / step))
	if n < 4 {
		n = 4
	}
	pts := make([]geom.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		az := az1 + (az2-az1)*float64(i)/float64(n)
		la, lo := DestinationPoint(lat, lon, az, radiusKm)
		pts = append(pts, geom.Point{X: lo, Y: la})
	}
	return pts
}

// renderBox returns the densified boundary of a box centered on a point.
// Corners are placed at the requested width along the south and north
// edges; the densified edges between them are geodesics.
func renderBox(lat, lon, widthKm, heightKm float64) []geom.Point {
	halfH := heightKm / 2 / KilometersPerDegree
	south := lat - halfH
	north := lat + halfH
	halfWs := widthKm / 2 / (KilometersPerDegree * math.Cos(south*degToRad))
	halfWn := widthKm / 2 / (KilometersPerDegree * math.Cos(north*degToRad))

	corners := []geom.Point{
		{X: lon + halfWs, Y: south}, // southwest
		{X: lon - halfWs, Y: south}, // southeast
		{X: lon - halfWn, Y: north}, // northeast
		{X: lon + halfWn, Y: north}, // northwest
	}
	return densifyPolygon(corners)
}

// renderSectors renders a sectors geography: arcs at each sector's radius
// joined by radial edges at the sector boundaries.
func renderSectors(lat, lon float64, sectors []Sector) []geom.Point {
	var pts []geom.Point
	n := len(sectors)
	for i, sec := range sectors {
		next := sectors[(i+1)%n]
		endAz := next.Azimuth
		if n == 1 {
			endAz = sec.Azimuth + 360
		}
		pts = append(pts, renderArc(lat, lon, sec.RadiusKm, sec.Azimuth, endAz)...)
		// The radial step to the next sector's radius; arc rendering
		// supplies the arc points, this supplies the jump edge.
		if n > 1 && sec.RadiusKm != next.RadiusKm {
			step := sectorEdgePointSpacing
			lo, hi := math.Min(sec.RadiusKm, next.RadiusKm), math.Max(sec.RadiusKm, next.RadiusKm)
			for r := lo + step; r < hi; r += step {
				la, lo2 := DestinationPoint(lat, lon, endAz, r)
				pts = append(pts, geom.Point{X: lo2, Y: la})
			}
		}
	}
	return pts
}

// A Contour is a tabulated service boundary: one limiting distance per
// equally spaced radial, starting at true north and proceeding clockwise.
type Contour struct {
	// Distances holds the contour distance in kilometers at each radial.
	Distances []float64

	rendered    *Boundary
	renderedLat float64
	renderedLon float64
}

// azimuthStep returns the angular spacing of the contour radials.
func (c *Contour) azimuthStep() float64 { return 360 / float64(len(c.Distances)) }

// DistanceAt returns the contour distance at the given bearing,
// interpolated linearly between adjacent radials.
func (c *Contour) DistanceAt(bearing float64) float64 {
	n := len(c.Distances)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return c.Distances[0]
	}
	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	pos := b / c.azimuthStep()
	i := int(pos)
	frac := pos - float64(i)
	d1 := c.Distances[i%n]
	d2 := c.Distances[(i+1)%n]
	return d1 + (d2-d1)*frac
}

// Render walks the contour into a closed Boundary around the given
// source coordinates. A cubic is fit through each pair of adjacent radial
// samples with slope continuity at the shared endpoints; where the two
// adjacent secant slopes disagree in sign the endpoint uses a zero
// second-derivative (natural) end condition instead. The walk adapts its
// azimuth step so each segment satisfies both the target length and the
// curvature-change tolerance, retrying with a 10% larger or smaller step
// as needed. The result is explicitly closed.
func (c *Contour) Render(lat, lon float64) (*Boundary, error) {
	if c.rendered != nil && lat == c.renderedLat && lon == c.renderedLon {
		return c.rendered, nil
	}
	n := len(c.Distances)
	if n < 3 {
		return nil, fmt.Errorf("sigstudy: contour has %d radials", n)
	}
	step := c.azimuthStep()

	// Endpoint slopes (km per degree of azimuth) for the piecewise cubic.
	slopes := make([]float64, n)
	for i := 0; i < n; i++ {
		prev := (c.Distances[i] - c.Distances[(i+n-1)%n]) / step
		next := (c.Distances[(i+1)%n] - c.Distances[i]) / step
		if prev*next <= 0 {
			slopes[i] = 0 // natural end condition when slopes disagree
		} else {
			slopes[i] = (prev + next) / 2
		}
	}

	distAt := func(az float64) float64 {
		b := math.Mod(az, 360)
		if b < 0 {
			b += 360
		}
		i := int(b / step)
		t := (b - float64(i)*step) / step
		d0 := c.Distances[i%n]
		d1 := c.Distances[(i+1)%n]
		m0 := slopes[i%n] * step
		m1 := slopes[(i+1)%n] * step
		// Cubic Hermite basis.
		t2 := t * t
		t3 := t2 * t
		return d0*(2*t3-3*t2+1) + m0*(t3-2*t2+t) + d1*(-2*t3+3*t2) + m1*(t3-t2)
	}

	var pts []geom.Point
	az := 0.
	la, lo := DestinationPoint(lat, lon, az, distAt(az))
	pts = append(pts, geom.Point{X: lo, Y: la})
	prevBearing := math.NaN()

	for az < 360 {
		// Initial guess from the target chord length at the current radius.
		r := distAt(az)
		dAz := renderSegmentKm / math.Max(r, renderMinSegmentKm) / degToRad
		if dAz > step {
			dAz = step
		}
		var naz, nla, nlo, segBearing float64
		for retry := 0; retry < renderMaxStepRetries; retry++ {
			naz = math.Min(az+dAz, 360)
			nla, nlo = DestinationPoint(lat, lon, naz, distAt(naz))
			last := pts[len(pts)-1]
			var segLen float64
			segLen, segBearing, _ = BearingDistance(last.Y, last.X, nla, nlo)
			turn := 0.
			if !math.IsNaN(prevBearing) {
				turn = math.Abs(bearingDelta(segBearing, prevBearing))
			}
			if segLen > renderSegmentKm || turn > renderCurveTolerance {
				dAz *= 1 - renderStepAdjust
				continue
			}
			if segLen < renderMinSegmentKm && naz < 360 && turn < renderCurveTolerance/2 {
				dAz *= 1 + renderStepAdjust
				continue
			}
			break
		}
		// The last candidate is taken even if the retries did not
		// converge, so the walk always terminates.
		az = naz
		pts = append(pts, geom.Point{X: nlo, Y: nla})
		prevBearing = segBearing
	}
	pts = append(pts, pts[0]) // explicit closure
	c.rendered = newBoundary(pts)
	c.renderedLat, c.renderedLon = lat, lon
	return c.rendered, nil
}

// MaxDistance returns the largest radial distance in the contour.
func (c *Contour) MaxDistance() float64 {
	max := 0.
	for _, d := range c.Distances {
		if d > max {
			max = d
		}
	}
	return max
}

// bearingDelta returns the signed smallest angle from b2 to b1 in degrees.
func bearingDelta(b1, b2 float64) float64 {
	d := math.Mod(b1-b2, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}
