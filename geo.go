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

import "math"

// Coordinates throughout the engine are geographic degrees with latitude
// positive to the north and longitude positive to the WEST, following
// broadcast-engineering convention. Arc-second cell indices use the same
// sign convention, so a cell is identified by its south and east edges.

const (
	// EarthRadiusKm is the mean earth radius used for all spherical
	// bearing and distance calculations.
	EarthRadiusKm = 6370.9935

	// KilometersPerDegree is the great-circle length of one degree of
	// latitude (or of longitude at the equator).
	KilometersPerDegree = EarthRadiusKm * math.Pi / 180
)

const degToRad = math.Pi / 180

// BearingDistance computes the great-circle distance in kilometers from
// point 1 to point 2, along with the forward bearing at point 1 and the
// reverse bearing at point 2, both in degrees true clockwise from north.
// Longitudes are positive west.
func BearingDistance(lat1, lon1, lat2, lon2 float64) (dist, bearing, revBearing float64) {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	// West-positive longitude: the eastward delta from 1 to 2 is lon1-lon2.
	dLam := (lon1 - lon2) * degToRad

	sinDPhi := math.Sin((phi2 - phi1) / 2)
	sinDLam := math.Sin(dLam / 2)
	a := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLam*sinDLam
	if a > 1 {
		a = 1
	}
	dist = 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	bearing = initialBearing(phi1, phi2, dLam)
	revBearing = initialBearing(phi2, phi1, -dLam)
	return dist, bearing, revBearing
}

// initialBearing returns the bearing in degrees at the point with latitude
// phi1 toward the point with latitude phi2, where dLam is the eastward
// longitude difference in radians.
func initialBearing(phi1, phi2, dLam float64) float64 {
	y := math.Sin(dLam) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLam)
	if y == 0 && x == 0 {
		return 0
	}
	b := math.Atan2(y, x) / degToRad
	if b < 0 {
		b += 360
	}
	return b
}

// DestinationPoint returns the coordinates of the point dist kilometers
// from lat, lon along the given bearing (degrees true). Longitude is
// positive west; results west of 180° or east of -180° are not wrapped,
// matching the over-range handling of the population data near the
// antimeridian.
func DestinationPoint(lat, lon float64, bearing, dist float64) (lat2, lon2 float64) {
	phi1 := lat * degToRad
	theta := bearing * degToRad
	delta := dist / EarthRadiusKm

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	if sinPhi2 > 1 {
		sinPhi2 = 1
	} else if sinPhi2 < -1 {
		sinPhi2 = -1
	}
	phi2 := math.Asin(sinPhi2)
	dLam := math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2)

	lat2 = phi2 / degToRad
	lon2 = lon - dLam/degToRad // eastward delta decreases west-positive longitude
	return lat2, lon2
}

// floorDiv returns the floor of a/b for positive b, rounding toward
// negative infinity so that cell alignment is consistent across the
// equator and the prime meridian.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// secondsToDegrees converts an arc-second index to degrees.
func secondsToDegrees(sec int) float64 { return float64(sec) / 3600 }

// degreesToSeconds converts degrees to a whole arc-second count, rounding
// toward negative infinity.
func degreesToSeconds(deg float64) int { return int(math.Floor(deg * 3600)) }
