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
	"testing"
)

func TestBearingDistanceCardinal(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		dist, bearing, rev     float64
	}{
		{"north", 40, 90, 41, 90, KilometersPerDegree, 0, 180},
		{"south", 41, 90, 40, 90, KilometersPerDegree, 180, 0},
		{"west", 0, 90, 0, 91, KilometersPerDegree, 270, 90},
		{"east", 0, 91, 0, 90, KilometersPerDegree, 90, 270},
	}
	for _, test := range tests {
		dist, bearing, rev := BearingDistance(test.lat1, test.lon1, test.lat2, test.lon2)
		if math.Abs(dist-test.dist) > 1e-6 {
			t.Errorf("%s: dist = %g, want %g", test.name, dist, test.dist)
		}
		if math.Abs(bearingDelta(bearing, test.bearing)) > 1e-6 {
			t.Errorf("%s: bearing = %g, want %g", test.name, bearing, test.bearing)
		}
		if math.Abs(bearingDelta(rev, test.rev)) > 1e-6 {
			t.Errorf("%s: reverse bearing = %g, want %g", test.name, rev, test.rev)
		}
	}
}

func TestBearingDistanceSamePoint(t *testing.T) {
	dist, bearing, rev := BearingDistance(40.25, 100.5, 40.25, 100.5)
	if dist != 0 {
		t.Errorf("dist = %g, want 0", dist)
	}
	if bearing != 0 || rev != 0 {
		t.Errorf("bearings = %g, %g, want 0, 0", bearing, rev)
	}
}

func TestDestinationPointRoundTrip(t *testing.T) {
	const lat, lon = 35.2, 80.5
	for _, bearing := range []float64{0, 45, 137.25, 250, 359} {
		for _, dist := range []float64{0.5, 12, 250, 1000} {
			la, lo := DestinationPoint(lat, lon, bearing, dist)
			d, b, _ := BearingDistance(lat, lon, la, lo)
			if math.Abs(d-dist) > 1e-6 {
				t.Errorf("bearing %g dist %g: round-trip dist = %g", bearing, dist, d)
			}
			if math.Abs(bearingDelta(b, bearing)) > 1e-6 {
				t.Errorf("bearing %g dist %g: round-trip bearing = %g", bearing, dist, b)
			}
		}
	}
}

func TestDestinationPointWestward(t *testing.T) {
	// Longitude is positive west, so a westward step must increase it.
	_, lon := DestinationPoint(0, 100, 270, 100)
	if lon <= 100 {
		t.Errorf("westward destination longitude = %g, want > 100", lon)
	}
	_, lon = DestinationPoint(0, 100, 90, 100)
	if lon >= 100 {
		t.Errorf("eastward destination longitude = %g, want < 100", lon)
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 2, 3},
		{6, 3, 2},
		{-7, 2, -4},
		{-6, 3, -2},
		{0, 5, 0},
		{-1, 65, -1},
		{64, 65, 0},
	}
	for _, test := range tests {
		if got := floorDiv(test.a, test.b); got != test.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSecondConversions(t *testing.T) {
	if got := secondsToDegrees(144000); got != 40 {
		t.Errorf("secondsToDegrees(144000) = %g, want 40", got)
	}
	if got := degreesToSeconds(-0.5); got != -1800 {
		t.Errorf("degreesToSeconds(-0.5) = %d, want -1800", got)
	}
	if got := degreesToSeconds(40.0); got != 144000 {
		t.Errorf("degreesToSeconds(40) = %d, want 144000", got)
	}
}

func TestBearingDelta(t *testing.T) {
	tests := []struct{ b1, b2, want float64 }{
		{10, 350, 20},
		{350, 10, -20},
		{180, 0, 180},
		{90, 90, 0},
	}
	for _, test := range tests {
		if got := bearingDelta(test.b1, test.b2); math.Abs(got-test.want) > 1e-9 {
			t.Errorf("bearingDelta(%g, %g) = %g, want %g", test.b1, test.b2, got, test.want)
		}
	}
}
