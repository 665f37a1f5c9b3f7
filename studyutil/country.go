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

package studyutil

import (
	"fmt"
	"strconv"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
)

// A CountryIndex answers point-in-country queries from a polygon
// shapefile. It implements sigstudy.CountryLookup.
type CountryIndex struct {
	index *rtree.Rtree
}

type countryShape struct {
	geom.Polygonal
	code int
}

// LoadCountries reads a polygon shapefile of country borders in WGS84
// degrees with a numeric COUNTRY attribute.
func LoadCountries(fname string) (*CountryIndex, error) {
	d, err := shp.NewDecoder(fname)
	if err != nil {
		return nil, fmt.Errorf("sigstudy: reading country shapefile %s: %v", fname, err)
	}
	defer d.Close()

	idx := rtree.NewTree(25, 50)
	for {
		g, fields, more := d.DecodeRowFields("COUNTRY")
		if !more {
			break
		}
		code, err := strconv.Atoi(fields["COUNTRY"])
		if err != nil {
			return nil, fmt.Errorf("sigstudy: country shapefile %s: COUNTRY attribute %q: %v",
				fname, fields["COUNTRY"], err)
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("sigstudy: country shapefile %s: row is %T, want polygon",
				fname, g)
		}
		idx.Insert(countryShape{Polygonal: poly, code: code})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("sigstudy: reading country shapefile %s: %v", fname, err)
	}
	return &CountryIndex{index: idx}, nil
}

// Country returns the country code at the coordinate (longitude positive
// west), or 0 when no country polygon covers it.
func (c *CountryIndex) Country(lat, lon float64) (int, error) {
	p := geom.Point{X: -lon, Y: lat}
	for _, cI := range c.index.SearchIntersect(p.Bounds()) {
		cs := cI.(countryShape)
		if p.Within(cs.Polygonal) != geom.Outside {
			return cs.code, nil
		}
	}
	return 0, nil
}

// NoCountries is a CountryLookup that never matches, so every point
// takes its country from the source under study.
type NoCountries struct{}

// Country always reports no match.
func (NoCountries) Country(lat, lon float64) (int, error) { return 0, nil }
