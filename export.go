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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// wgs84WKT is the projection definition written alongside every exported
// shapefile. All exported coordinates are conventional east-positive
// WGS84 degrees, converted from the internal west-positive convention.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// WriteShapefile exports the study's points as a polygon shapefile, one
// record per study point with its cell geometry, demographic totals, and
// the desired field for src. Undesired fields are summarized by their
// count; the per-entry detail belongs in the CSV export. In points mode
// each record carries a degenerate point-sized box at the receiver
// location.
func (s *Study) WriteShapefile(fileName string, src *Source) error {
	fields := []goshp.Field{
		goshp.NumberField("KEY", 10),
		goshp.FloatField("LATITUDE", 14, 8),
		goshp.FloatField("LONGITUDE", 14, 8),
		goshp.NumberField("POP", 12),
		goshp.NumberField("HOUSEHOLDS", 12),
		goshp.FloatField("AREAKM", 14, 6),
		goshp.FloatField("FIELD", 14, 6),
		goshp.NumberField("STATUS", 6),
		goshp.NumberField("UNDCOUNT", 6),
	}

	fileBase := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	fileName = fileBase + ".shp"
	shape, err := shp.NewEncoderFromFields(fileName, goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("sigstudy: creating output shapefile: %v", err)
	}

	for _, pt := range s.Points() {
		f := pt.desiredField(src.Key)
		if f == nil {
			continue
		}
		und := 0
		for _, uf := range pt.Fields {
			if uf.IsUndesired {
				und++
			}
		}
		var pop, households int
		var area float64
		if pt.Grid != nil {
			pop = pt.Grid.Population
			households = pt.Grid.Households
			area = pt.Grid.AreaKm
		}
		err = shape.EncodeFields(s.pointGeometry(pt),
			src.Key, pt.Lat, -pt.Lon, pop, households, area,
			f.FieldStrength, f.Status, und)
		if err != nil {
			shape.Close()
			return fmt.Errorf("sigstudy: writing output shapefile: %v", err)
		}
	}
	shape.Close()

	prj, err := os.Create(fileBase + ".prj")
	if err != nil {
		return fmt.Errorf("sigstudy: creating output prj file: %v", err)
	}
	fmt.Fprint(prj, wgs84WKT)
	return prj.Close()
}

// pointGeometry builds the exported polygon for one study point: the
// point's grid cell, or a point-sized box in points mode. X is
// east-positive longitude, Y latitude.
func (s *Study) pointGeometry(pt *StudyPoint) geom.Polygonal {
	if pt.Grid == nil {
		p := geom.Point{X: -pt.Lon, Y: pt.Lat}
		return geom.Polygon{{p, p, p, p}}
	}
	g := s.grid
	latIdx := floorDiv(pt.Grid.CellLat, g.LatSize)
	lonSize := g.rowLonCellSize(latIdx)
	south := secondsToDegrees(pt.Grid.CellLat)
	north := secondsToDegrees(pt.Grid.CellLat + g.LatSize)
	// Internal longitudes are west-positive, so the east edge is the
	// smaller west-positive value and negation flips the ring to run
	// counterclockwise in conventional coordinates.
	east := -secondsToDegrees(pt.Grid.CellLon)
	west := -secondsToDegrees(pt.Grid.CellLon + lonSize)
	return geom.Polygon{{
		{X: west, Y: south},
		{X: east, Y: south},
		{X: east, Y: north},
		{X: west, Y: north},
		{X: west, Y: south},
	}}
}

// WriteCSV writes every study point and its full field list to w, one
// row per field, with point identity and demographics repeated on each
// row. Longitudes are conventional east-positive degrees.
func (s *Study) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"point_lat", "point_lon", "country", "population", "households",
		"area_km", "elevation_m", "source_key", "call_sign", "role",
		"percent_time", "bearing", "distance_km", "field", "status",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	ff := func(v float64, prec int) string {
		return strconv.FormatFloat(v, 'f', prec, 64)
	}
	for _, pt := range s.Points() {
		var pop, households int
		var area float64
		if pt.Grid != nil {
			pop = pt.Grid.Population
			households = pt.Grid.Households
			area = pt.Grid.AreaKm
		}
		for _, f := range pt.Fields {
			role := "desired"
			if f.IsUndesired {
				role = "undesired"
			}
			src := s.lookupSource(f.SourceKey)
			row := []string{
				ff(pt.Lat, 8), ff(-pt.Lon, 8),
				strconv.Itoa(pt.Country),
				strconv.Itoa(pop), strconv.Itoa(households),
				ff(area, 6), ff(pt.ElevationM, 1),
				strconv.Itoa(f.SourceKey), src.CallSign, role,
				ff(f.PercentTime, 2), ff(f.Bearing, 2),
				ff(f.DistanceKm, 3), ff(f.FieldStrength, 2),
				strconv.Itoa(f.Status),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
