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
	"os"
	"path/filepath"
	"testing"

	"github.com/spectrummodel/sigstudy"
)

const testScenario = `{
	"sources": [
		{
			"key": 1, "callSign": "GRDA", "country": 1, "channel": 20,
			"lat": 40, "lon": 100,
			"contourKm": [50, 50, 50, 50, 50, 50, 50, 50]
		},
		{
			"key": 10, "callSign": "DTSA", "channel": 20,
			"lat": 40.5, "lon": 100.5,
			"truncate": true,
			"refContourKm": [20, 20, 20, 20, 20, 20, 20, 20],
			"dts": [
				{
					"key": 11, "channel": 20, "lat": 40.6, "lon": 100.5,
					"geography": {"type": "circle", "centerLat": 40.6, "centerLon": 100.5, "radiusKm": 30}
				},
				{
					"key": 12, "channel": 20, "lat": 40.4, "lon": 100.5,
					"geography": {"type": "polygon", "vertices": [[40.3, 100.4], [40.5, 100.4], [40.5, 100.6], [40.3, 100.6]]}
				}
			]
		}
	],
	"desired": [1],
	"rules": [
		{"channelDelta": 0, "cullDistanceKm": 100, "requiredDU": 15, "percentTime": 10},
		{"channelDeltaAny": true, "service": 3, "cullDistanceKm": 30, "requiredDU": 10, "percentTime": 50}
	],
	"points": [
		{"lat": 40.2, "lon": 100.1, "receiveHeightM": 10}
	]
}`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "scenario.json")
	if err := os.WriteFile(fname, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return fname
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, testScenario))
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Sources) != 2 || len(sc.Rules) != 2 || len(sc.Points) != 1 {
		t.Fatalf("scenario = %d sources, %d rules, %d points", len(sc.Sources), len(sc.Rules), len(sc.Points))
	}
	if len(sc.Desired) != 1 || sc.Desired[0] != 1 {
		t.Errorf("desired = %v, want [1]", sc.Desired)
	}
}

func TestLoadScenarioRejectsEmpty(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, `{"sources": []}`)); err == nil {
		t.Error("expected an error for a scenario without sources")
	}
	if _, err := LoadScenario(writeScenario(t, `not json`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestBuildSources(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, testScenario))
	if err != nil {
		t.Fatal(err)
	}
	sources, err := sc.BuildSources()
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}

	grd := sources[0]
	if grd.Key != 1 || grd.CallSign != "GRDA" || grd.Channel != 20 {
		t.Errorf("source 1 = %+v", grd)
	}
	if grd.Contour == nil || len(grd.Contour.Distances) != 8 {
		t.Error("source 1 contour not built")
	}

	dts := sources[1]
	if !dts.IsDTS() || len(dts.DTS) != 2 {
		t.Fatalf("source 10 is not a 2-constituent composite")
	}
	if !dts.Truncate || dts.RefContour == nil {
		t.Error("source 10 truncation parameters not carried")
	}
	circle := dts.DTS[0].Geography
	if circle == nil || circle.Type != sigstudy.GeoCircle || circle.RadiusKm != 30 {
		t.Errorf("constituent 11 geography = %+v", circle)
	}
	poly := dts.DTS[1].Geography
	if poly == nil || poly.Type != sigstudy.GeoPolygon || len(poly.Vertices) != 4 {
		t.Fatalf("constituent 12 geography = %+v", poly)
	}
	// Vertices are [lat, lon] in the file; X is longitude.
	if poly.Vertices[0].X != 100.4 || poly.Vertices[0].Y != 40.3 {
		t.Errorf("vertex 0 = %+v, lat/lon order not honored", poly.Vertices[0])
	}
}

func TestBuildSourcesRejectsUnknownGeography(t *testing.T) {
	sc := &Scenario{Sources: []*SourceSpec{{
		Key:       1,
		Geography: &GeographySpec{Type: "blob"},
	}}}
	if _, err := sc.BuildSources(); err == nil {
		t.Error("expected an error for an unknown geography type")
	}
}

func TestBuildRulesPreservesOrder(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, testScenario))
	if err != nil {
		t.Fatal(err)
	}
	rules := sc.BuildRules()
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].RequiredDU != 15 || rules[0].PercentTime != 10 {
		t.Errorf("rule 0 = %+v", rules[0])
	}
	if !rules[1].ChannelDeltaAny || rules[1].Service != 3 {
		t.Errorf("rule 1 = %+v", rules[1])
	}
}
