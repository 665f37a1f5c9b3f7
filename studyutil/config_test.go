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
	"testing"

	"github.com/lnashier/viper"

	"github.com/spectrummodel/sigstudy"
)

func baseConfig() *viper.Viper {
	cfg := viper.New()
	cfg.Set("Study.GridType", "local")
	cfg.Set("Study.CellSizeKm", 2.0)
	cfg.Set("Study.PointMethod", "centroid")
	cfg.Set("Study.Countries", []int{1})
	cfg.Set("Study.TerrainDB", 3)
	cfg.Set("Study.LandCoverVersion", 1)
	return cfg
}

func TestStudyConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Set("Study.GridType", "global")
	cfg.Set("Study.PointMethod", "largest")
	cfg.Set("Study.SnapToCensusPoint", true)
	cfg.Set("Study.UnrestrictedServiceArea", true)
	cfg.Set("Study.CheckSelfInterference", true)
	cfg.Set("Study.SelfIxPercentTime", 10.0)
	cfg.Set("Study.Countries", []int{1, 2})
	cfg.Set("Study.ClutterTable", map[string]string{"21": "3", "41": "7"})

	c, err := StudyConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.GridType != sigstudy.GridGlobal {
		t.Errorf("GridType = %v, want global", c.GridType)
	}
	if c.PointMethod != sigstudy.PointMethodLargest {
		t.Errorf("PointMethod = %v, want largest", c.PointMethod)
	}
	if !c.SnapToCensusPoint || !c.CheckSelfInterference {
		t.Error("boolean options not carried")
	}
	if c.ServiceAreaMode != sigstudy.ServiceAreaUnrestricted {
		t.Errorf("ServiceAreaMode = %d, want unrestricted", c.ServiceAreaMode)
	}
	if c.SelfIxPercentTime != 10 {
		t.Errorf("SelfIxPercentTime = %g, want 10", c.SelfIxPercentTime)
	}
	if len(c.Countries) != 2 || c.Countries[0] != 1 || c.Countries[1] != 2 {
		t.Errorf("Countries = %v, want [1 2]", c.Countries)
	}
	if c.ClutterTable[21] != 3 || c.ClutterTable[41] != 7 {
		t.Errorf("ClutterTable = %v", c.ClutterTable)
	}
	if c.TerrainDB != 3 || c.LandCoverVersion != 1 {
		t.Errorf("TerrainDB = %d, LandCoverVersion = %d", c.TerrainDB, c.LandCoverVersion)
	}
}

func TestStudyConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"bad grid type", "Study.GridType", "hex"},
		{"bad point method", "Study.PointMethod", "median"},
		{"zero cell size", "Study.CellSizeKm", 0.0},
		{"negative cell size", "Study.CellSizeKm", -1.0},
		{"empty countries", "Study.Countries", []int{}},
		{"bad clutter category", "Study.ClutterTable", map[string]string{"woods": "3"}},
		{"bad clutter value", "Study.ClutterTable", map[string]string{"21": "dense"}},
	}
	for _, test := range tests {
		cfg := baseConfig()
		cfg.Set(test.key, test.value)
		if _, err := StudyConfig(cfg); err == nil {
			t.Errorf("%s: expected a validation error", test.name)
		}
	}
}
