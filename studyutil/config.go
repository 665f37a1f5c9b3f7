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

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/spectrummodel/sigstudy"
)

// StudyConfig extracts the study parameters from the configuration. The
// study mode is set by the invoking command, not the configuration.
func StudyConfig(cfg *viper.Viper) (sigstudy.Config, error) {
	var c sigstudy.Config

	switch gt := cfg.GetString("Study.GridType"); gt {
	case "local":
		c.GridType = sigstudy.GridLocal
	case "global":
		c.GridType = sigstudy.GridGlobal
	default:
		return c, fmt.Errorf("sigstudy: unknown Study.GridType %q (want local or global)", gt)
	}

	c.CellSizeKm = cfg.GetFloat64("Study.CellSizeKm")
	if c.CellSizeKm <= 0 {
		return c, fmt.Errorf("sigstudy: Study.CellSizeKm must be positive, got %g", c.CellSizeKm)
	}
	c.LonSizeArcSec = cfg.GetInt("Study.LonSizeArcSec")

	switch pm := cfg.GetString("Study.PointMethod"); pm {
	case "centroid":
		c.PointMethod = sigstudy.PointMethodCentroid
	case "largest":
		c.PointMethod = sigstudy.PointMethodLargest
	case "center":
		c.PointMethod = sigstudy.PointMethodCenter
	case "all":
		c.PointMethod = sigstudy.PointMethodAll
	default:
		return c, fmt.Errorf("sigstudy: unknown Study.PointMethod %q", pm)
	}
	c.SnapToCensusPoint = cfg.GetBool("Study.SnapToCensusPoint")

	c.ServiceAreaMode = sigstudy.ServiceAreaStandard
	if cfg.GetBool("Study.UnrestrictedServiceArea") {
		c.ServiceAreaMode = sigstudy.ServiceAreaUnrestricted
	}
	c.CheckSelfInterference = cfg.GetBool("Study.CheckSelfInterference")
	c.SelfIxPercentTime = cfg.GetFloat64("Study.SelfIxPercentTime")
	c.DTSMinimumDistance = cfg.GetBool("Study.DTSMinimumDistance")

	countries, err := cast.ToIntSliceE(cfg.Get("Study.Countries"))
	if err != nil {
		return c, fmt.Errorf("sigstudy: Study.Countries: %v", err)
	}
	if len(countries) == 0 {
		return c, fmt.Errorf("sigstudy: Study.Countries must name at least one country")
	}
	c.Countries = countries

	clutter := cast.ToStringMapString(cfg.Get("Study.ClutterTable"))
	if len(clutter) > 0 {
		c.ClutterTable = make(map[int]int, len(clutter))
		for k, v := range clutter {
			ck, err := cast.ToIntE(k)
			if err != nil {
				return c, fmt.Errorf("sigstudy: Study.ClutterTable category %q: %v", k, err)
			}
			cv, err := cast.ToIntE(v)
			if err != nil {
				return c, fmt.Errorf("sigstudy: Study.ClutterTable clutter %q: %v", v, err)
			}
			c.ClutterTable[ck] = cv
		}
	}

	c.TerrainDB = cfg.GetInt("Study.TerrainDB")
	c.LandCoverVersion = cfg.GetInt("Study.LandCoverVersion")
	c.RuleExtraDistanceKm = cfg.GetFloat64("Study.RuleExtraDistanceKm")
	return c, nil
}
