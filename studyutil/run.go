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
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	log "github.com/sirupsen/logrus"

	"github.com/spectrummodel/sigstudy"
	"github.com/spectrummodel/sigstudy/popdb"
	"github.com/spectrummodel/sigstudy/terrain"
)

// Run executes a study over the scenario and writes the configured
// outputs. The study mode must already be set in sc.
func Run(cfg *viper.Viper, sc sigstudy.Config, scenario *Scenario) error {
	study := sigstudy.NewStudy(sc)

	tc, err := terrain.NewCache(os.ExpandEnv(cfg.GetString("TerrainDir")))
	if err != nil {
		return err
	}
	study.Terrain = tc

	if dir := os.ExpandEnv(cfg.GetString("LandCoverDir")); dir != "" {
		lc, err := terrain.NewLandCover(dir)
		if err != nil {
			return err
		}
		study.LandCover = lc
	}

	if fname := os.ExpandEnv(cfg.GetString("CountryShapefile")); fname != "" {
		study.CountryDB, err = LoadCountries(fname)
		if err != nil {
			return err
		}
	} else {
		study.CountryDB = NoCountries{}
	}

	if sc.Mode == sigstudy.ModeGrid {
		pop, err := popdb.Open(os.ExpandEnv(cfg.GetString("PopulationDB")))
		if err != nil {
			return err
		}
		defer pop.Close()
		study.Pop = pop

		if dir := os.ExpandEnv(cfg.GetString("CacheDir")); dir != "" {
			study.Cache = &sigstudy.FileCache{Dir: dir}
		}
	}

	sources, err := scenario.BuildSources()
	if err != nil {
		return err
	}
	if err := study.AddSources(sources...); err != nil {
		return err
	}

	desired, err := desiredSources(scenario, sources)
	if err != nil {
		return err
	}

	if sc.Mode == sigstudy.ModePoints {
		if len(scenario.Points) == 0 {
			return fmt.Errorf("sigstudy: points-mode scenario has no receiver points")
		}
		for _, p := range scenario.Points {
			if _, err := study.AddPoint(p.Lat, p.Lon, p.ReceiveHeightM); err != nil {
				return err
			}
		}
	}

	study.BuildUndesiredLists(scenario.BuildRules(), desired)

	log.WithFields(log.Fields{"sources": len(sources), "desired": len(desired)}).
		Info("starting study")
	if err := study.Run(desired); err != nil {
		return err
	}

	if fname := os.ExpandEnv(cfg.GetString("OutputCSV")); fname != "" {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("sigstudy: creating output CSV: %v", err)
		}
		if err := study.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.WithField("file", fname).Info("wrote CSV output")
	}

	if fname := os.ExpandEnv(cfg.GetString("OutputShapefile")); fname != "" {
		base := strings.TrimSuffix(fname, filepath.Ext(fname))
		for _, src := range desired {
			out := fmt.Sprintf("%s_%d.shp", base, src.Key)
			if err := study.WriteShapefile(out, src); err != nil {
				return err
			}
			log.WithFields(log.Fields{"file": out, "source": src.CallSign}).
				Info("wrote shapefile output")
		}
	}
	return nil
}

// desiredSources resolves the scenario's desired-key list against the
// built sources, defaulting to all top-level sources.
func desiredSources(scenario *Scenario, sources []*sigstudy.Source) ([]*sigstudy.Source, error) {
	if len(scenario.Desired) == 0 {
		return sources, nil
	}
	byKey := make(map[int]*sigstudy.Source, len(sources))
	for _, src := range sources {
		byKey[src.Key] = src
	}
	out := make([]*sigstudy.Source, 0, len(scenario.Desired))
	for _, k := range scenario.Desired {
		src, ok := byKey[k]
		if !ok {
			return nil, fmt.Errorf("sigstudy: desired key %d is not a scenario source", k)
		}
		out = append(out, src)
	}
	return out, nil
}
