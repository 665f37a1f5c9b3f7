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

// Package studyutil holds the configuration and command-line interface
// for running broadcast interference and coverage studies.
package studyutil

import (
	"fmt"

	"github.com/lnashier/viper"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spectrummodel/sigstudy"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to SigStudy.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the logging verbosity: panic, fatal, error,
              warning, info, debug, or trace.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario",
			usage: `
              Scenario specifies the scenario file holding the sources,
              interference rules, and (in points mode) the receiver points
              for the study.`,
			shorthand:  "s",
			defaultVal: "scenario.json",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputShapefile",
			usage: `
              OutputShapefile specifies the path for the per-source polygon
              shapefile output. Empty disables shapefile output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputCSV",
			usage: `
              OutputCSV specifies the path for the point and field CSV
              output. Empty disables CSV output.`,
			defaultVal: "sigstudy.csv",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "PopulationDB",
			usage: `
              PopulationDB is the path of the SQLite census-point database.`,
			defaultVal: "population.db",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TerrainDir",
			usage: `
              TerrainDir is the directory holding SRTM-format .hgt
              elevation tiles.`,
			defaultVal: "terrain",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LandCoverDir",
			usage: `
              LandCoverDir is the directory holding land-cover category
              tiles. Empty disables clutter assignment.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CountryShapefile",
			usage: `
              CountryShapefile is a polygon shapefile of country borders
              with a numeric COUNTRY attribute, used to assign each study
              point its country. Empty assigns every point the country of
              the source under study.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is the directory for cached per-source field sets,
              letting interrupted grid studies resume. Empty disables the
              cache.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.GridType",
			usage: `
              Study.GridType selects the grid layout: "local" uses one
              fixed longitude cell size for the whole study, "global" uses
              latitude-banded sizes so studies anywhere on earth share
              cell alignment.`,
			defaultVal: "local",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.CellSizeKm",
			usage: `
              Study.CellSizeKm is the target study cell size in
              kilometers.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.LonSizeArcSec",
			usage: `
              Study.LonSizeArcSec fixes the local-mode longitude cell size
              in whole arc-seconds. Zero derives it from Study.CellSizeKm
              at the first source's latitude.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.PointMethod",
			usage: `
              Study.PointMethod selects how a cell's census points combine
              into its study point coordinate: "centroid",
              "largest" (largest population census point), "center"
              (geometric cell center), or "all" (no aggregation; one study
              point per census point).`,
			defaultVal: "centroid",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.SnapToCensusPoint",
			usage: `
              Study.SnapToCensusPoint moves a computed cell coordinate to
              the nearest census point, so the study point sits where
              people actually are.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.UnrestrictedServiceArea",
			usage: `
              Study.UnrestrictedServiceArea disables composite service-area
              truncation, extending every constituent's full area.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.CheckSelfInterference",
			usage: `
              Study.CheckSelfInterference adds a self-interference
              undesired field for composite (DTS) desired sources.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), pointsCmd.Flags()},
		},
		{
			name: "Study.SelfIxPercentTime",
			usage: `
              Study.SelfIxPercentTime is the percent-time assigned to
              composite self-interference fields.`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), pointsCmd.Flags()},
		},
		{
			name: "Study.DTSMinimumDistance",
			usage: `
              Study.DTSMinimumDistance culls a composite undesired by the
              minimum distance across its constituent transmitters instead
              of the distance from its reference point.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), pointsCmd.Flags()},
		},
		{
			name: "Study.Countries",
			usage: `
              Study.Countries lists the country codes to query population
              for, in evaluation order.`,
			defaultVal: []int{1},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Study.ClutterTable",
			usage: `
              Study.ClutterTable maps land-cover category numbers to
              clutter types, as a string map of numbers.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), pointsCmd.Flags()},
		},
		{
			name: "Study.TerrainDB",
			usage: `
              Study.TerrainDB selects the elevation database: 3 for
              3-arc-second tiles, 1 for 1-arc-second tiles.`,
			defaultVal: 3,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Study.LandCoverVersion",
			usage: `
              Study.LandCoverVersion selects the land-cover data version.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Study.RuleExtraDistanceKm",
			usage: `
              Study.RuleExtraDistanceKm is the slack added to rule culling
              distances when checking whether an undesired can possibly
              affect a desired service area.`,
			defaultVal: sigstudy.DefaultRuleExtraDistance,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), pointsCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SIGSTUDY")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				set.StringToString(option.name, option.defaultVal.(map[string]string), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(pointsCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and applies the configured log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("sigstudy: problem reading configuration file: %v", err)
		}
	}
	lvl, err := log.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("sigstudy: %v", err)
	}
	log.SetLevel(lvl)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "sigstudy",
	Short: "A broadcast interference and coverage study engine.",
	Long: `SigStudy evaluates desired and undesired signal exposure for broadcast
stations over demographic study points. Use the subcommands specified below
to access the engine functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SIGSTUDY_var' where 'var'
is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of SigStudy.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("SigStudy v%s\n", sigstudy.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd runs a grid-mode study.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a grid-mode study.",
	Long: `run lays out a study grid covering each desired source's service area,
loads census population into the grid cells, and builds each study point's
desired and undesired field lists for the scenario's sources.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := StudyConfig(Cfg)
		if err != nil {
			return err
		}
		cfg.Mode = sigstudy.ModeGrid
		scenario, err := LoadScenario(Cfg.GetString("Scenario"))
		if err != nil {
			return err
		}
		return Run(Cfg, cfg, scenario)
	},
	DisableAutoGenTag: true,
}

// pointsCmd runs a points-mode study over the scenario's receiver points.
var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Run a points-mode study.",
	Long: `points evaluates the scenario's sources at the fixed receiver points
listed in the scenario file instead of laying out a grid. Every point
receives a desired field for every source regardless of distance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := StudyConfig(Cfg)
		if err != nil {
			return err
		}
		cfg.Mode = sigstudy.ModePoints
		scenario, err := LoadScenario(Cfg.GetString("Scenario"))
		if err != nil {
			return err
		}
		return Run(Cfg, cfg, scenario)
	},
	DisableAutoGenTag: true,
}
