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
	"encoding/json"
	"fmt"
	"os"

	"github.com/ctessum/geom"

	"github.com/spectrummodel/sigstudy"
)

// A Scenario is the deserialized scenario file: the sources under study,
// the interference-rule table, and (for points mode) the receiver
// points. All coordinates are degrees with longitude positive west.
type Scenario struct {
	Sources []*SourceSpec `json:"sources"`

	// Desired lists the keys of the sources to study as desired. Empty
	// studies every top-level source.
	Desired []int `json:"desired"`

	Rules []RuleSpec `json:"rules"`

	Points []ReceiverSpec `json:"points"`
}

// A SourceSpec describes one source. A source with constituents is a
// composite (DTS) station whose own coordinates are the reference point.
type SourceSpec struct {
	Key             int     `json:"key"`
	CallSign        string  `json:"callSign"`
	Country         int     `json:"country"`
	Service         int     `json:"service"`
	SignalType      int     `json:"signalType"`
	Channel         int     `json:"channel"`
	EmissionMask    int     `json:"emissionMask"`
	FrequencyOffset int     `json:"frequencyOffset"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`

	MaximumDistanceKm float64 `json:"maximumDistanceKm"`

	Geography *GeographySpec `json:"geography"`
	// ContourKm tabulates the service contour distance at evenly spaced
	// azimuths starting at true north.
	ContourKm []float64 `json:"contourKm"`

	DTS          []*SourceSpec  `json:"dts"`
	Truncate     bool           `json:"truncate"`
	DTSBoundary  *GeographySpec `json:"dtsBoundary"`
	RefContourKm []float64      `json:"refContourKm"`
}

// A GeographySpec describes an explicit service-area shape.
type GeographySpec struct {
	Type string `json:"type"` // polygon, circle, box, or sectors

	CenterLat float64 `json:"centerLat"`
	CenterLon float64 `json:"centerLon"`

	RadiusKm float64 `json:"radiusKm"`
	WidthKm  float64 `json:"widthKm"`
	HeightKm float64 `json:"heightKm"`

	Sectors []sigstudy.Sector `json:"sectors"`

	// Vertices are [lat, lon] pairs for a polygon shape.
	Vertices [][2]float64 `json:"vertices"`
}

// A RuleSpec is one interference rule. Zero key fields are wildcards;
// a co-channel rule sets channelDelta to 0 and leaves channelDeltaAny
// unset.
type RuleSpec struct {
	Country         int  `json:"country"`
	Service         int  `json:"service"`
	SignalType      int  `json:"signalType"`
	ChannelDelta    int  `json:"channelDelta"`
	ChannelDeltaAny bool `json:"channelDeltaAny"`
	FrequencyOffset int  `json:"frequencyOffset"`
	EmissionMask    int  `json:"emissionMask"`

	CullDistanceKm float64 `json:"cullDistanceKm"`
	RequiredDU     float64 `json:"requiredDU"`
	PercentTime    float64 `json:"percentTime"`
}

// A ReceiverSpec is one fixed receiver point for a points-mode study.
type ReceiverSpec struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	ReceiveHeightM float64 `json:"receiveHeightM"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(fname string) (*Scenario, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("sigstudy: reading scenario file: %v", err)
	}
	var sc Scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("sigstudy: parsing scenario file %s: %v", fname, err)
	}
	if len(sc.Sources) == 0 {
		return nil, fmt.Errorf("sigstudy: scenario file %s has no sources", fname)
	}
	return &sc, nil
}

// BuildSources converts the scenario's source specs into study sources.
func (sc *Scenario) BuildSources() ([]*sigstudy.Source, error) {
	out := make([]*sigstudy.Source, 0, len(sc.Sources))
	for _, spec := range sc.Sources {
		src, err := spec.build()
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func (spec *SourceSpec) build() (*sigstudy.Source, error) {
	src := &sigstudy.Source{
		Key:               spec.Key,
		CallSign:          spec.CallSign,
		Country:           spec.Country,
		Service:           spec.Service,
		SignalType:        spec.SignalType,
		Channel:           spec.Channel,
		EmissionMask:      spec.EmissionMask,
		FrequencyOffset:   spec.FrequencyOffset,
		Lat:               spec.Lat,
		Lon:               spec.Lon,
		MaximumDistanceKm: spec.MaximumDistanceKm,
		Truncate:          spec.Truncate,
	}
	var err error
	if spec.Geography != nil {
		src.Geography, err = spec.Geography.build()
		if err != nil {
			return nil, fmt.Errorf("sigstudy: source %d: %v", spec.Key, err)
		}
	}
	if len(spec.ContourKm) > 0 {
		src.Contour = &sigstudy.Contour{Distances: spec.ContourKm}
	}
	if spec.DTSBoundary != nil {
		src.DTSBoundary, err = spec.DTSBoundary.build()
		if err != nil {
			return nil, fmt.Errorf("sigstudy: source %d boundary: %v", spec.Key, err)
		}
	}
	if len(spec.RefContourKm) > 0 {
		src.RefContour = &sigstudy.Contour{Distances: spec.RefContourKm}
	}
	for _, cspec := range spec.DTS {
		c, err := cspec.build()
		if err != nil {
			return nil, err
		}
		src.DTS = append(src.DTS, c)
	}
	return src, nil
}

func (gs *GeographySpec) build() (*sigstudy.Geography, error) {
	g := &sigstudy.Geography{
		CenterLat: gs.CenterLat,
		CenterLon: gs.CenterLon,
		RadiusKm:  gs.RadiusKm,
		WidthKm:   gs.WidthKm,
		HeightKm:  gs.HeightKm,
		Sectors:   gs.Sectors,
	}
	switch gs.Type {
	case "polygon":
		g.Type = sigstudy.GeoPolygon
		for _, v := range gs.Vertices {
			g.Vertices = append(g.Vertices, geom.Point{X: v[1], Y: v[0]})
		}
	case "circle":
		g.Type = sigstudy.GeoCircle
	case "box":
		g.Type = sigstudy.GeoBox
	case "sectors":
		g.Type = sigstudy.GeoSectors
	default:
		return nil, fmt.Errorf("unknown geography type %q", gs.Type)
	}
	return g, nil
}

// BuildRules converts the scenario's rule specs into a rule table,
// preserving file order since the first matching rule wins.
func (sc *Scenario) BuildRules() sigstudy.RuleTable {
	t := make(sigstudy.RuleTable, len(sc.Rules))
	for i, r := range sc.Rules {
		t[i] = sigstudy.IxRule{
			Country:         r.Country,
			Service:         r.Service,
			SignalType:      r.SignalType,
			ChannelDelta:    r.ChannelDelta,
			ChannelDeltaAny: r.ChannelDeltaAny,
			FrequencyOffset: r.FrequencyOffset,
			EmissionMask:    r.EmissionMask,
			CullDistanceKm:  r.CullDistanceKm,
			RequiredDU:      r.RequiredDU,
			PercentTime:     r.PercentTime,
		}
	}
	return t
}
