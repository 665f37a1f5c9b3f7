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
	"sort"

	log "github.com/sirupsen/logrus"
)

// An IxRule is one interference rule. A rule applies to a desired and
// undesired source pair when every key field matches; zero key fields are
// wildcards. Rules are consumed in table order, first match wins, and the
// table is never mutated by setup.
type IxRule struct {
	Country         int // desired source's country
	Service         int // undesired source's service
	SignalType      int // undesired source's signal type
	ChannelDelta    int // undesired channel minus desired channel
	FrequencyOffset int // desired source's frequency offset class
	EmissionMask    int // undesired source's emission mask

	ChannelDeltaAny bool // ChannelDelta 0 is a real co-channel key, so wildcarding is explicit

	CullDistanceKm float64 // beyond this the undesired is negligible; 0 disables the cull
	RequiredDU     float64 // required desired-to-undesired ratio, dB
	PercentTime    float64 // undesired percent-time
}

// RuleTable is an ordered interference-rule set.
type RuleTable []IxRule

// match returns the first rule applying to the desired/undesired pair,
// or nil.
func (t RuleTable) match(des, und *Source) *IxRule {
	for i := range t {
		r := &t[i]
		if r.Country != 0 && r.Country != des.Country {
			continue
		}
		if r.Service != 0 && r.Service != und.Service {
			continue
		}
		if r.SignalType != 0 && r.SignalType != und.SignalType {
			continue
		}
		if !r.ChannelDeltaAny && r.ChannelDelta != und.Channel-des.Channel {
			continue
		}
		if r.FrequencyOffset != 0 && r.FrequencyOffset != des.FrequencyOffset {
			continue
		}
		if r.EmissionMask != 0 && r.EmissionMask != und.EmissionMask {
			continue
		}
		return r
	}
	return nil
}

// BuildUndesiredLists computes each desired source's undesired entry list
// from the rule table and the study's registered sources. An undesired
// whose culling distance cannot reach any point of the desired service
// area is dropped; when the shortfall is within the rule extra distance
// the drop is only marginal and a consistency warning is logged instead
// of dropping.
func (s *Study) BuildUndesiredLists(rules RuleTable, desired []*Source) {
	keys := make([]int, 0, len(s.sources))
	for k := range s.sources {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, des := range desired {
		constituents := make(map[int]bool, len(des.DTS))
		for _, c := range des.DTS {
			constituents[c.Key] = true
		}
		desRadius := des.serviceRadiusKm()

		des.undesireds = des.undesireds[:0]
		for _, k := range keys {
			und := s.sources[k]
			if und == des || constituents[k] {
				continue
			}
			rule := rules.match(des, und)
			if rule == nil {
				continue
			}
			entry := &UndesiredEntry{
				SourceKey:      und.Key,
				PercentTime:    rule.PercentTime,
				CullDistanceKm: rule.CullDistanceKm,
				CheckDistance:  rule.CullDistanceKm > 0,
				RequiredDU:     rule.RequiredDU,
			}
			if entry.CheckDistance {
				dist, _, _ := BearingDistance(des.Lat, des.Lon, und.Lat, und.Lon)
				margin := dist - (entry.CullDistanceKm + desRadius)
				if margin > s.RuleExtraDistanceKm {
					continue // no study point can be within the cull distance
				}
				if margin > 0 {
					log.WithFields(log.Fields{
						"desired":   des.CallSign,
						"undesired": und.CallSign,
						"margin":    margin,
					}).Warn("undesired within rule extra distance of its culling limit")
				}
			}
			des.undesireds = append(des.undesireds, entry)
		}
	}
}

// Undesireds exposes a source's computed undesired entries.
func (src *Source) Undesireds() []*UndesiredEntry { return src.undesireds }
