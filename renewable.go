/*
Copyright © 2024 the elgrid authors.
This file is part of elgrid.

elgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

elgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with elgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package elgrid

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// RenewableProfile holds the per-site output of an upstream
// capacity-factor computation for one renewable carrier.
type RenewableProfile struct {
	Carrier string

	// Per-site arrays, aligned by index.
	Buses              []string
	PNomMax            []float64 // MW of installable potential
	Weight             []float64
	AverageDistance    []float64 // km to shore, offshore carriers only
	UnderwaterFraction []float64 // offshore carriers only

	// Profile holds the per-unit availability series, one column per
	// bus in Buses.
	Profile *TimeSeries
}

// AttachWindSolar adds extendable wind and solar generators with zero
// installed capacity and today's locational capacity factors. Offshore
// carriers get a connection cost derived from the distance to shore and
// the underwater fraction of the connection.
func AttachWindSolar(gens *GeneratorTable, carriers *CarrierTable, costs *CostTable,
	profiles []*RenewableProfile, extendableCarriers []string, lengthFactor float64,
	logger logrus.FieldLogger) error {

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	extendable := make(map[string]bool)
	for _, c := range extendableCarriers {
		extendable[c] = true
	}

	for _, p := range profiles {
		if p.Carrier == "hydro" {
			continue
		}
		carriers.AddMissing([]string{p.Carrier})
		carriers.SetCO2Emissions(costs, []string{p.Carrier})
		super := superTechnology(p.Carrier)

		for k, bus := range p.Buses {
			capitalCost := costs.At(p.Carrier, "capital_cost")
			if super == "offwind" {
				connection := lengthFactor * p.AverageDistance[k] *
					(p.UnderwaterFraction[k]*costs.At(p.Carrier+"-connection-submarine", "capital_cost") +
						(1-p.UnderwaterFraction[k])*costs.At(p.Carrier+"-connection-underground", "capital_cost"))
				capitalCost = costs.At("offwind", "capital_cost") +
					costs.At(p.Carrier+"-station", "capital_cost") + connection
			}
			id := bus + " " + p.Carrier
			g := &Generator{
				ID:             id,
				Bus:            bus,
				Carrier:        p.Carrier,
				PNomExtendable: extendable[p.Carrier],
				PNomMax:        p.PNomMax[k],
				Weight:         p.Weight[k],
				MarginalCost:   costs.At(super, "marginal_cost"),
				CapitalCost:    capitalCost,
				Efficiency:     costs.At(super, "efficiency"),
				Lifetime:       costs.At(super, "lifetime"),
				PMaxPU:         1,
			}
			if err := gens.Add(g); err != nil {
				return err
			}
			gens.SetPMaxPU(id, p.Profile.Col(bus))
		}
		log.Infof("Added %d %s generators.", len(p.Buses), p.Carrier)
	}
	return nil
}

// CapacityStat is one row of the externally reported installed-capacity
// statistics, keyed by (technology, country, year).
type CapacityStat struct {
	Technology string
	Country    string
	Year       int
	Capacity   float64 // MW
}

// CapacityStats indexes reported capacities by technology and country for
// one year.
type CapacityStats struct {
	byTech map[string]map[string]float64
}

// NewCapacityStats sums the given rows for the given year into a queryable
// table.
func NewCapacityStats(rows []CapacityStat, year int) *CapacityStats {
	s := &CapacityStats{byTech: make(map[string]map[string]float64)}
	for _, r := range rows {
		if r.Year != year {
			continue
		}
		if s.byTech[r.Technology] == nil {
			s.byTech[r.Technology] = make(map[string]float64)
		}
		s.byTech[r.Technology][r.Country] += r.Capacity
	}
	return s
}

// Capacity returns the reported capacity for a technology and country,
// or 0 when none was reported.
func (s *CapacityStats) Capacity(technology, country string) float64 {
	return s.byTech[technology][country]
}

// EstimateRenewableCapacities reconciles the modeled renewable capacities
// per country against reported statistics. The shortfall between reported
// and modeled capacity is distributed across the technology's generators in
// the country in proportion to mean capacity factor times expansion
// headroom, preferring sites with better resource and more room; any
// allocation at or below 0.1 MW is dropped as immaterial. When
// expansionLimit is positive, each generator's expansion headroom is capped
// at that multiple of the newly set capacity.
func EstimateRenewableCapacities(gens *GeneratorTable, buses *BusTable, stats *CapacityStats,
	techMap map[string][]string, expansionLimit float64, countries []string,
	logger logrus.FieldLogger) {

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(countries) == 0 || len(techMap) == 0 {
		return
	}

	for technology, techCarriers := range techMap {
		isTech := func(carrier string) bool {
			for _, c := range techCarriers {
				if c == carrier {
					return true
				}
			}
			return false
		}
		candidates := gens.Select(func(g *Generator) bool { return isTech(g.Carrier) })

		for _, country := range countries {
			var group []*Generator
			var existent float64
			for _, g := range candidates {
				if buses.Country(g.Bus) == country {
					group = append(group, g)
					existent += g.PNom
				}
			}
			if len(group) == 0 {
				continue
			}
			missing := stats.Capacity(technology, country) - existent

			dist := make([]float64, len(group))
			for k, g := range group {
				dist[k] = gens.MeanCapacityFactor(g.ID) * g.PNomMax
			}
			if floats.Sum(dist) == 0 {
				log.Warnf("No usable %s sites in %s to distribute %.1f MW onto.",
					technology, country, missing)
				continue
			}
			shares := normed(dist)
			for k, g := range group {
				add := shares[k] * missing
				if add > 0.1 { // only capacities above 100 kW
					g.PNom += add
				}
				g.PNomMin = g.PNom
				if expansionLimit > 0 {
					g.PNomMax = expansionLimit * g.PNomMin
				}
			}
		}
		log.Infof("Distributed reported %s capacities across carriers %s.",
			technology, strings.Join(techCarriers, ", "))
	}
	if expansionLimit > 0 {
		log.Infof("Reduced capacity expansion limit to %.2f%% of installed capacity.",
			expansionLimit*100)
	}
}

// UpdatePNomMax raises any expansion bound that ended up below the
// installed capacity, so previously attached capacities stay feasible.
func UpdatePNomMax(gens *GeneratorTable) {
	for _, g := range gens.Gens {
		if g.PNomMax < g.PNomMin {
			g.PNomMax = g.PNomMin
		}
	}
}
