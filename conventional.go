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
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// PowerPlant is one row of the normalized power-plant inventory produced by
// an upstream pipeline stage.
type PowerPlant struct {
	ID         string
	Country    string
	Bus        string
	Carrier    string
	Technology string
	PNom       float64 // MW
	Efficiency float64 // NaN if not reported
	MaxHours   float64 // NaN if not reported
	DateIn     float64 // commissioning year, NaN if not reported
	DateOut    float64 // decommissioning year, NaN if not reported
}

// ConventionalOverride sets one generator attribute for all generators of
// a carrier, either to a single value or per country.
type ConventionalOverride struct {
	Carrier   string
	Attr      string // "efficiency", "marginal_cost", or "p_max_pu"
	Value     float64
	ByCountry map[string]float64 // when set, takes precedence over Value
}

// AttachConventional adds the conventional plants of the inventory to the
// generator table, joining cost assumptions on carrier. Plants of purely
// extendable carriers enter with zero installed capacity. Plants labeled
// "natural gas" are relabeled to their technology (OCGT or CCGT) to match
// the carrier names used by the cost table.
func AttachConventional(gens *GeneratorTable, carriers *CarrierTable, costs *CostTable,
	buses *BusTable, ppl []*PowerPlant, conventionalCarriers, extendableCarriers []string,
	overrides []ConventionalOverride, logger logrus.FieldLogger) error {

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	wanted := make(map[string]bool)
	conventional := make(map[string]bool)
	extendable := make(map[string]bool)
	for _, c := range conventionalCarriers {
		wanted[c] = true
		conventional[c] = true
	}
	for _, c := range extendableCarriers {
		wanted[c] = true
		extendable[c] = true
	}

	var added []string
	seen := make(map[string]bool)
	capByCarrier := make(map[string]float64)
	for _, p := range ppl {
		carrier := p.Carrier
		if carrier == "natural gas" {
			carrier = p.Technology
		}
		if !wanted[carrier] {
			continue
		}
		efficiency := valueOr(p.Efficiency, costs.At(carrier, "efficiency"))
		pNom := p.PNom
		if !conventional[carrier] {
			pNom = 0
		}
		lifetime := math.Inf(1)
		if !math.IsNaN(p.DateIn) && !math.IsNaN(p.DateOut) {
			lifetime = p.DateOut - p.DateIn
		}
		g := &Generator{
			ID:             "C" + p.ID,
			Bus:            p.Bus,
			Carrier:        carrier,
			PNom:           pNom,
			PNomMin:        pNom,
			PNomMax:        math.Inf(1),
			PNomExtendable: extendable[carrier],
			Efficiency:     efficiency,
			MarginalCost:   costs.At(carrier, "VOM") + costs.At(carrier, "fuel")/efficiency,
			CapitalCost:    costs.At(carrier, "capital_cost"),
			BuildYear:      int(valueOr(p.DateIn, 0)),
			Lifetime:       lifetime,
			PMaxPU:         1,
		}
		if err := gens.Add(g); err != nil {
			return err
		}
		if !seen[carrier] {
			seen[carrier] = true
			added = append(added, carrier)
		}
		capByCarrier[carrier] += p.PNom
	}

	sort.Strings(added)
	carriers.AddMissing(added)
	carriers.SetCO2Emissions(costs, added)
	for _, c := range added {
		log.Infof("Added %s generators with %.2f GW capacity.", c, capByCarrier[c]/1e3)
	}

	for _, ov := range overrides {
		if err := applyOverride(gens, buses, ov); err != nil {
			return err
		}
	}
	return nil
}

// applyOverride writes a per-carrier attribute override onto the matching
// generators, mapping countries through buses when the override is
// country-specific.
func applyOverride(gens *GeneratorTable, buses *BusTable, ov ConventionalOverride) error {
	for _, g := range gens.Gens {
		if g.Carrier != ov.Carrier {
			continue
		}
		v := ov.Value
		if ov.ByCountry != nil {
			cv, ok := ov.ByCountry[buses.Country(g.Bus)]
			if !ok {
				continue
			}
			v = cv
		}
		switch ov.Attr {
		case "efficiency":
			g.Efficiency = v
		case "marginal_cost":
			g.MarginalCost = v
		case "p_max_pu":
			g.PMaxPU = v
		default:
			return fmt.Errorf("elgrid: unsupported conventional override attribute %q", ov.Attr)
		}
	}
	return nil
}
