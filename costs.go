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
	"math"
	"strings"
)

// Annuity returns the annuity factor for an asset with the given lifetime
// in years and discount rate, e.g. Annuity(20, 0.05) * 20 = 1.6.
// A zero discount rate gives 1/lifetime.
func Annuity(lifetime, rate float64) float64 {
	if rate > 0 {
		return rate / (1 - 1/math.Pow(1+rate, lifetime))
	}
	return 1 / lifetime
}

// CostRecord is one row of the raw technology cost database, keyed by
// (technology, parameter).
type CostRecord struct {
	Technology string
	Parameter  string
	Value      float64
	Unit       string
}

// CostConfig controls how the raw cost database is turned into per-MW
// capital and marginal costs.
type CostConfig struct {
	// Nyears scales annualized costs to the number of modeled years.
	Nyears float64

	// FillValues provides defaults for parameters missing from the
	// database, keyed by parameter name (e.g. "FOM", "discount rate").
	FillValues map[string]float64

	// MaxHours gives the storage duration used to compose storage
	// technology costs, keyed by storage carrier ("battery", "H2").
	MaxHours map[string]float64

	// MarginalCost and CapitalCost override computed values per
	// technology.
	MarginalCost map[string]float64
	CapitalCost  map[string]float64
}

// CostTable holds derived economic and physical parameters per technology.
type CostTable struct {
	params map[string]map[string]float64
	fill   map[string]float64
}

// NewCostTable derives capital and marginal costs from the raw cost
// database. Per-kW units are scaled to per-MW, missing parameters are
// filled from cfg.FillValues, and
//
//	capital_cost  = (annuity(lifetime, discount rate) + FOM/100) · investment · Nyears
//	marginal_cost = VOM + fuel/efficiency
//
// Gas turbines (OCGT, CCGT) take fuel cost and CO2 intensity from the "gas"
// technology, utility-scale solar supplies the "solar" capital cost, and
// storage carriers are composed from their store and converter parts.
func NewCostTable(records []CostRecord, cfg CostConfig) *CostTable {
	t := &CostTable{
		params: make(map[string]map[string]float64),
		fill:   cfg.FillValues,
	}
	for _, r := range records {
		v := r.Value
		if strings.Contains(r.Unit, "/kW") {
			v *= 1e3
		}
		p := r.Parameter
		if p == "CO2 intensity" {
			p = "co2_emissions"
		}
		t.set(r.Technology, p, v)
	}

	nyears := cfg.Nyears
	if nyears == 0 {
		nyears = 1
	}
	for tech := range t.params {
		capital := (Annuity(t.At(tech, "lifetime"), t.At(tech, "discount rate")) +
			t.At(tech, "FOM")/100) * t.At(tech, "investment") * nyears
		t.set(tech, "capital_cost", capital)
	}
	for _, gasTech := range []string{"OCGT", "CCGT"} {
		if t.Has(gasTech) {
			t.set(gasTech, "fuel", t.At("gas", "fuel"))
			t.set(gasTech, "co2_emissions", t.At("gas", "co2_emissions"))
		}
	}
	for tech := range t.params {
		t.set(tech, "marginal_cost",
			t.At(tech, "VOM")+t.At(tech, "fuel")/t.At(tech, "efficiency"))
	}
	if t.Has("solar-utility") {
		t.set("solar", "capital_cost", t.At("solar-utility", "capital_cost"))
	}

	t.composeStorage("battery", cfg.MaxHours["battery"],
		"battery storage", "battery inverter", "")
	t.composeStorage("H2", cfg.MaxHours["H2"],
		"hydrogen storage underground", "fuel cell", "electrolysis")

	for tech, v := range cfg.MarginalCost {
		t.set(tech, "marginal_cost", v)
	}
	for tech, v := range cfg.CapitalCost {
		t.set(tech, "capital_cost", v)
	}
	return t
}

// composeStorage derives the cost of a storage carrier from a store
// technology, a converter, and an optional second converter.
func (t *CostTable) composeStorage(carrier string, maxHours float64, store, link1, link2 string) {
	if !t.Has(store) || !t.Has(link1) {
		return
	}
	capital := t.At(link1, "capital_cost") + maxHours*t.At(store, "capital_cost")
	if link2 != "" && t.Has(link2) {
		capital += t.At(link2, "capital_cost")
	}
	t.set(carrier, "capital_cost", capital)
	t.set(carrier, "marginal_cost", 0)
	t.set(carrier, "co2_emissions", 0)
}

func (t *CostTable) set(tech, param string, v float64) {
	if t.params[tech] == nil {
		t.params[tech] = make(map[string]float64)
	}
	t.params[tech][param] = v
}

// Has reports whether the table contains the given technology.
func (t *CostTable) Has(tech string) bool {
	_, ok := t.params[tech]
	return ok
}

// At returns the value of the given parameter for the given technology,
// falling back to the configured fill value when the technology does not
// provide it.
func (t *CostTable) At(tech, param string) float64 {
	if p, ok := t.params[tech]; ok {
		if v, ok := p[param]; ok {
			return v
		}
	}
	return t.fill[param]
}

// superTechnology maps a sub-technology carrier such as "offwind-ac" to the
// technology ("offwind") that carries its cost assumptions.
func superTechnology(carrier string) string {
	return strings.SplitN(carrier, "-", 2)[0]
}

// UpdateTransmissionCosts sets the capital costs of AC lines and DC links
// from their lengths. DC link costs mix submarine and overhead per-km costs
// according to the underwater fraction, plus an inverter pair.
func UpdateTransmissionCosts(lines *LineTable, links *LinkTable, costs *CostTable, lengthFactor float64) {
	for _, l := range lines.Lines {
		l.CapitalCost = l.Length * lengthFactor * costs.At("HVAC overhead", "capital_cost")
	}
	for _, l := range links.Links {
		if l.Carrier != "DC" {
			continue
		}
		l.CapitalCost = l.Length*lengthFactor*
			((1-l.UnderwaterFraction)*costs.At("HVDC overhead", "capital_cost")+
				l.UnderwaterFraction*costs.At("HVDC submarine", "capital_cost")) +
			costs.At("HVDC inverter pair", "capital_cost")
	}
}
