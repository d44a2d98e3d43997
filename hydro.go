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
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// HydroStat is one row of the national hydropower statistics table.
type HydroStat struct {
	Country       string
	EStoreTWh     float64 // reported reservoir energy capacity, NaN if unknown
	PDischargeGW  float64 // reported discharge power, NaN if unknown
}

// MaxHoursEstimator selects how missing reservoir storage durations are
// derived from national statistics.
type MaxHoursEstimator string

const (
	// EstimateFromEnergyTotals distributes the shortfall between
	// reported national storage energy and currently installed energy
	// across the plants missing a storage duration.
	EstimateFromEnergyTotals MaxHoursEstimator = "energy_capacity_totals_by_country"
	// EstimateFromLargeInstallations divides reported national storage
	// energy by reported national discharge power.
	EstimateFromLargeInstallations MaxHoursEstimator = "estimate_by_large_installations"
)

// HydroConfig configures hydropower attachment.
type HydroConfig struct {
	// Carriers lists the hydro carriers to attach, out of
	// "ror", "PHS", and "hydro".
	Carriers []string

	// MaxHours selects the estimator for missing reservoir storage
	// durations.
	MaxHours MaxHoursEstimator

	// PHSMaxHours is the storage duration assumed for pumped-storage
	// plants that do not report one. Zero means 6 hours.
	PHSMaxHours float64

	// FlattenDispatch caps the reservoirs' usable capacity factor at
	// their mean inflow-derived capacity factor plus
	// FlattenDispatchBuffer.
	FlattenDispatch       bool
	FlattenDispatchBuffer float64
}

// AttachHydro attaches run-of-river generators and pumped-storage and
// reservoir storage units from the plant inventory. The national inflow
// series is split across each country's run-of-river and reservoir plants
// in proportion to nameplate capacity; a country whose plants need inflow
// but that has no inflow column is a fatal error.
func AttachHydro(gens *GeneratorTable, sus *StorageUnitTable, carriers *CarrierTable,
	costs *CostTable, buses *BusTable, ppl []*PowerPlant, inflow *TimeSeries,
	stats []*HydroStat, cfg HydroConfig, logger logrus.FieldLogger) error {

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	carriers.AddMissing(cfg.Carriers)
	carriers.SetCO2Emissions(costs, cfg.Carriers)

	var ror, phs, reservoir []*PowerPlant
	for _, p := range ppl {
		if p.Carrier != "hydro" {
			continue
		}
		switch p.Technology {
		case "Run-Of-River":
			ror = append(ror, p)
		case "Pumped Storage":
			phs = append(phs, p)
		case "Reservoir":
			reservoir = append(reservoir, p)
		}
	}

	inflowPlants := append(append([]*PowerPlant{}, ror...), reservoir...)
	plantInflow, err := disaggregateInflow(inflowPlants, buses, inflow)
	if err != nil {
		return err
	}

	if hasCarrier(cfg.Carriers, "ror") {
		for _, p := range ror {
			id := p.ID + " hydro"
			g := &Generator{
				ID:          id,
				Bus:         p.Bus,
				Carrier:     "ror",
				PNom:        p.PNom,
				Efficiency:  costs.At("ror", "efficiency"),
				CapitalCost: costs.At("ror", "capital_cost"),
				Weight:      p.PNom,
			}
			if err := gens.Add(g); err != nil {
				return err
			}
			// Inflow can exceed nameplate power; clip the derived
			// capacity factor at 1.
			pMaxPU := make([]float64, len(plantInflow[p.ID]))
			for i, v := range plantInflow[p.ID] {
				pMaxPU[i] = math.Min(v/p.PNom, 1)
			}
			gens.SetPMaxPU(id, pMaxPU)
		}
	}

	if hasCarrier(cfg.Carriers, "PHS") && len(phs) > 0 {
		maxHours := cfg.PHSMaxHours
		if maxHours == 0 {
			maxHours = 6
		}
		for _, p := range phs {
			mh := p.MaxHours
			if math.IsNaN(mh) || mh == 0 {
				mh = maxHours
			}
			su := &StorageUnit{
				ID:                  p.ID + " hydro",
				Bus:                 p.Bus,
				Carrier:             "PHS",
				PNom:                p.PNom,
				MaxHours:            mh,
				CapitalCost:         costs.At("PHS", "capital_cost"),
				EfficiencyStore:     math.Sqrt(costs.At("PHS", "efficiency")),
				EfficiencyDispatch:  math.Sqrt(costs.At("PHS", "efficiency")),
				PMaxPU:              1,
				PMinPU:              -1,
				CyclicStateOfCharge: true,
			}
			if err := sus.Add(su); err != nil {
				return err
			}
		}
	}

	if hasCarrier(cfg.Carriers, "hydro") && len(reservoir) > 0 {
		maxHours, err := reservoirMaxHours(reservoir, buses, stats, cfg.MaxHours, log)
		if err != nil {
			return err
		}
		for _, p := range reservoir {
			pMaxPU := 1.0
			if cfg.FlattenDispatch {
				cf := floats.Sum(plantInflow[p.ID]) /
					float64(len(plantInflow[p.ID])) / p.PNom
				pMaxPU = math.Min(cf+cfg.FlattenDispatchBuffer, 1)
			}
			id := p.ID + " hydro"
			su := &StorageUnit{
				ID:                  id,
				Bus:                 p.Bus,
				Carrier:             "hydro",
				PNom:                p.PNom,
				MaxHours:            maxHours[p.ID],
				CapitalCost:         costs.At("hydro", "capital_cost"),
				MarginalCost:        costs.At("hydro", "marginal_cost"),
				EfficiencyDispatch:  costs.At("hydro", "efficiency"),
				EfficiencyStore:     0, // reservoirs fill from inflow only
				PMaxPU:              pMaxPU,
				PMinPU:              0,
				CyclicStateOfCharge: true,
			}
			if err := sus.Add(su); err != nil {
				return err
			}
			sus.SetInflow(id, plantInflow[p.ID])
		}
	}
	return nil
}

// disaggregateInflow splits each country's inflow series across that
// country's plants in proportion to nameplate capacity, returning one
// series per plant ID.
func disaggregateInflow(plants []*PowerPlant, buses *BusTable, inflow *TimeSeries) (map[string][]float64, error) {
	byCountry := make(map[string][]*PowerPlant)
	for _, p := range plants {
		byCountry[plantCountry(p, buses)] = append(byCountry[plantCountry(p, buses)], p)
	}
	var missing []string
	for c := range byCountry {
		if !inflow.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("elgrid: missing inflow time series for countries: %s",
			strings.Join(missing, ", "))
	}

	o := make(map[string][]float64, len(plants))
	for country, group := range byCountry {
		pnom := make([]float64, len(group))
		for k, p := range group {
			pnom[k] = p.PNom
		}
		shares := normed(pnom)
		series := inflow.Col(country)
		for k, p := range group {
			v := make([]float64, len(series))
			for i, s := range series {
				v[i] = shares[k] * s
			}
			o[p.ID] = v
		}
	}
	return o, nil
}

// reservoirMaxHours fills in missing storage durations per country using
// the configured estimator. Countries with no usable statistics default to
// 6 hours with a warning.
func reservoirMaxHours(reservoir []*PowerPlant, buses *BusTable, stats []*HydroStat,
	estimator MaxHoursEstimator, log logrus.FieldLogger) (map[string]float64, error) {

	statByCountry := make(map[string]*HydroStat)
	for _, s := range stats {
		statByCountry[s.Country] = s
	}

	// Installed storage energy and the capacity still lacking a duration,
	// by country.
	installed := make(map[string]float64)
	missingPNom := make(map[string]float64)
	for _, p := range reservoir {
		c := plantCountry(p, buses)
		if math.IsNaN(p.MaxHours) || p.MaxHours == 0 {
			missingPNom[c] += p.PNom
		} else {
			installed[c] += p.PNom * p.MaxHours
		}
	}

	countryHours := make(map[string]float64)
	for _, s := range stats {
		switch estimator {
		case EstimateFromLargeInstallations:
			if !math.IsNaN(s.EStoreTWh) && !math.IsNaN(s.PDischargeGW) && s.PDischargeGW > 0 {
				// TWh/GW = 1000 h.
				countryHours[s.Country] = math.Max(s.EStoreTWh*1e3/s.PDischargeGW, 0)
			}
		case EstimateFromEnergyTotals, "":
			if !math.IsNaN(s.EStoreTWh) && missingPNom[s.Country] > 0 {
				// Reported totals below 0.2 TWh are unreliable;
				// clip them up before converting to MWh.
				eTarget := math.Max(s.EStoreTWh, 0.2) * 1e6
				eMissing := eTarget - installed[s.Country]
				countryHours[s.Country] = math.Max(eMissing/missingPNom[s.Country], 0)
			}
		default:
			return nil, fmt.Errorf("elgrid: unknown max_hours estimator %q", estimator)
		}
	}

	var defaulted []string
	o := make(map[string]float64, len(reservoir))
	for _, p := range reservoir {
		if !math.IsNaN(p.MaxHours) && p.MaxHours > 0 {
			o[p.ID] = p.MaxHours
			continue
		}
		c := plantCountry(p, buses)
		if h, ok := countryHours[c]; ok {
			o[p.ID] = h
		} else {
			o[p.ID] = 6
			defaulted = append(defaulted, c)
		}
	}
	if len(defaulted) > 0 {
		sort.Strings(defaulted)
		log.Warnf("Assuming max_hours=6 for hydro reservoirs in the countries: %s",
			strings.Join(uniqueStrings(defaulted), ", "))
	}
	return o, nil
}

// plantCountry maps a plant to a country through its bus, falling back to
// the inventory's own country field.
func plantCountry(p *PowerPlant, buses *BusTable) string {
	if c := buses.Country(p.Bus); c != "" {
		return c
	}
	return p.Country
}

func hasCarrier(carriers []string, name string) bool {
	for _, c := range carriers {
		if c == name {
			return true
		}
	}
	return false
}

func uniqueStrings(sorted []string) []string {
	var o []string
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			o = append(o, s)
		}
	}
	return o
}
