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
	"testing"
)

func renewableTestCosts() *CostTable {
	return NewCostTable([]CostRecord{
		{Technology: "onwind", Parameter: "investment", Value: 1000, Unit: "EUR/kW"},
		{Technology: "onwind", Parameter: "lifetime", Value: 25},
		{Technology: "offwind", Parameter: "investment", Value: 1500, Unit: "EUR/kW"},
		{Technology: "offwind", Parameter: "lifetime", Value: 25},
		{Technology: "offwind-ac-station", Parameter: "investment", Value: 200, Unit: "EUR/kW"},
		{Technology: "offwind-ac-connection-submarine", Parameter: "investment", Value: 2, Unit: "EUR/kW/km"},
		{Technology: "offwind-ac-connection-underground", Parameter: "investment", Value: 1, Unit: "EUR/kW/km"},
	}, CostConfig{FillValues: map[string]float64{
		"lifetime": 25, "discount rate": 0, "FOM": 0, "VOM": 0,
		"fuel": 0, "efficiency": 1, "investment": 0, "co2_emissions": 0,
	}})
}

func TestAttachWindSolar(t *testing.T) {
	times := testTimes(2)
	profile := NewTimeSeries(times, []string{"bus0", "bus1"})
	profile.SetCol("bus0", []float64{0.2, 0.4})
	profile.SetCol("bus1", []float64{0.1, 0.3})

	gens := NewGeneratorTable(times)
	carriers := &CarrierTable{}
	err := AttachWindSolar(gens, carriers, renewableTestCosts(),
		[]*RenewableProfile{{
			Carrier: "onwind",
			Buses:   []string{"bus0", "bus1"},
			PNomMax: []float64{100, 200},
			Weight:  []float64{1, 1},
			Profile: profile,
		}},
		[]string{"onwind"}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	g := gens.Get("bus0 onwind")
	if g == nil {
		t.Fatal("generator bus0 onwind not attached")
	}
	if !g.PNomExtendable {
		t.Error("generator should be extendable")
	}
	if g.PNomMax != 100 {
		t.Errorf("p_nom_max: have %g, want 100", g.PNomMax)
	}
	if g.PNom != 0 {
		t.Errorf("p_nom: have %g, want 0", g.PNom)
	}
	have := gens.PMaxPU.Col("bus1 onwind")
	want := []float64{0.1, 0.3}
	for i := range want {
		if math.Abs(have[i]-want[i]) > 1e-9 {
			t.Errorf("p_max_pu step %d: have %g, want %g", i, have[i], want[i])
		}
	}
	if carriers.Get("onwind") == nil {
		t.Error("carrier onwind not registered")
	}
}

func TestAttachWindSolarOffshoreConnectionCost(t *testing.T) {
	times := testTimes(1)
	profile := NewTimeSeries(times, []string{"bus0"})
	profile.SetCol("bus0", []float64{0.5})

	gens := NewGeneratorTable(times)
	costs := renewableTestCosts()
	err := AttachWindSolar(gens, &CarrierTable{}, costs,
		[]*RenewableProfile{{
			Carrier:            "offwind-ac",
			Buses:              []string{"bus0"},
			PNomMax:            []float64{500},
			Weight:             []float64{1},
			AverageDistance:    []float64{10},
			UnderwaterFraction: []float64{0.6},
			Profile:            profile,
		}},
		nil, 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Turbine plus station plus a 10 km connection that is 60% submarine.
	connection := 10 * (0.6*costs.At("offwind-ac-connection-submarine", "capital_cost") +
		0.4*costs.At("offwind-ac-connection-underground", "capital_cost"))
	want := costs.At("offwind", "capital_cost") +
		costs.At("offwind-ac-station", "capital_cost") + connection
	if connection == 0 {
		t.Fatal("connection cost should be nonzero")
	}
	have := gens.Get("bus0 offwind-ac").CapitalCost
	if math.Abs(have-want) > 1e-6 {
		t.Errorf("capital cost: have %g, want %g", have, want)
	}
}

func TestAttachWindSolarSkipsHydro(t *testing.T) {
	gens := NewGeneratorTable(testTimes(1))
	err := AttachWindSolar(gens, &CarrierTable{}, renewableTestCosts(),
		[]*RenewableProfile{{Carrier: "hydro", Buses: []string{"bus0"}}}, nil, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(gens.Gens) != 0 {
		t.Errorf("have %d generators, want 0", len(gens.Gens))
	}
}

func estimateTestSetup(t *testing.T) (*GeneratorTable, *BusTable) {
	t.Helper()
	buses := &BusTable{}
	buses.Add(&Bus{ID: "bus0", Country: "ES"})
	buses.Add(&Bus{ID: "bus1", Country: "ES"})
	buses.Add(&Bus{ID: "bus2", Country: "PT"})

	times := testTimes(2)
	gens := NewGeneratorTable(times)
	for _, g := range []*Generator{
		{ID: "bus0 onwind", Bus: "bus0", Carrier: "onwind", PNomMax: 100},
		{ID: "bus1 onwind", Bus: "bus1", Carrier: "onwind", PNomMax: 300},
		{ID: "bus2 onwind", Bus: "bus2", Carrier: "onwind", PNomMax: 100},
	} {
		if err := gens.Add(g); err != nil {
			t.Fatal(err)
		}
	}
	gens.SetPMaxPU("bus0 onwind", []float64{0.3, 0.3})
	gens.SetPMaxPU("bus1 onwind", []float64{0.1, 0.1})
	gens.SetPMaxPU("bus2 onwind", []float64{0.5, 0.5})
	return gens, buses
}

func TestEstimateRenewableCapacities(t *testing.T) {
	gens, buses := estimateTestSetup(t)
	stats := NewCapacityStats([]CapacityStat{
		{Technology: "Onshore wind", Country: "ES", Year: 2023, Capacity: 120},
	}, 2023)

	EstimateRenewableCapacities(gens, buses, stats,
		map[string][]string{"Onshore wind": {"onwind"}}, 0, []string{"ES"}, nil)

	// 120 MW split by mean capacity factor times potential:
	// bus0 0.3·100=30, bus1 0.1·300=30, equal shares.
	if have := gens.Get("bus0 onwind").PNom; math.Abs(have-60) > 1e-9 {
		t.Errorf("bus0: p_nom %g, want 60", have)
	}
	if have := gens.Get("bus1 onwind").PNom; math.Abs(have-60) > 1e-9 {
		t.Errorf("bus1: p_nom %g, want 60", have)
	}
	// Countries not asked for stay untouched.
	if have := gens.Get("bus2 onwind").PNom; have != 0 {
		t.Errorf("bus2: p_nom %g, want 0", have)
	}
	// Installed capacity becomes the lower expansion bound.
	if have := gens.Get("bus0 onwind").PNomMin; math.Abs(have-60) > 1e-9 {
		t.Errorf("bus0: p_nom_min %g, want 60", have)
	}
}

func TestEstimateRenewableCapacitiesThreshold(t *testing.T) {
	gens, buses := estimateTestSetup(t)
	// 0.1 MW total splits into two 0.05 MW allocations, both below the
	// materiality threshold.
	stats := NewCapacityStats([]CapacityStat{
		{Technology: "Onshore wind", Country: "ES", Year: 2023, Capacity: 0.1},
	}, 2023)

	EstimateRenewableCapacities(gens, buses, stats,
		map[string][]string{"Onshore wind": {"onwind"}}, 0, []string{"ES"}, nil)

	if have := gens.Get("bus0 onwind").PNom; have != 0 {
		t.Errorf("bus0: p_nom %g, want 0", have)
	}
	if have := gens.Get("bus1 onwind").PNom; have != 0 {
		t.Errorf("bus1: p_nom %g, want 0", have)
	}
}

func TestEstimateRenewableCapacitiesExpansionLimit(t *testing.T) {
	gens, buses := estimateTestSetup(t)
	stats := NewCapacityStats([]CapacityStat{
		{Technology: "Onshore wind", Country: "ES", Year: 2023, Capacity: 120},
	}, 2023)

	EstimateRenewableCapacities(gens, buses, stats,
		map[string][]string{"Onshore wind": {"onwind"}}, 1.5, []string{"ES"}, nil)

	if have := gens.Get("bus0 onwind").PNomMax; math.Abs(have-90) > 1e-9 {
		t.Errorf("bus0: p_nom_max %g, want 90", have)
	}
}

func TestUpdatePNomMax(t *testing.T) {
	gens := NewGeneratorTable(testTimes(1))
	if err := gens.Add(&Generator{ID: "g", Bus: "bus0", Carrier: "onwind",
		PNomMin: 50, PNomMax: 20}); err != nil {
		t.Fatal(err)
	}
	UpdatePNomMax(gens)
	if have := gens.Get("g").PNomMax; have != 50 {
		t.Errorf("p_nom_max: have %g, want 50", have)
	}
}

func TestNewCapacityStats(t *testing.T) {
	stats := NewCapacityStats([]CapacityStat{
		{Technology: "Solar", Country: "ES", Year: 2023, Capacity: 100},
		{Technology: "Solar", Country: "ES", Year: 2023, Capacity: 50},
		{Technology: "Solar", Country: "ES", Year: 2022, Capacity: 999},
	}, 2023)
	if have := stats.Capacity("Solar", "ES"); have != 150 {
		t.Errorf("have %g, want 150", have)
	}
	if have := stats.Capacity("Solar", "PT"); have != 0 {
		t.Errorf("have %g, want 0", have)
	}
}
