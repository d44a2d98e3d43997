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

func hydroTestCosts() *CostTable {
	return NewCostTable([]CostRecord{
		{Technology: "ror", Parameter: "efficiency", Value: 0.9},
		{Technology: "ror", Parameter: "investment", Value: 1000, Unit: "EUR/kW"},
		{Technology: "PHS", Parameter: "efficiency", Value: 0.81},
		{Technology: "hydro", Parameter: "efficiency", Value: 0.9},
	}, CostConfig{FillValues: map[string]float64{
		"lifetime": 25, "discount rate": 0.07, "FOM": 0, "VOM": 0,
		"fuel": 0, "efficiency": 1, "investment": 0, "co2_emissions": 0,
	}})
}

func hydroTestBuses() *BusTable {
	buses := &BusTable{}
	buses.Add(&Bus{ID: "bus0", Country: "ES"})
	buses.Add(&Bus{ID: "bus1", Country: "ES"})
	return buses
}

func TestAttachHydroInflowDisaggregation(t *testing.T) {
	// National inflow is split between the plants by capacity share.
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Run-Of-River",
			PNom: 30, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
		{ID: "2", Country: "ES", Bus: "bus1", Carrier: "hydro", Technology: "Reservoir",
			PNom: 90, Efficiency: math.NaN(), MaxHours: 100, DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(2), []string{"ES"})
	inflow.SetCol("ES", []float64{40, 80})

	gens := NewGeneratorTable(testTimes(2))
	sus := NewStorageUnitTable(testTimes(2))
	carriers := &CarrierTable{}
	err := AttachHydro(gens, sus, carriers, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, nil, HydroConfig{Carriers: []string{"ror", "hydro"}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Plant 1 holds 25% of the country's inflow-relevant capacity, so its
	// capacity factor series is 0.25·inflow/p_nom, clipped at 1.
	ror := gens.Get("1 hydro")
	if ror == nil {
		t.Fatal("run-of-river generator not attached")
	}
	pMaxPU := gens.PMaxPU.Col("1 hydro")
	want := []float64{10.0 / 30, 20.0 / 30}
	for i := range want {
		if math.Abs(pMaxPU[i]-want[i]) > 1e-9 {
			t.Errorf("step %d: have %g, want %g", i, pMaxPU[i], want[i])
		}
	}

	res := sus.Get("2 hydro")
	if res == nil {
		t.Fatal("reservoir storage unit not attached")
	}
	if res.MaxHours != 100 {
		t.Errorf("max_hours: have %g, want 100", res.MaxHours)
	}
	haveInflow := sus.Inflow.Col("2 hydro")
	wantInflow := []float64{30, 60}
	for i := range wantInflow {
		if math.Abs(haveInflow[i]-wantInflow[i]) > 1e-9 {
			t.Errorf("inflow step %d: have %g, want %g", i, haveInflow[i], wantInflow[i])
		}
	}
}

func TestAttachHydroRorClipping(t *testing.T) {
	// Inflow above nameplate power clips the capacity factor at 1.
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Run-Of-River",
			PNom: 10, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(2), []string{"ES"})
	inflow.SetCol("ES", []float64{5, 25})

	gens := NewGeneratorTable(testTimes(2))
	sus := NewStorageUnitTable(testTimes(2))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, nil, HydroConfig{Carriers: []string{"ror"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pMaxPU := gens.PMaxPU.Col("1 hydro")
	if math.Abs(pMaxPU[0]-0.5) > 1e-9 || pMaxPU[1] != 1 {
		t.Errorf("have %v, want [0.5 1]", pMaxPU)
	}
}

func TestAttachHydroMissingInflowCountry(t *testing.T) {
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Run-Of-River",
			PNom: 10, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(1), []string{"PT"})

	gens := NewGeneratorTable(testTimes(1))
	sus := NewStorageUnitTable(testTimes(1))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, nil, HydroConfig{Carriers: []string{"ror"}}, nil)
	if err == nil {
		t.Error("expected error for missing inflow country")
	}
}

func TestReservoirMaxHoursDefault(t *testing.T) {
	// No reported statistics: every plant missing the attribute gets
	// 6 hours.
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Reservoir",
			PNom: 50, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
		{ID: "2", Country: "ES", Bus: "bus1", Carrier: "hydro", Technology: "Reservoir",
			PNom: 50, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(1), []string{"ES"})
	inflow.SetCol("ES", []float64{10})

	gens := NewGeneratorTable(testTimes(1))
	sus := NewStorageUnitTable(testTimes(1))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, nil, HydroConfig{Carriers: []string{"hydro"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1 hydro", "2 hydro"} {
		if have := sus.Get(id).MaxHours; have != 6 {
			t.Errorf("%s: max_hours %g, want 6", id, have)
		}
	}
}

func TestReservoirMaxHoursFromEnergyTotals(t *testing.T) {
	// Reported 1 TWh total; plant 1 already stores 50 MW·1000 h = 0.05 TWh,
	// so the 0.95 TWh shortfall lands on plant 2's 100 MW: 9500 h.
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Reservoir",
			PNom: 50, Efficiency: math.NaN(), MaxHours: 1000, DateIn: math.NaN(), DateOut: math.NaN()},
		{ID: "2", Country: "ES", Bus: "bus1", Carrier: "hydro", Technology: "Reservoir",
			PNom: 100, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(1), []string{"ES"})
	inflow.SetCol("ES", []float64{10})
	stats := []*HydroStat{{Country: "ES", EStoreTWh: 1, PDischargeGW: math.NaN()}}

	gens := NewGeneratorTable(testTimes(1))
	sus := NewStorageUnitTable(testTimes(1))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, stats, HydroConfig{Carriers: []string{"hydro"},
			MaxHours: EstimateFromEnergyTotals}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if have := sus.Get("1 hydro").MaxHours; have != 1000 {
		t.Errorf("plant 1: max_hours %g, want 1000 (reported value kept)", have)
	}
	if have := sus.Get("2 hydro").MaxHours; math.Abs(have-9500) > 1e-6 {
		t.Errorf("plant 2: max_hours %g, want 9500", have)
	}
}

func TestReservoirMaxHoursFromLargeInstallations(t *testing.T) {
	// 0.9 TWh over 0.3 GW of discharge power is 3000 hours.
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Reservoir",
			PNom: 100, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(1), []string{"ES"})
	inflow.SetCol("ES", []float64{10})
	stats := []*HydroStat{{Country: "ES", EStoreTWh: 0.9, PDischargeGW: 0.3}}

	gens := NewGeneratorTable(testTimes(1))
	sus := NewStorageUnitTable(testTimes(1))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, stats, HydroConfig{Carriers: []string{"hydro"},
			MaxHours: EstimateFromLargeInstallations}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if have := sus.Get("1 hydro").MaxHours; math.Abs(have-3000) > 1e-6 {
		t.Errorf("max_hours %g, want 3000", have)
	}
}

func TestAttachHydroFlattenDispatch(t *testing.T) {
	// Mean capacity factor is (20+40)/2/100 = 0.3; with a 0.2 buffer the
	// dispatch limit is 0.5.
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Reservoir",
			PNom: 100, Efficiency: math.NaN(), MaxHours: 10, DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(2), []string{"ES"})
	inflow.SetCol("ES", []float64{20, 40})

	gens := NewGeneratorTable(testTimes(2))
	sus := NewStorageUnitTable(testTimes(2))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, nil, HydroConfig{Carriers: []string{"hydro"},
			FlattenDispatch: true, FlattenDispatchBuffer: 0.2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if have := sus.Get("1 hydro").PMaxPU; math.Abs(have-0.5) > 1e-9 {
		t.Errorf("p_max_pu %g, want 0.5", have)
	}
}

func TestAttachHydroPHSDefaultMaxHours(t *testing.T) {
	ppl := []*PowerPlant{
		{ID: "1", Country: "ES", Bus: "bus0", Carrier: "hydro", Technology: "Pumped Storage",
			PNom: 100, Efficiency: math.NaN(), MaxHours: math.NaN(), DateIn: math.NaN(), DateOut: math.NaN()},
		{ID: "2", Country: "ES", Bus: "bus1", Carrier: "hydro", Technology: "Pumped Storage",
			PNom: 100, Efficiency: math.NaN(), MaxHours: 20, DateIn: math.NaN(), DateOut: math.NaN()},
	}
	inflow := NewTimeSeries(testTimes(1), []string{"ES"})

	gens := NewGeneratorTable(testTimes(1))
	sus := NewStorageUnitTable(testTimes(1))
	err := AttachHydro(gens, sus, &CarrierTable{}, hydroTestCosts(), hydroTestBuses(),
		ppl, inflow, nil, HydroConfig{Carriers: []string{"PHS"}, PHSMaxHours: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if have := sus.Get("1 hydro").MaxHours; have != 8 {
		t.Errorf("plant 1: max_hours %g, want 8", have)
	}
	if have := sus.Get("2 hydro").MaxHours; have != 20 {
		t.Errorf("plant 2: max_hours %g, want 20", have)
	}
}
