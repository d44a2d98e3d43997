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
	"time"
)

// Network holds the electricity-sector model under construction: a bus/line
// topology produced by an upstream pipeline stage, onto which the functions
// in this package attach load, generation, storage, and transmission costs.
// Each component mutates only the tables passed to it.
type Network struct {
	Snapshots []time.Time

	Buses        *BusTable
	Lines        *LineTable
	Links        *LinkTable
	Generators   *GeneratorTable
	StorageUnits *StorageUnitTable
	Loads        *LoadTable
	Carriers     *CarrierTable
}

// NewNetwork creates an empty network with the given snapshot axis.
func NewNetwork(snapshots []time.Time) *Network {
	return &Network{
		Snapshots:    snapshots,
		Buses:        &BusTable{index: make(map[string]int)},
		Lines:        &LineTable{},
		Links:        &LinkTable{},
		Generators:   NewGeneratorTable(snapshots),
		StorageUnits: NewStorageUnitTable(snapshots),
		Loads:        &LoadTable{PSet: NewTimeSeries(snapshots, nil)},
		Carriers:     &CarrierTable{index: make(map[string]int)},
	}
}

// Bus is a point of connection (substation) in the network.
type Bus struct {
	ID           string
	X, Y         float64 // longitude, latitude
	Country      string
	SubstationLV bool // whether the bus is a low-voltage demand substation
}

// BusTable holds the network buses in a fixed order.
type BusTable struct {
	Buses []*Bus
	index map[string]int
}

// Add appends b to the table.
func (t *BusTable) Add(b *Bus) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	t.index[b.ID] = len(t.Buses)
	t.Buses = append(t.Buses, b)
}

// Get returns the bus with the given ID, or nil.
func (t *BusTable) Get(id string) *Bus {
	if i, ok := t.index[id]; ok {
		return t.Buses[i]
	}
	return nil
}

// Country returns the country code of the bus with the given ID.
func (t *BusTable) Country(id string) string {
	if b := t.Get(id); b != nil {
		return b.Country
	}
	return ""
}

// SubstationLVIDs returns the IDs of all low-voltage demand substations,
// in table order.
func (t *BusTable) SubstationLVIDs() []string {
	var ids []string
	for _, b := range t.Buses {
		if b.SubstationLV {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Line is an AC transmission line.
type Line struct {
	ID           string
	Bus0, Bus1   string
	Length       float64 // km
	SNom         float64 // MVA
	CapitalCost  float64
}

// LineTable holds the network AC lines.
type LineTable struct {
	Lines []*Line
}

// Add appends a line to the table.
func (t *LineTable) Add(l *Line) {
	t.Lines = append(t.Lines, l)
}

// Get returns the line with the given ID, or nil if there is none.
func (t *LineTable) Get(id string) *Line {
	for _, l := range t.Lines {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Link is a controllable (DC) transmission link.
type Link struct {
	ID                 string
	Bus0, Bus1         string
	Carrier            string
	Length             float64 // km
	UnderwaterFraction float64
	CapitalCost        float64
}

// LinkTable holds the network links.
type LinkTable struct {
	Links []*Link
}

// Add appends a link to the table.
func (t *LinkTable) Add(l *Link) {
	t.Links = append(t.Links, l)
}

// Get returns the link with the given ID, or nil if there is none.
func (t *LinkTable) Get(id string) *Link {
	for _, l := range t.Links {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Generator is a generation asset attached to a bus.
type Generator struct {
	ID             string
	Bus            string
	Carrier        string
	PNom           float64 // MW
	PNomMin        float64 // MW
	PNomMax        float64 // MW
	PNomExtendable bool
	Efficiency     float64
	MarginalCost   float64 // currency/MWh
	CapitalCost    float64 // currency/MW/a
	BuildYear      int
	Lifetime       float64 // years
	Weight         float64

	// PMaxPU is the static per-unit availability limit; a time-varying
	// limit in the generator table takes precedence. Zero means 1.
	PMaxPU float64
}

// GeneratorTable holds the network generators together with their
// time-varying per-unit availability.
type GeneratorTable struct {
	Gens []*Generator

	// PMaxPU holds the time-varying per-unit availability limit for
	// generators that have one (column name = generator ID). Generators
	// without a column are available at all times.
	PMaxPU *TimeSeries

	index map[string]int
}

// NewGeneratorTable creates an empty generator table on the given
// snapshot axis.
func NewGeneratorTable(snapshots []time.Time) *GeneratorTable {
	return &GeneratorTable{
		PMaxPU: NewTimeSeries(snapshots, nil),
		index:  make(map[string]int),
	}
}

// Add appends g to the table. It returns an error if a generator with the
// same ID already exists.
func (t *GeneratorTable) Add(g *Generator) error {
	if _, ok := t.index[g.ID]; ok {
		return fmt.Errorf("elgrid: duplicate generator %q", g.ID)
	}
	t.index[g.ID] = len(t.Gens)
	t.Gens = append(t.Gens, g)
	return nil
}

// Get returns the generator with the given ID, or nil.
func (t *GeneratorTable) Get(id string) *Generator {
	if i, ok := t.index[id]; ok {
		return t.Gens[i]
	}
	return nil
}

// SetPMaxPU attaches a time-varying per-unit availability limit to the
// generator with the given ID.
func (t *GeneratorTable) SetPMaxPU(id string, v []float64) {
	if !t.PMaxPU.HasColumn(id) {
		t.PMaxPU.Grow(id)
	}
	t.PMaxPU.SetCol(id, v)
}

// MeanCapacityFactor returns the mean over time of the generator's
// availability limit, or 1 if the generator has no time-varying limit.
func (t *GeneratorTable) MeanCapacityFactor(id string) float64 {
	if t.PMaxPU.HasColumn(id) {
		return t.PMaxPU.ColMean(id)
	}
	if g := t.Get(id); g != nil && g.PMaxPU > 0 {
		return g.PMaxPU
	}
	return 1
}

// Select returns the generators, in table order, for which keep returns true.
func (t *GeneratorTable) Select(keep func(*Generator) bool) []*Generator {
	var o []*Generator
	for _, g := range t.Gens {
		if keep(g) {
			o = append(o, g)
		}
	}
	return o
}

// StorageUnit is a storage asset (reservoir hydro, pumped storage) attached
// to a bus.
type StorageUnit struct {
	ID                   string
	Bus                  string
	Carrier              string
	PNom                 float64 // MW
	MaxHours             float64 // energy capacity as hours of PNom
	CapitalCost          float64
	MarginalCost         float64
	EfficiencyStore      float64
	EfficiencyDispatch   float64
	PMaxPU               float64 // static dispatch limit, per unit
	PMinPU               float64 // static store limit, per unit
	CyclicStateOfCharge  bool
}

// StorageUnitTable holds the network storage units together with their
// natural energy inflow.
type StorageUnitTable struct {
	Units []*StorageUnit

	// Inflow holds natural inflow time series in MW (column name =
	// storage unit ID). Units without a column have no inflow.
	Inflow *TimeSeries

	index map[string]int
}

// NewStorageUnitTable creates an empty storage unit table on the given
// snapshot axis.
func NewStorageUnitTable(snapshots []time.Time) *StorageUnitTable {
	return &StorageUnitTable{
		Inflow: NewTimeSeries(snapshots, nil),
		index:  make(map[string]int),
	}
}

// Add appends su to the table. It returns an error if a storage unit with
// the same ID already exists.
func (t *StorageUnitTable) Add(su *StorageUnit) error {
	if _, ok := t.index[su.ID]; ok {
		return fmt.Errorf("elgrid: duplicate storage unit %q", su.ID)
	}
	t.index[su.ID] = len(t.Units)
	t.Units = append(t.Units, su)
	return nil
}

// Get returns the storage unit with the given ID, or nil.
func (t *StorageUnitTable) Get(id string) *StorageUnit {
	if i, ok := t.index[id]; ok {
		return t.Units[i]
	}
	return nil
}

// SetInflow attaches a natural inflow series to the storage unit with the
// given ID.
func (t *StorageUnitTable) SetInflow(id string, v []float64) {
	if !t.Inflow.HasColumn(id) {
		t.Inflow.Grow(id)
	}
	t.Inflow.SetCol(id, v)
}

// LoadTable holds the fixed (non-optimized) electricity demand attached to
// the network, one column per demand bus.
type LoadTable struct {
	PSet *TimeSeries // MW
}

// Attach sets the demand series for the given bus, replacing any
// existing one.
func (t *LoadTable) Attach(bus string, v []float64) {
	if !t.PSet.HasColumn(bus) {
		t.PSet.Grow(bus)
	}
	t.PSet.SetCol(bus, v)
}

// Carrier is an energy/technology type.
type Carrier struct {
	Name         string
	CO2Emissions float64 // tonnes/MWh fuel
}

// CarrierTable holds the carriers registered in the network.
type CarrierTable struct {
	Carriers []*Carrier
	index    map[string]int
}

// Get returns the carrier with the given name, or nil.
func (t *CarrierTable) Get(name string) *Carrier {
	if i, ok := t.index[name]; ok {
		return t.Carriers[i]
	}
	return nil
}

// AddMissing registers any of the given carrier names that are not yet
// present, without touching existing entries.
func (t *CarrierTable) AddMissing(names []string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	for _, name := range names {
		if _, ok := t.index[name]; ok {
			continue
		}
		t.index[name] = len(t.Carriers)
		t.Carriers = append(t.Carriers, &Carrier{Name: name})
	}
}

// SetCO2Emissions stamps CO2 intensities from the cost table onto the given
// carriers. Sub-technology carriers such as "offwind-ac" inherit the
// intensity of their super-technology.
func (t *CarrierTable) SetCO2Emissions(costs *CostTable, names []string) {
	for _, name := range names {
		c := t.Get(name)
		if c == nil {
			continue
		}
		c.CO2Emissions = costs.At(superTechnology(name), "co2_emissions")
	}
}

// valueOr returns v unless it is NaN, in which case it returns def.
func valueOr(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}
