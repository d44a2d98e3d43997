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
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// BusRegion is the polygon served by one demand bus (the onshore Voronoi
// region of its substation).
type BusRegion struct {
	geom.Polygonal
	Bus     string
	Country string
}

// Subdivision is a fine-grained statistical area (NUTS3) carrying the
// population and GDP used to weight demand between buses.
type Subdivision struct {
	geom.Polygonal
	Code    string
	Country string
	Pop     float64 // NaN if unknown
	GDP     float64 // NaN if unknown
}

// BusWeight is a precomputed per-bus population/GDP record for countries
// that have no fine-grained statistical subdivisions.
type BusWeight struct {
	Bus     string
	Country string
	Pop     float64
	GDP     float64
}

// WeightPair holds the relative weights given to GDP and population when
// combining them into demand factors.
type WeightPair struct {
	GDP, Pop float64
}

// DefaultWeights are the GDP/population weights determined from a linear
// regression of country loads on continental load.
var DefaultWeights = WeightPair{GDP: 0.6, Pop: 0.4}

// LoadMode selects how the input demand series are keyed.
type LoadMode string

const (
	// LoadNational expects one demand column per country.
	LoadNational LoadMode = "national"
	// LoadRegional expects one demand column per statistical region code.
	LoadRegional LoadMode = "regional"
)

// LoadDisaggregator splits country- or region-level demand time series
// across the demand buses of the network, weighting buses by the population
// and GDP of the statistical subdivisions they overlap.
type LoadDisaggregator struct {
	Mode    LoadMode
	Scaling float64 // multiplies all demand; 0 means 1

	// Weights are the default GDP/population weights; zero value means
	// DefaultWeights.
	Weights WeightPair

	// WeightOverrides replaces Weights for specific countries, keyed by
	// country code.
	WeightOverrides map[string]WeightPair

	Regions      []*BusRegion
	Subdivisions []*Subdivision

	// BusWeights carries direct per-bus statistics for countries without
	// subdivisions (keyed off each record's Country field).
	BusWeights []*BusWeight

	Log logrus.FieldLogger
}

// Attach disaggregates the demand table onto the network's demand buses and
// stores the result in loads. Countries (or region codes) present in demand
// but without any bus region are skipped.
func (d *LoadDisaggregator) Attach(loads *LoadTable, demand *TimeSeries) error {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	scaling := d.Scaling
	if scaling == 0 {
		scaling = 1
	}
	if scaling != 1 {
		log.Infof("Load data scaled by factor %g.", scaling)
		demand = demand.Filter(demand.Columns) // copy before mutating
		demand.Scale(scaling)
	}

	switch d.Mode {
	case LoadRegional:
		return d.attachRegional(loads, demand, log)
	case LoadNational, "":
		return d.attachNational(loads, demand, log)
	default:
		return fmt.Errorf("elgrid: unknown load disaggregation mode %q", d.Mode)
	}
}

// attachNational assigns each country's demand series to that country's
// buses. A country with a single bus keeps its series unchanged.
func (d *LoadDisaggregator) attachNational(loads *LoadTable, demand *TimeSeries, log logrus.FieldLogger) error {
	for _, country := range d.countries() {
		if !demand.HasColumn(country) {
			log.Warnf("No demand series for country %s; skipping.", country)
			continue
		}
		group := d.regionsOf(country)
		series := demand.Col(country)

		if len(group) == 1 {
			loads.Attach(group[0].Bus, series)
			continue
		}

		factors, err := d.demandFactors(country, group)
		if err != nil {
			return fmt.Errorf("elgrid: disaggregating load for %s: %v", country, err)
		}
		for k, r := range group {
			v := make([]float64, len(series))
			for i, s := range series {
				v[i] = factors[k] * s
			}
			loads.Attach(r.Bus, v)
		}
	}
	return nil
}

// attachRegional disaggregates each region-code demand column over the
// subdivisions matching that code, accumulating contributions into buses.
// A bus whose polygon spans statistical boundaries receives load from every
// region code it touches. Codes are matched to bus groups through the
// country of their subdivisions, so one demand table can span countries.
func (d *LoadDisaggregator) attachRegional(loads *LoadTable, demand *TimeSeries, log logrus.FieldLogger) error {
	subsByCode := make(map[string][]*Subdivision, len(demand.Columns))
	for _, code := range demand.Columns {
		subs := d.subdivisionsMatching(code)
		if len(subs) == 0 {
			log.Warnf("No subdivisions match region code %s; skipping.", code)
			continue
		}
		subsByCode[code] = subs
	}

	for _, country := range d.countries() {
		group := d.regionsOf(country)
		total := make([][]float64, len(group))
		for k := range group {
			total[k] = make([]float64, demand.Len())
		}

		for _, code := range demand.Columns {
			var subs []*Subdivision
			for _, s := range subsByCode[code] {
				if s.Country == country {
					subs = append(subs, s)
				}
			}
			if len(subs) == 0 {
				continue
			}
			factors, err := d.factorsFromSubdivisions(country, group, subs)
			if err != nil {
				return fmt.Errorf("elgrid: disaggregating load for region %s: %v", code, err)
			}
			series := demand.Col(code)
			for k := range group {
				for i, s := range series {
					total[k][i] += factors[k] * s
				}
			}
		}
		for k, r := range group {
			loads.Attach(r.Bus, total[k])
		}
	}
	return nil
}

// demandFactors computes the per-bus demand weights for one country,
// honoring per-country weight overrides and the direct per-bus statistics
// of countries without subdivisions.
func (d *LoadDisaggregator) demandFactors(country string, group []*BusRegion) ([]float64, error) {
	if weights := d.directBusWeights(country, group); weights != nil {
		gdp := make([]float64, len(group))
		pop := make([]float64, len(group))
		for k, w := range weights {
			gdp[k] = w.GDP
			pop[k] = w.Pop
		}
		return d.combine(country, gdp, pop)
	}
	subs := d.subdivisionsOf(country)
	if len(subs) == 0 {
		return nil, fmt.Errorf("no statistical subdivisions for country %s", country)
	}
	return d.factorsFromSubdivisions(country, group, subs)
}

// factorsFromSubdivisions transfers the subdivisions' population and GDP
// onto the bus regions by fractional overlap area and combines them into
// normalized demand factors.
func (d *LoadDisaggregator) factorsFromSubdivisions(country string, group []*BusRegion, subs []*Subdivision) ([]float64, error) {
	dst := make([]geom.Polygonal, len(subs))
	gdp := make([]float64, len(subs))
	pop := make([]float64, len(subs))
	for j, s := range subs {
		dst[j] = s.Polygonal
		// A missing value defaults to 1 rather than 0 so the
		// subdivision keeps a share instead of collapsing the
		// allocation onto its neighbors.
		gdp[j] = valueOr(s.GDP, 1)
		pop[j] = valueOr(s.Pop, 1)
	}
	src := make([]geom.Polygonal, len(group))
	for k, r := range group {
		src[k] = r.Polygonal
	}

	// transfer[j,k] is the fraction of subdivision j covered by bus
	// region k, so transposing the dot product sums each subdivision's
	// weighted share into the bus regions.
	transfer, err := ShapeTransfer(src, dst)
	if err != nil {
		return nil, err
	}
	gdpN := make([]float64, len(group))
	popN := make([]float64, len(group))
	for j := range subs {
		for k := range group {
			frac := transfer.Get(j, k)
			if frac == 0 {
				continue
			}
			gdpN[k] += frac * gdp[j]
			popN[k] += frac * pop[j]
		}
	}
	return d.combine(country, gdpN, popN)
}

// combine merges per-bus GDP and population sums into demand factors:
// normed(wGDP·normed(gdp) + wPop·normed(pop)).
func (d *LoadDisaggregator) combine(country string, gdp, pop []float64) ([]float64, error) {
	if floats.Sum(gdp) == 0 || floats.Sum(pop) == 0 {
		return nil, fmt.Errorf("country %s: zero total GDP or population", country)
	}
	w := d.Weights
	if w == (WeightPair{}) {
		w = DefaultWeights
	}
	if o, ok := d.WeightOverrides[country]; ok {
		w = o
	}
	gdpN := normed(gdp)
	popN := normed(pop)
	factors := make([]float64, len(gdp))
	for k := range factors {
		factors[k] = w.GDP*gdpN[k] + w.Pop*popN[k]
	}
	return normed(factors), nil
}

// directBusWeights returns the per-bus statistics rows for a country that
// uses them, aligned with group, or nil if the country has none.
func (d *LoadDisaggregator) directBusWeights(country string, group []*BusRegion) []*BusWeight {
	byBus := make(map[string]*BusWeight)
	for _, w := range d.BusWeights {
		if w.Country == country {
			byBus[w.Bus] = w
		}
	}
	if len(byBus) == 0 {
		return nil
	}
	weights := make([]*BusWeight, len(group))
	for k, r := range group {
		if w, ok := byBus[r.Bus]; ok {
			weights[k] = w
		} else {
			weights[k] = &BusWeight{Bus: r.Bus, Country: country, Pop: 1, GDP: 1}
		}
	}
	return weights
}

// countries returns the sorted set of countries with at least one bus
// region.
func (d *LoadDisaggregator) countries() []string {
	seen := make(map[string]bool)
	var o []string
	for _, r := range d.Regions {
		if !seen[r.Country] {
			seen[r.Country] = true
			o = append(o, r.Country)
		}
	}
	sort.Strings(o)
	return o
}

func (d *LoadDisaggregator) regionsOf(country string) []*BusRegion {
	var o []*BusRegion
	for _, r := range d.Regions {
		if r.Country == country {
			o = append(o, r)
		}
	}
	return o
}

func (d *LoadDisaggregator) subdivisionsOf(country string) []*Subdivision {
	var o []*Subdivision
	for _, s := range d.Subdivisions {
		if s.Country == country {
			o = append(o, s)
		}
	}
	return o
}

// subdivisionsMatching returns the subdivisions whose code starts with the
// given region code, so a NUTS2 code selects all its NUTS3 members.
func (d *LoadDisaggregator) subdivisionsMatching(code string) []*Subdivision {
	var o []*Subdivision
	for _, s := range d.Subdivisions {
		if strings.HasPrefix(s.Code, code) {
			o = append(o, s)
		}
	}
	return o
}
