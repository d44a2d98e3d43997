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

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// reconcileTol is the tolerance below which a reported capacity target is
// treated as already met.
const reconcileTol = 1e-6

// IncreaseMethod selects how additional capacity is spread across a
// region's generators when the reported total exceeds the modeled one.
type IncreaseMethod string

const (
	// IncreaseAdditional adds the same amount to every generator.
	IncreaseAdditional IncreaseMethod = "additional"
	// IncreaseProportional scales every generator by the same factor.
	IncreaseProportional IncreaseMethod = "proportional"
)

// AdminRegion is a sub-national statistical region (NUTS2) against whose
// reported installed capacities the model is reconciled.
type AdminRegion struct {
	geom.Polygonal
	Code string
	Name string
}

// Reconciler rescales generator capacities within sub-national regions to
// match externally reported totals, redistributing capacity that would
// exceed a generator's expansion bound onto the region's other generators.
type Reconciler struct {
	Method IncreaseMethod
	Log    logrus.FieldLogger
}

// Apply reconciles every (region, carrier) pair: for each carrier in
// reported, and each region with a reported series, the in-region
// generators of that carrier are adjusted to the mean over time of the
// reported series. Region codes in the reported tables without a matching
// region polygon are ignored (the statistics include areas outside the
// model).
func (r *Reconciler) Apply(gens *GeneratorTable, buses *BusTable,
	regions []*AdminRegion, reported map[string]*TimeSeries) error {

	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	for carrier, series := range reported {
		for _, region := range regions {
			if !series.HasColumn(region.Code) {
				continue
			}
			required := series.ColMean(region.Code)
			if err := r.reconcileRegion(gens, buses, region, carrier, required, log); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileRegion adjusts the generators of one carrier within one region
// to the required total capacity.
func (r *Reconciler) reconcileRegion(gens *GeneratorTable, buses *BusTable,
	region *AdminRegion, carrier string, required float64, log logrus.FieldLogger) error {

	inRegion := make(map[string]bool)
	for _, id := range BusesWithin(buses, region.Polygonal) {
		inRegion[id] = true
	}

	// Generators below the materiality floor are "everywhere" stubs;
	// only fall back to them when the region has nothing else.
	group := gens.Select(func(g *Generator) bool {
		return inRegion[g.Bus] && g.Carrier == carrier && g.PNom > 0.01
	})
	if len(group) == 0 {
		group = gens.Select(func(g *Generator) bool {
			return inRegion[g.Bus] && g.Carrier == carrier
		})
		if len(group) > 0 {
			log.Warnf("No %s generators above materiality threshold in %s; using all %d in-region generators.",
				carrier, region.Name, len(group))
		}
	}
	if len(group) == 0 {
		log.Warnf("No bus with %s generator in %s. Updating capacity was not possible.",
			carrier, region.Name)
		return nil
	}

	initial := groupPNom(group)
	if err := r.Reconcile(group, required, log); err != nil {
		return fmt.Errorf("elgrid: carrier %s in region %s: %v", carrier, region.Name, err)
	}
	final := groupPNom(group)

	if math.Abs(final-initial) < reconcileTol {
		log.Infof("%s capacity matches in %s.", carrier, region.Name)
	} else {
		log.Infof("%s capacity in %s was updated from %.0f to %.0f MW.",
			carrier, region.Name, initial, final)
	}
	var saturated int
	for _, g := range group {
		if g.PNom == g.PNomMax {
			saturated++
		}
	}
	if saturated > 0 {
		log.Infof("Maximum %s capacity was reached at %d buses in %s.",
			carrier, saturated, region.Name)
	}
	return nil
}

// Reconcile adjusts the capacities of the given generators so their total
// matches required without any generator exceeding its expansion bound.
// Overflow above a bound is clamped and redistributed across the remaining
// generators as an explicit fixed-point iteration over a strictly shrinking
// adjustable set, so termination is guaranteed; the generator clamped each
// round is the first over-limit one in table order (any deterministic order
// would do; table order matches the reported-statistics convention).
// A required total above the combined expansion bound is an error, checked
// once up front.
func (r *Reconciler) Reconcile(group []*Generator, required float64, logger logrus.FieldLogger) error {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	var bound float64
	for _, g := range group {
		bound += g.PNomMax
	}
	if required > bound+reconcileTol {
		return fmt.Errorf("required capacity %.1f MW exceeds combined expansion bound %.1f MW",
			required, bound)
	}

	p := make([]float64, len(group))
	for i, g := range group {
		p[i] = g.PNom
	}
	adjustable := make([]int, len(group))
	for i := range group {
		adjustable[i] = i
	}
	r.adjust(p, adjustable, required, log)

	for {
		over := -1
		for _, i := range adjustable {
			if p[i] > group[i].PNomMax+reconcileTol {
				over = i
				break
			}
		}
		if over < 0 {
			break
		}
		overflow := p[over] - group[over].PNomMax
		p[over] = group[over].PNomMax

		remaining := adjustable[:0]
		for _, i := range adjustable {
			if i != over {
				remaining = append(remaining, i)
			}
		}
		adjustable = remaining

		var current float64
		for _, i := range adjustable {
			current += p[i]
		}
		r.adjust(p, adjustable, current+overflow, log)
	}

	for i, g := range group {
		g.PNom = math.Min(p[i], g.PNomMax)
	}
	return nil
}

// adjust applies the increase/decrease rule to the adjustable subset of p:
// increases follow the configured method, decreases are always
// proportional, and an exact match is a no-op.
func (r *Reconciler) adjust(p []float64, adjustable []int, required float64, log logrus.FieldLogger) {
	if len(adjustable) == 0 {
		return
	}
	var current float64
	for _, i := range adjustable {
		current += p[i]
	}
	switch {
	case required > current+reconcileTol:
		method := r.Method
		if method == "" {
			method = IncreaseAdditional
		}
		if method == IncreaseProportional && current == 0 {
			log.Warnf("No initial capacity to scale proportionally; using %q method.",
				IncreaseAdditional)
			method = IncreaseAdditional
		}
		switch method {
		case IncreaseAdditional:
			add := (required - current) / float64(len(adjustable))
			for _, i := range adjustable {
				p[i] += add
			}
		case IncreaseProportional:
			factor := required / current
			for _, i := range adjustable {
				p[i] *= factor
			}
		}
	case required < current-reconcileTol:
		factor := required / current
		for _, i := range adjustable {
			p[i] *= factor
		}
	}
}

// BusesWithin returns the IDs of the buses located inside the given
// polygon, in table order.
func BusesWithin(buses *BusTable, poly geom.Polygonal) []string {
	var o []string
	for _, b := range buses.Buses {
		pt := geom.Point{X: b.X, Y: b.Y}
		if pt.Within(poly) == geom.Inside {
			o = append(o, b.ID)
		}
	}
	return o
}

func groupPNom(group []*Generator) float64 {
	var s float64
	for _, g := range group {
		s += g.PNom
	}
	return s
}
