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
	"time"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// TimeSeries holds a set of named time series sharing one time axis,
// for example hourly load per country or hourly inflow per plant.
type TimeSeries struct {
	Times   []time.Time
	Columns []string

	// Data is stored column-major so that Grow can extend the backing
	// slice without relaying existing columns.
	Data *sparse.DenseArray // shape: [len(Columns), len(Times)]

	index map[string]int
}

// NewTimeSeries creates a zero-filled TimeSeries with the given time axis
// and column names.
func NewTimeSeries(times []time.Time, columns []string) *TimeSeries {
	ts := &TimeSeries{
		Times:   times,
		Columns: columns,
		Data:    sparse.ZerosDense(len(columns), len(times)),
		index:   make(map[string]int, len(columns)),
	}
	for j, c := range columns {
		ts.index[c] = j
	}
	return ts
}

// Len returns the number of time steps.
func (ts *TimeSeries) Len() int { return len(ts.Times) }

// ColumnIndex returns the index of the named column, and whether it exists.
func (ts *TimeSeries) ColumnIndex(name string) (int, bool) {
	j, ok := ts.index[name]
	return j, ok
}

// HasColumn reports whether the named column exists.
func (ts *TimeSeries) HasColumn(name string) bool {
	_, ok := ts.index[name]
	return ok
}

// Grow appends zero-filled columns with the given names.
func (ts *TimeSeries) Grow(names ...string) {
	for _, name := range names {
		if _, ok := ts.index[name]; ok {
			panic(fmt.Errorf("elgrid: time series already has column %q", name))
		}
		ts.index[name] = len(ts.Columns)
		ts.Columns = append(ts.Columns, name)
	}
	ts.Data.Elements = append(ts.Data.Elements, make([]float64, len(names)*len(ts.Times))...)
	ts.Data.Shape[0] = len(ts.Columns)
	ts.Data.Fix()
}

// Col returns a copy of the values in the named column. It panics if the
// column does not exist.
func (ts *TimeSeries) Col(name string) []float64 {
	j, ok := ts.index[name]
	if !ok {
		panic(fmt.Errorf("elgrid: time series has no column %q", name))
	}
	n := len(ts.Times)
	v := make([]float64, n)
	copy(v, ts.Data.Elements[j*n:(j+1)*n])
	return v
}

// SetCol sets the values in the named column. It panics if the column does
// not exist or if v has the wrong length.
func (ts *TimeSeries) SetCol(name string, v []float64) {
	j, ok := ts.index[name]
	if !ok {
		panic(fmt.Errorf("elgrid: time series has no column %q", name))
	}
	n := len(ts.Times)
	if len(v) != n {
		panic(fmt.Errorf("elgrid: column %q: length mismatch: %d != %d",
			name, len(v), n))
	}
	copy(ts.Data.Elements[j*n:(j+1)*n], v)
}

// AddCol adds v to the values in the named column.
func (ts *TimeSeries) AddCol(name string, v []float64) {
	j, ok := ts.index[name]
	if !ok {
		panic(fmt.Errorf("elgrid: time series has no column %q", name))
	}
	col := ts.Data.Elements[j*len(ts.Times) : (j+1)*len(ts.Times)]
	for i, val := range v {
		col[i] += val
	}
}

// Get returns the value at time step it in the named column.
func (ts *TimeSeries) Get(it int, name string) float64 {
	j, ok := ts.index[name]
	if !ok {
		panic(fmt.Errorf("elgrid: time series has no column %q", name))
	}
	return ts.Data.Get(j, it)
}

// ColMean returns the mean over time of the named column.
func (ts *TimeSeries) ColMean(name string) float64 {
	v := ts.Col(name)
	if len(v) == 0 {
		return 0
	}
	return floats.Sum(v) / float64(len(v))
}

// Scale multiplies all values by f.
func (ts *TimeSeries) Scale(f float64) { ts.Data.Scale(f) }

// Filter returns a new TimeSeries containing only the named columns,
// skipping names that do not exist.
func (ts *TimeSeries) Filter(names []string) *TimeSeries {
	var keep []string
	for _, name := range names {
		if ts.HasColumn(name) {
			keep = append(keep, name)
		}
	}
	o := NewTimeSeries(ts.Times, keep)
	for _, name := range keep {
		o.SetCol(name, ts.Col(name))
	}
	return o
}

// RowSum returns, for every time step, the sum across the given columns.
func (ts *TimeSeries) RowSum(names []string) []float64 {
	n := len(ts.Times)
	v := make([]float64, n)
	for _, name := range names {
		j, ok := ts.index[name]
		if !ok {
			panic(fmt.Errorf("elgrid: time series has no column %q", name))
		}
		for i, val := range ts.Data.Elements[j*n : (j+1)*n] {
			v[i] += val
		}
	}
	return v
}

// normed returns v scaled so that its elements sum to 1. The caller must
// ensure that the sum is nonzero.
func normed(v []float64) []float64 {
	sum := floats.Sum(v)
	o := make([]float64, len(v))
	for i, val := range v {
		o[i] = val / sum
	}
	return o
}
