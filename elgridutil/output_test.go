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

package elgridutil

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/powermodel/elgrid"
)

func TestWriteGeneratorsCSV(t *testing.T) {
	times := []time.Time{time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)}
	gens := elgrid.NewGeneratorTable(times)
	if err := gens.Add(&elgrid.Generator{
		ID: "bus0 onwind", Bus: "bus0", Carrier: "onwind",
		PNom: 60, PNomMin: 60, PNomMax: 90, PNomExtendable: true,
		Efficiency: 1, MarginalCost: 0.015, CapitalCost: 1e5,
	}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "generators.csv")
	if err := WriteGeneratorsCSV(path, gens); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("have %d rows, want 2", len(rows))
	}
	if rows[0][0] != "id" || rows[0][3] != "p_nom" {
		t.Errorf("unexpected header %v", rows[0])
	}
	want := []string{"bus0 onwind", "bus0", "onwind", "60", "60", "90", "true", "1", "0.015", "100000"}
	for i, w := range want {
		if rows[1][i] != w {
			t.Errorf("column %d: have %s, want %s", i, rows[1][i], w)
		}
	}
}

func TestWriteTimeSeriesCSVRoundTrip(t *testing.T) {
	times := []time.Time{
		time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2015, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	ts := elgrid.NewTimeSeries(times, []string{"bus0"})
	ts.SetCol("bus0", []float64{1.5, 2.5})

	path := filepath.Join(t.TempDir(), "load.csv")
	if err := WriteTimeSeriesCSV(path, ts); err != nil {
		t.Fatal(err)
	}
	back, err := ReadTimeSeriesCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != 2 || !back.Times[1].Equal(times[1]) {
		t.Errorf("unexpected time axis %v", back.Times)
	}
	if have := back.Col("bus0"); have[0] != 1.5 || have[1] != 2.5 {
		t.Errorf("have %v, want [1.5 2.5]", have)
	}
}

func TestWriteWeightsShapefile(t *testing.T) {
	square := func(x float64) geom.Polygon {
		return geom.Polygon([]geom.Path{{
			{X: x, Y: 0}, {X: x + 1, Y: 0}, {X: x + 1, Y: 1}, {X: x, Y: 1},
		}})
	}
	regions := []*elgrid.BusRegion{
		{Polygonal: square(0), Bus: "bus0", Country: "ES"},
		{Polygonal: square(1), Bus: "bus1", Country: "ES"},
	}
	times := []time.Time{
		time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2015, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	loads := &elgrid.LoadTable{PSet: elgrid.NewTimeSeries(times, nil)}
	loads.Attach("bus0", []float64{30, 30})
	loads.Attach("bus1", []float64{70, 70})

	path := filepath.Join(t.TempDir(), "weights.shp")
	if err := WriteWeightsShapefile(path, regions, loads); err != nil {
		t.Fatal(err)
	}

	back, err := ReadBusRegions(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 {
		t.Fatalf("have %d regions, want 2", len(back))
	}
	if back[0].Bus != "bus0" || back[1].Country != "ES" {
		t.Errorf("unexpected regions %+v, %+v", back[0], back[1])
	}
	if have := back[1].Polygonal.Area(); math.Abs(have-1) > 1e-9 {
		t.Errorf("area: have %g, want 1", have)
	}
}
