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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/powermodel/elgrid"
)

// WriteWeightsShapefile writes the demand bus regions with their mean
// per-timestamp share of the total attached load, for visual inspection of
// the disaggregation.
func WriteWeightsShapefile(fileName string, regions []*elgrid.BusRegion, loads *elgrid.LoadTable) error {
	fields := []goshp.Field{
		goshp.StringField("bus", 64),
		goshp.StringField("country", 8),
		goshp.FloatField("loadshare", 14, 8),
	}

	fileBase := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	shape, err := shp.NewEncoderFromFields(fileBase+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("elgridutil: creating weights shapefile: %v", err)
	}

	total := 0.0
	means := make(map[string]float64)
	for _, name := range loads.PSet.Columns {
		m := loads.PSet.ColMean(name)
		means[name] = m
		total += m
	}

	for _, r := range regions {
		share := 0.0
		if total > 0 {
			share = means[r.Bus] / total
		}
		if err := shape.EncodeFields(r.Polygonal, r.Bus, r.Country, share); err != nil {
			return fmt.Errorf("elgridutil: writing weights shapefile: %v", err)
		}
	}
	shape.Close()
	return nil
}

// WriteGeneratorsCSV writes the generator table with the columns id, bus,
// carrier, p_nom, p_nom_min, p_nom_max, p_nom_extendable, efficiency,
// marginal_cost, capital_cost.
func WriteGeneratorsCSV(fileName string, gens *elgrid.GeneratorTable) error {
	f, err := os.Create(os.ExpandEnv(fileName))
	if err != nil {
		return fmt.Errorf("elgridutil: creating %s: %v", fileName, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"id", "bus", "carrier", "p_nom", "p_nom_min", "p_nom_max",
		"p_nom_extendable", "efficiency", "marginal_cost", "capital_cost"})
	for _, g := range gens.Gens {
		w.Write([]string{
			g.ID, g.Bus, g.Carrier,
			formatFloat(g.PNom), formatFloat(g.PNomMin), formatFloat(g.PNomMax),
			strconv.FormatBool(g.PNomExtendable),
			formatFloat(g.Efficiency), formatFloat(g.MarginalCost), formatFloat(g.CapitalCost),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("elgridutil: writing %s: %v", fileName, err)
	}
	return nil
}

// WriteStorageUnitsCSV writes the storage unit table with the columns id,
// bus, carrier, p_nom, max_hours, efficiency_store, efficiency_dispatch.
func WriteStorageUnitsCSV(fileName string, sus *elgrid.StorageUnitTable) error {
	f, err := os.Create(os.ExpandEnv(fileName))
	if err != nil {
		return fmt.Errorf("elgridutil: creating %s: %v", fileName, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"id", "bus", "carrier", "p_nom", "max_hours",
		"efficiency_store", "efficiency_dispatch"})
	for _, su := range sus.Units {
		w.Write([]string{
			su.ID, su.Bus, su.Carrier,
			formatFloat(su.PNom), formatFloat(su.MaxHours),
			formatFloat(su.EfficiencyStore), formatFloat(su.EfficiencyDispatch),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("elgridutil: writing %s: %v", fileName, err)
	}
	return nil
}

// WriteTimeSeriesCSV writes a time series table in the same wide format
// ReadTimeSeriesCSV reads.
func WriteTimeSeriesCSV(fileName string, ts *elgrid.TimeSeries) error {
	f, err := os.Create(os.ExpandEnv(fileName))
	if err != nil {
		return fmt.Errorf("elgridutil: creating %s: %v", fileName, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(append([]string{"time"}, ts.Columns...))
	for i := 0; i < ts.Len(); i++ {
		row := make([]string, 1+len(ts.Columns))
		row[0] = ts.Times[i].Format(time.RFC3339)
		for j, name := range ts.Columns {
			row[j+1] = formatFloat(ts.Get(i, name))
		}
		w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("elgridutil: writing %s: %v", fileName, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
