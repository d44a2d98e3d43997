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
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/powermodel/elgrid"
)

// timeLayouts are the timestamp formats accepted in time series files.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("elgridutil: unrecognized timestamp %q", s)
}

// parseFloat converts a CSV field to a float64, mapping empty fields to NaN.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func openCSV(filename string) (*csv.Reader, *os.File, error) {
	f, err := os.Open(os.ExpandEnv(filename))
	if err != nil {
		return nil, nil, fmt.Errorf("elgridutil: opening %s: %v", filename, err)
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	return r, f, nil
}

// ReadTimeSeriesCSV reads a wide-format time series file where the first
// column holds timestamps and the remaining header fields name the series.
func ReadTimeSeriesCSV(filename string) (*elgrid.TimeSeries, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("elgridutil: %s: need a time column and at least one series", filename)
	}
	columns := header[1:]

	var times []time.Time
	var rows [][]float64
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		t, err := parseTime(rec[0])
		if err != nil {
			return nil, err
		}
		times = append(times, t)
		row := make([]float64, len(columns))
		for i, s := range rec[1:] {
			if row[i], err = parseFloat(s); err != nil {
				return nil, fmt.Errorf("elgridutil: %s row %d: %v", filename, len(times), err)
			}
		}
		rows = append(rows, row)
	}

	ts := elgrid.NewTimeSeries(times, columns)
	for j, name := range columns {
		col := make([]float64, len(rows))
		for i := range rows {
			col[i] = rows[i][j]
		}
		ts.SetCol(name, col)
	}
	return ts, nil
}

// ReadCostsCSV reads a technology cost database with the columns
// technology, parameter, value, unit.
func ReadCostsCSV(filename string) ([]elgrid.CostRecord, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	var o []elgrid.CostRecord
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		v, err := parseFloat(rec[2])
		if err != nil {
			return nil, fmt.Errorf("elgridutil: %s: %v", filename, err)
		}
		o = append(o, elgrid.CostRecord{
			Technology: rec[0],
			Parameter:  rec[1],
			Value:      v,
			Unit:       rec[3],
		})
	}
	return o, nil
}

// ReadPowerPlantsCSV reads a normalized power plant inventory with the
// columns id, country, bus, carrier, technology, p_nom, efficiency,
// max_hours, date_in, date_out. Empty numeric fields become NaN.
func ReadPowerPlantsCSV(filename string) ([]*elgrid.PowerPlant, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	var o []*elgrid.PowerPlant
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		p := &elgrid.PowerPlant{
			ID:         rec[0],
			Country:    rec[1],
			Bus:        rec[2],
			Carrier:    rec[3],
			Technology: rec[4],
		}
		vals := []*float64{&p.PNom, &p.Efficiency, &p.MaxHours, &p.DateIn, &p.DateOut}
		for i, v := range vals {
			if *v, err = parseFloat(rec[5+i]); err != nil {
				return nil, fmt.Errorf("elgridutil: %s plant %s: %v", filename, p.ID, err)
			}
		}
		o = append(o, p)
	}
	return o, nil
}

// ReadHydroStatsCSV reads national hydropower statistics with the columns
// country, e_store_twh, p_discharge_gw.
func ReadHydroStatsCSV(filename string) ([]*elgrid.HydroStat, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	var o []*elgrid.HydroStat
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		s := &elgrid.HydroStat{Country: rec[0]}
		if s.EStoreTWh, err = parseFloat(rec[1]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s country %s: %v", filename, s.Country, err)
		}
		if s.PDischargeGW, err = parseFloat(rec[2]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s country %s: %v", filename, s.Country, err)
		}
		o = append(o, s)
	}
	return o, nil
}

// ReadCapacityStatsCSV reads reported installed capacities with the columns
// technology, country, year, capacity.
func ReadCapacityStatsCSV(filename string) ([]elgrid.CapacityStat, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	var o []elgrid.CapacityStat
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("elgridutil: %s: parsing year: %v", filename, err)
		}
		capacity, err := parseFloat(rec[3])
		if err != nil {
			return nil, fmt.Errorf("elgridutil: %s: %v", filename, err)
		}
		if math.IsNaN(capacity) {
			continue
		}
		o = append(o, elgrid.CapacityStat{
			Technology: rec[0],
			Country:    rec[1],
			Year:       year,
			Capacity:   capacity,
		})
	}
	return o, nil
}

// ReadBusWeightsCSV reads precomputed per-bus population and GDP statistics
// with the columns bus, country, pop, gdp.
func ReadBusWeightsCSV(filename string) ([]*elgrid.BusWeight, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	var o []*elgrid.BusWeight
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		w := &elgrid.BusWeight{Bus: rec[0], Country: rec[1]}
		if w.Pop, err = parseFloat(rec[2]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s bus %s: %v", filename, w.Bus, err)
		}
		if w.GDP, err = parseFloat(rec[3]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s bus %s: %v", filename, w.Bus, err)
		}
		o = append(o, w)
	}
	return o, nil
}

// ReadBusesCSV reads the network buses with the columns id, x, y, country,
// substation_lv.
func ReadBusesCSV(filename string) (*elgrid.BusTable, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	buses := &elgrid.BusTable{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		b := &elgrid.Bus{ID: rec[0], Country: rec[3]}
		if b.X, err = parseFloat(rec[1]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s bus %s: %v", filename, b.ID, err)
		}
		if b.Y, err = parseFloat(rec[2]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s bus %s: %v", filename, b.ID, err)
		}
		b.SubstationLV, err = strconv.ParseBool(strings.TrimSpace(rec[4]))
		if err != nil {
			return nil, fmt.Errorf("elgridutil: %s bus %s: %v", filename, b.ID, err)
		}
		buses.Add(b)
	}
	return buses, nil
}

// ReadLinesCSV reads the AC lines with the columns id, bus0, bus1, length,
// s_nom.
func ReadLinesCSV(filename string) (*elgrid.LineTable, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	lines := &elgrid.LineTable{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		l := &elgrid.Line{ID: rec[0], Bus0: rec[1], Bus1: rec[2]}
		if l.Length, err = parseFloat(rec[3]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s line %s: %v", filename, l.ID, err)
		}
		if l.SNom, err = parseFloat(rec[4]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s line %s: %v", filename, l.ID, err)
		}
		lines.Add(l)
	}
	return lines, nil
}

// ReadLinksCSV reads the DC links with the columns id, bus0, bus1, carrier,
// length, underwater_fraction.
func ReadLinksCSV(filename string) (*elgrid.LinkTable, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	links := &elgrid.LinkTable{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		l := &elgrid.Link{ID: rec[0], Bus0: rec[1], Bus1: rec[2], Carrier: rec[3]}
		if l.Length, err = parseFloat(rec[4]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s link %s: %v", filename, l.ID, err)
		}
		if l.UnderwaterFraction, err = parseFloat(rec[5]); err != nil {
			return nil, fmt.Errorf("elgridutil: %s link %s: %v", filename, l.ID, err)
		}
		links.Add(l)
	}
	return links, nil
}

// ReadProfileCSV reads one renewable carrier's site profile. The file is a
// wide table with one column per bus; the rows named p_nom_max, weight,
// average_distance, and underwater_fraction hold static site attributes and
// the timestamped rows that follow hold the per-unit availability series.
func ReadProfileCSV(filename, carrier string) (*elgrid.RenewableProfile, error) {
	r, f, err := openCSV(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("elgridutil: reading %s header: %v", filename, err)
	}
	buses := header[1:]

	p := &elgrid.RenewableProfile{
		Carrier:            carrier,
		Buses:              buses,
		PNomMax:            make([]float64, len(buses)),
		Weight:             make([]float64, len(buses)),
		AverageDistance:    make([]float64, len(buses)),
		UnderwaterFraction: make([]float64, len(buses)),
	}
	attrs := map[string][]float64{
		"p_nom_max":           p.PNomMax,
		"weight":              p.Weight,
		"average_distance":    p.AverageDistance,
		"underwater_fraction": p.UnderwaterFraction,
	}

	var times []time.Time
	var rows [][]float64
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("elgridutil: reading %s: %v", filename, err)
		}
		if dst, ok := attrs[rec[0]]; ok {
			for i, s := range rec[1:] {
				if dst[i], err = parseFloat(s); err != nil {
					return nil, fmt.Errorf("elgridutil: %s %s: %v", filename, rec[0], err)
				}
			}
			continue
		}
		t, err := parseTime(rec[0])
		if err != nil {
			return nil, err
		}
		times = append(times, t)
		row := make([]float64, len(buses))
		for i, s := range rec[1:] {
			if row[i], err = parseFloat(s); err != nil {
				return nil, fmt.Errorf("elgridutil: %s row %d: %v", filename, len(times), err)
			}
		}
		rows = append(rows, row)
	}

	ts := elgrid.NewTimeSeries(times, buses)
	for j, name := range buses {
		col := make([]float64, len(rows))
		for i := range rows {
			col[i] = rows[i][j]
		}
		ts.SetCol(name, col)
	}
	p.Profile = ts
	return p, nil
}

// busRegionRow is the attribute layout of the demand bus region shapefile.
type busRegionRow struct {
	geom.Geom
	Bus     string `shp:"bus"`
	Country string `shp:"country"`
}

// ReadBusRegions reads the demand bus region polygons from a shapefile with
// the attribute fields bus and country.
func ReadBusRegions(filename string) ([]*elgrid.BusRegion, error) {
	d, err := shp.NewDecoder(os.ExpandEnv(filename))
	if err != nil {
		return nil, fmt.Errorf("elgridutil: opening bus region shapefile %s: %v", filename, err)
	}
	defer d.Close()

	var o []*elgrid.BusRegion
	for {
		var row busRegionRow
		if more := d.DecodeRow(&row); !more {
			break
		}
		poly, ok := row.Geom.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("elgridutil: %s: bus %s geometry is %T, need a polygon",
				filename, row.Bus, row.Geom)
		}
		o = append(o, &elgrid.BusRegion{Polygonal: poly, Bus: row.Bus, Country: row.Country})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading bus region shapefile %s: %v", filename, err)
	}
	return o, nil
}

// subdivisionRow is the attribute layout of the statistical subdivision
// shapefile.
type subdivisionRow struct {
	geom.Geom
	Code    string  `shp:"code"`
	Country string  `shp:"country"`
	Pop     float64 `shp:"pop"`
	GDP     float64 `shp:"gdp"`
}

// ReadSubdivisions reads the statistical subdivision polygons from a
// shapefile with the attribute fields code, country, pop, and gdp. Negative
// statistics mark missing values and become NaN.
func ReadSubdivisions(filename string) ([]*elgrid.Subdivision, error) {
	d, err := shp.NewDecoder(os.ExpandEnv(filename))
	if err != nil {
		return nil, fmt.Errorf("elgridutil: opening subdivision shapefile %s: %v", filename, err)
	}
	defer d.Close()

	var o []*elgrid.Subdivision
	for {
		var row subdivisionRow
		if more := d.DecodeRow(&row); !more {
			break
		}
		poly, ok := row.Geom.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("elgridutil: %s: subdivision %s geometry is %T, need a polygon",
				filename, row.Code, row.Geom)
		}
		s := &elgrid.Subdivision{
			Polygonal: poly,
			Code:      row.Code,
			Country:   row.Country,
			Pop:       row.Pop,
			GDP:       row.GDP,
		}
		if s.Pop < 0 {
			s.Pop = math.NaN()
		}
		if s.GDP < 0 {
			s.GDP = math.NaN()
		}
		o = append(o, s)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading subdivision shapefile %s: %v", filename, err)
	}
	return o, nil
}

// adminRegionRow is the attribute layout of the administrative region
// shapefile.
type adminRegionRow struct {
	geom.Geom
	Code string `shp:"code"`
	Name string `shp:"name"`
}

// ReadAdminRegions reads the administrative region polygons used for
// capacity reconciliation from a shapefile with the attribute fields code
// and name.
func ReadAdminRegions(filename string) ([]*elgrid.AdminRegion, error) {
	d, err := shp.NewDecoder(os.ExpandEnv(filename))
	if err != nil {
		return nil, fmt.Errorf("elgridutil: opening region shapefile %s: %v", filename, err)
	}
	defer d.Close()

	var o []*elgrid.AdminRegion
	for {
		var row adminRegionRow
		if more := d.DecodeRow(&row); !more {
			break
		}
		poly, ok := row.Geom.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("elgridutil: %s: region %s geometry is %T, need a polygon",
				filename, row.Code, row.Geom)
		}
		o = append(o, &elgrid.AdminRegion{Polygonal: poly, Code: row.Code, Name: row.Name})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("elgridutil: reading region shapefile %s: %v", filename, err)
	}
	return o, nil
}
