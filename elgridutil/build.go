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
	"fmt"
	"path/filepath"
	"sort"

	"github.com/powermodel/elgrid"
	"github.com/sirupsen/logrus"
)

// Build runs one model-building pass: it reads the topology, cost,
// inventory, demand, and statistics inputs named in cfg, attaches load,
// conventional, renewable, and hydro components to the network, reconciles
// capacities against reported statistics where configured, and writes the
// resulting component tables to the output directory.
func Build(cfg *BuildConfig) error {
	log := logrus.StandardLogger()

	buses, err := ReadBusesCSV(cfg.BusFile)
	if err != nil {
		return err
	}
	lines, err := ReadLinesCSV(cfg.LineFile)
	if err != nil {
		return err
	}
	links, err := ReadLinksCSV(cfg.LinkFile)
	if err != nil {
		return err
	}
	costRecords, err := ReadCostsCSV(cfg.CostsFile)
	if err != nil {
		return err
	}
	costs := elgrid.NewCostTable(costRecords, cfg.Costs)

	demand, err := ReadTimeSeriesCSV(cfg.DemandFile)
	if err != nil {
		return err
	}
	net := elgrid.NewNetwork(demand.Times)
	net.Buses, net.Lines, net.Links = buses, lines, links

	regions, err := ReadBusRegions(cfg.RegionsFile)
	if err != nil {
		return err
	}
	subdivisions, err := ReadSubdivisions(cfg.SubdivisionsFile)
	if err != nil {
		return err
	}
	var busWeights []*elgrid.BusWeight
	if cfg.BusWeightsFile != "" {
		if busWeights, err = ReadBusWeightsCSV(cfg.BusWeightsFile); err != nil {
			return err
		}
	}
	disagg := &elgrid.LoadDisaggregator{
		Mode:            cfg.LoadMode,
		Scaling:         cfg.LoadScaling,
		Weights:         cfg.LoadWeights,
		WeightOverrides: cfg.LoadWeightOverrides,
		Regions:         regions,
		Subdivisions:    subdivisions,
		BusWeights:      busWeights,
		Log:             log,
	}
	if err := disagg.Attach(net.Loads, demand); err != nil {
		return err
	}

	ppl, err := ReadPowerPlantsCSV(cfg.PowerPlantsFile)
	if err != nil {
		return err
	}
	if err := elgrid.AttachConventional(net.Generators, net.Carriers, costs, buses,
		ppl, cfg.ElectricityCarriers, cfg.ExtendableCarriers, nil, log); err != nil {
		return err
	}

	profiles, err := readProfiles(cfg.ProfileFiles)
	if err != nil {
		return err
	}
	if err := elgrid.AttachWindSolar(net.Generators, net.Carriers, costs, profiles,
		cfg.ExtendableCarriers, cfg.LineLengthFactor, log); err != nil {
		return err
	}

	inflow, err := ReadTimeSeriesCSV(cfg.InflowFile)
	if err != nil {
		return err
	}
	var hydroStats []*elgrid.HydroStat
	if cfg.HydroStatsFile != "" {
		if hydroStats, err = ReadHydroStatsCSV(cfg.HydroStatsFile); err != nil {
			return err
		}
	}
	if err := elgrid.AttachHydro(net.Generators, net.StorageUnits, net.Carriers, costs,
		buses, ppl, inflow, hydroStats, cfg.Hydro, log); err != nil {
		return err
	}

	if cfg.CapacityStatsFile != "" && len(cfg.RenewableTechnologies) > 0 {
		rows, err := ReadCapacityStatsCSV(cfg.CapacityStatsFile)
		if err != nil {
			return err
		}
		stats := elgrid.NewCapacityStats(rows, cfg.RenewableYear)
		elgrid.EstimateRenewableCapacities(net.Generators, buses, stats,
			cfg.RenewableTechnologies, cfg.RenewableExpansionLimit,
			cfg.RenewableCountries, log)
	}

	if cfg.ReconcileRegionsFile != "" {
		adminRegions, err := ReadAdminRegions(cfg.ReconcileRegionsFile)
		if err != nil {
			return err
		}
		reported, err := readReported(cfg.ReconcileReportedFiles)
		if err != nil {
			return err
		}
		rec := &elgrid.Reconciler{Method: cfg.ReconcileMethod, Log: log}
		if err := rec.Apply(net.Generators, buses, adminRegions, reported); err != nil {
			return err
		}
	}

	elgrid.UpdatePNomMax(net.Generators)
	elgrid.UpdateTransmissionCosts(lines, links, costs, cfg.LineLengthFactor)

	return writeOutputs(cfg, net, regions)
}

// readProfiles reads the renewable site profiles, in carrier order for
// reproducible generator ordering.
func readProfiles(files map[string]string) ([]*elgrid.RenewableProfile, error) {
	carriers := make([]string, 0, len(files))
	for c := range files {
		carriers = append(carriers, c)
	}
	sort.Strings(carriers)

	var o []*elgrid.RenewableProfile
	for _, c := range carriers {
		p, err := ReadProfileCSV(files[c], c)
		if err != nil {
			return nil, err
		}
		o = append(o, p)
	}
	return o, nil
}

// readReported reads the per-carrier reported regional capacity tables.
func readReported(files map[string]string) (map[string]*elgrid.TimeSeries, error) {
	o := make(map[string]*elgrid.TimeSeries, len(files))
	for carrier, file := range files {
		ts, err := ReadTimeSeriesCSV(file)
		if err != nil {
			return nil, fmt.Errorf("elgridutil: reported capacities for %s: %v", carrier, err)
		}
		o[carrier] = ts
	}
	return o, nil
}

func writeOutputs(cfg *BuildConfig, net *elgrid.Network, regions []*elgrid.BusRegion) error {
	if err := WriteGeneratorsCSV(filepath.Join(cfg.OutputDir, "generators.csv"), net.Generators); err != nil {
		return err
	}
	if err := WriteStorageUnitsCSV(filepath.Join(cfg.OutputDir, "storage_units.csv"), net.StorageUnits); err != nil {
		return err
	}
	if err := WriteTimeSeriesCSV(filepath.Join(cfg.OutputDir, "loads_p_set.csv"), net.Loads.PSet); err != nil {
		return err
	}
	if err := WriteTimeSeriesCSV(filepath.Join(cfg.OutputDir, "generators_p_max_pu.csv"), net.Generators.PMaxPU); err != nil {
		return err
	}
	if err := WriteTimeSeriesCSV(filepath.Join(cfg.OutputDir, "storage_units_inflow.csv"), net.StorageUnits.Inflow); err != nil {
		return err
	}
	if cfg.WeightsShapefile != "" {
		if err := WriteWeightsShapefile(cfg.WeightsShapefile, regions, net.Loads); err != nil {
			return err
		}
	}
	return nil
}
