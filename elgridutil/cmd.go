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

// Package elgridutil holds the configuration and command-line interface for
// the elgrid model builder.
package elgridutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/powermodel/elgrid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to elgrid.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir specifies the directory the generator, storage unit,
              and load tables are written to.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "WeightsShapefile",
			usage: `
              WeightsShapefile, if set, specifies a path to write a
              diagnostic shapefile holding each demand bus region together
              with its share of the total attached load.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "BusFile",
			usage: `
              BusFile is the path to the CSV table of network buses produced
              by the topology stage.`,
			defaultVal: "buses.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "LineFile",
			usage: `
              LineFile is the path to the CSV table of AC lines.`,
			defaultVal: "lines.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "LinkFile",
			usage: `
              LinkFile is the path to the CSV table of DC links.`,
			defaultVal: "links.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "CostsFile",
			usage: `
              CostsFile is the path to the technology cost database with the
              columns technology, parameter, value, unit.`,
			defaultVal: "costs.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "PowerPlantsFile",
			usage: `
              PowerPlantsFile is the path to the normalized power plant
              inventory.`,
			defaultVal: "powerplants.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "DemandFile",
			usage: `
              DemandFile is the path to the demand time series table. In
              national mode its columns are country codes; in regional mode
              they are statistical region codes.`,
			defaultVal: "demand.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "InflowFile",
			usage: `
              InflowFile is the path to the national hydro inflow time
              series table, one column per country, in MW.`,
			defaultVal: "inflow.csv",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "HydroStatsFile",
			usage: `
              HydroStatsFile is the path to the national hydro statistics
              table with the columns country, e_store_twh, p_discharge_gw.
              It may be empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "CapacityStatsFile",
			usage: `
              CapacityStatsFile is the path to the reported installed
              capacity statistics with the columns technology, country,
              year, capacity. It may be empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "RegionsFile",
			usage: `
              RegionsFile is the path to the shapefile of demand bus regions
              with the attribute fields bus and country.`,
			defaultVal: "regions.shp",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "SubdivisionsFile",
			usage: `
              SubdivisionsFile is the path to the shapefile of statistical
              subdivisions with the attribute fields code, country, pop, and
              gdp.`,
			defaultVal: "subdivisions.shp",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "BusWeightsFile",
			usage: `
              BusWeightsFile is the path to a CSV table of precomputed
              per-bus population and GDP statistics for countries without
              statistical subdivisions. It may be empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Load.Mode",
			usage: `
              Load.Mode selects how the demand series are keyed: 'national'
              for one column per country or 'regional' for one column per
              statistical region code.`,
			defaultVal: "national",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Load.Scaling",
			usage: `
              Load.Scaling is a factor all demand series are multiplied by
              before disaggregation.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Load.WeightGDP",
			usage: `
              Load.WeightGDP is the relative weight given to GDP when
              combining GDP and population into demand factors.`,
			defaultVal: 0.6,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Load.WeightPop",
			usage: `
              Load.WeightPop is the relative weight given to population when
              combining GDP and population into demand factors.`,
			defaultVal: 0.4,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Load.WeightOverrides",
			usage: `
              Load.WeightOverrides replaces the GDP/population weights for
              specific countries. Each map value holds the two weights
              separated by a comma, for example {"ES": "0.18,0.82"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "ElectricityCarriers",
			usage: `
              ElectricityCarriers lists the conventional carriers whose
              plants enter the model at installed capacity.`,
			defaultVal: []string{"OCGT", "CCGT", "coal", "nuclear", "oil", "biomass"},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "ExtendableCarriers",
			usage: `
              ExtendableCarriers lists the carriers whose capacities the
              downstream optimization may expand.`,
			defaultVal: []string{"OCGT", "onwind", "solar"},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Profiles",
			usage: `
              Profiles maps each renewable carrier to the path of its site
              profile file, for example {"onwind": "profile_onwind.csv"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "LineLengthFactor",
			usage: `
              LineLengthFactor scales line lengths to account for transmission
              routes being longer than straight lines between buses.`,
			defaultVal: 1.25,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Costs.Nyears",
			usage: `
              Costs.Nyears scales annualized costs to the number of modeled
              years.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Costs.FillValues",
			usage: `
              Costs.FillValues provides defaults for parameters missing from
              the cost database, keyed by parameter name.`,
			defaultVal: map[string]string{
				"FOM": "0", "VOM": "0", "efficiency": "1", "fuel": "0",
				"investment": "0", "lifetime": "25", "discount rate": "0.07",
				"co2_emissions": "0",
			},
			flagsets: []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Costs.MaxHours",
			usage: `
              Costs.MaxHours gives the storage duration in hours used to
              compose storage technology costs, keyed by storage carrier.`,
			defaultVal: map[string]string{"battery": "6", "H2": "168"},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Costs.MarginalCost",
			usage: `
              Costs.MarginalCost overrides computed marginal costs per
              technology.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Costs.CapitalCost",
			usage: `
              Costs.CapitalCost overrides computed capital costs per
              technology.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Hydro.Carriers",
			usage: `
              Hydro.Carriers lists the hydro carriers to attach, out of
              'ror', 'PHS', and 'hydro'.`,
			defaultVal: []string{"ror", "PHS", "hydro"},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Hydro.MaxHoursEstimator",
			usage: `
              Hydro.MaxHoursEstimator selects how missing reservoir storage
              durations are derived from national statistics, either
              'energy_capacity_totals_by_country' or
              'estimate_by_large_installations'.`,
			defaultVal: string(elgrid.EstimateFromEnergyTotals),
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Hydro.PHSMaxHours",
			usage: `
              Hydro.PHSMaxHours is the storage duration in hours assumed for
              pumped-storage plants that do not report one.`,
			defaultVal: 6.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Hydro.FlattenDispatch",
			usage: `
              Hydro.FlattenDispatch caps reservoir dispatch at the mean
              inflow-derived capacity factor plus Hydro.FlattenDispatchBuffer.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Hydro.FlattenDispatchBuffer",
			usage: `
              Hydro.FlattenDispatchBuffer is the headroom added to the mean
              capacity factor when Hydro.FlattenDispatch is set.`,
			defaultVal: 0.2,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Renewable.Year",
			usage: `
              Renewable.Year is the statistics year used when distributing
              reported renewable capacities.`,
			defaultVal: 2023,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Renewable.ExpansionLimit",
			usage: `
              Renewable.ExpansionLimit, when positive, caps each renewable
              generator's expandable capacity at this multiple of its newly
              set installed capacity.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Renewable.Countries",
			usage: `
              Renewable.Countries lists the countries whose renewable
              capacities are matched to reported statistics.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Renewable.TechnologyMapping",
			usage: `
              Renewable.TechnologyMapping maps each reported statistics
              technology name to the model carriers it covers, for example
              {"Onshore wind": "onwind", "Offshore wind": "offwind-ac,offwind-dc"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Reconcile.Regions",
			usage: `
              Reconcile.Regions is the path to the shapefile of
              administrative regions used for capacity reconciliation, with
              the attribute fields code and name. Reconciliation is skipped
              when it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Reconcile.Method",
			usage: `
              Reconcile.Method selects how capacity increases are split
              between a region's buses, either 'additional' (equal shares)
              or 'proportional' (proportional to current capacity).`,
			defaultVal: "additional",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Reconcile.ReportedFiles",
			usage: `
              Reconcile.ReportedFiles maps each carrier to a time series
              table of reported per-region capacities, with one column per
              region code.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ELGRID")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(buildCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("elgrid: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "elgrid",
	Short: "An electricity-sector network model builder.",
	Long: `elgrid attaches generation, storage, load, and transmission-cost data
to a pre-built bus/line network topology, producing a model ready for
capacity-expansion optimization. Use the subcommands specified below to
access the functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'ELGRID_var' where 'var' is the name of the variable to be set. Many
configuration variables are additionally allowed to contain environment
variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of elgrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("elgrid v%s\n", elgrid.Version)
	},
	DisableAutoGenTag: true,
}

// buildCmd is a command that runs one model-building pass.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the electricity network model.",
	Long: `build reads the topology, cost, inventory, demand, and statistics
inputs named in the configuration, attaches load, conventional, renewable,
and hydro components to the network, reconciles capacities against reported
statistics, and writes the resulting component tables to the output
directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := BuildConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		return Build(cfg)
	},
	DisableAutoGenTag: true,
}
