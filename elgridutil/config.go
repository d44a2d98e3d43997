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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/powermodel/elgrid"
	"github.com/spf13/cast"
)

// BuildConfig holds the fully parsed inputs of one model-building pass.
type BuildConfig struct {
	OutputDir        string
	WeightsShapefile string

	BusFile           string
	LineFile          string
	LinkFile          string
	CostsFile         string
	PowerPlantsFile   string
	DemandFile        string
	InflowFile        string
	HydroStatsFile    string
	CapacityStatsFile string
	RegionsFile       string
	SubdivisionsFile  string
	BusWeightsFile    string

	LoadMode            elgrid.LoadMode
	LoadScaling         float64
	LoadWeights         elgrid.WeightPair
	LoadWeightOverrides map[string]elgrid.WeightPair

	ElectricityCarriers []string
	ExtendableCarriers  []string
	ProfileFiles        map[string]string
	LineLengthFactor    float64

	Costs elgrid.CostConfig
	Hydro elgrid.HydroConfig

	RenewableYear           int
	RenewableExpansionLimit float64
	RenewableCountries      []string
	RenewableTechnologies   map[string][]string

	ReconcileRegionsFile   string
	ReconcileMethod        elgrid.IncreaseMethod
	ReconcileReportedFiles map[string]string
}

// BuildConfigFromViper unmarshals a viper configuration for a
// model-building pass.
func BuildConfigFromViper(cfg *viper.Viper) (*BuildConfig, error) {
	overrides, err := parseWeightOverrides(GetStringMapString("Load.WeightOverrides", cfg))
	if err != nil {
		return nil, err
	}
	fillValues, err := toFloatMapE("Costs.FillValues", cfg)
	if err != nil {
		return nil, err
	}
	maxHours, err := toFloatMapE("Costs.MaxHours", cfg)
	if err != nil {
		return nil, err
	}
	marginalCost, err := toFloatMapE("Costs.MarginalCost", cfg)
	if err != nil {
		return nil, err
	}
	capitalCost, err := toFloatMapE("Costs.CapitalCost", cfg)
	if err != nil {
		return nil, err
	}

	techMapping := make(map[string][]string)
	for tech, carriers := range GetStringMapString("Renewable.TechnologyMapping", cfg) {
		for _, c := range strings.Split(carriers, ",") {
			techMapping[tech] = append(techMapping[tech], strings.TrimSpace(c))
		}
	}

	c := &BuildConfig{
		OutputDir:        os.ExpandEnv(cfg.GetString("OutputDir")),
		WeightsShapefile: os.ExpandEnv(cfg.GetString("WeightsShapefile")),

		BusFile:           os.ExpandEnv(cfg.GetString("BusFile")),
		LineFile:          os.ExpandEnv(cfg.GetString("LineFile")),
		LinkFile:          os.ExpandEnv(cfg.GetString("LinkFile")),
		CostsFile:         os.ExpandEnv(cfg.GetString("CostsFile")),
		PowerPlantsFile:   os.ExpandEnv(cfg.GetString("PowerPlantsFile")),
		DemandFile:        os.ExpandEnv(cfg.GetString("DemandFile")),
		InflowFile:        os.ExpandEnv(cfg.GetString("InflowFile")),
		HydroStatsFile:    os.ExpandEnv(cfg.GetString("HydroStatsFile")),
		CapacityStatsFile: os.ExpandEnv(cfg.GetString("CapacityStatsFile")),
		RegionsFile:       os.ExpandEnv(cfg.GetString("RegionsFile")),
		SubdivisionsFile:  os.ExpandEnv(cfg.GetString("SubdivisionsFile")),
		BusWeightsFile:    os.ExpandEnv(cfg.GetString("BusWeightsFile")),

		LoadMode:    elgrid.LoadMode(cfg.GetString("Load.Mode")),
		LoadScaling: cfg.GetFloat64("Load.Scaling"),
		LoadWeights: elgrid.WeightPair{
			GDP: cfg.GetFloat64("Load.WeightGDP"),
			Pop: cfg.GetFloat64("Load.WeightPop"),
		},
		LoadWeightOverrides: overrides,

		ElectricityCarriers: expandStringSlice(cfg.GetStringSlice("ElectricityCarriers")),
		ExtendableCarriers:  expandStringSlice(cfg.GetStringSlice("ExtendableCarriers")),
		ProfileFiles:        expandStringMap(GetStringMapString("Profiles", cfg)),
		LineLengthFactor:    cfg.GetFloat64("LineLengthFactor"),

		Costs: elgrid.CostConfig{
			Nyears:       cfg.GetFloat64("Costs.Nyears"),
			FillValues:   fillValues,
			MaxHours:     maxHours,
			MarginalCost: marginalCost,
			CapitalCost:  capitalCost,
		},
		Hydro: elgrid.HydroConfig{
			Carriers:              cfg.GetStringSlice("Hydro.Carriers"),
			MaxHours:              elgrid.MaxHoursEstimator(cfg.GetString("Hydro.MaxHoursEstimator")),
			PHSMaxHours:           cfg.GetFloat64("Hydro.PHSMaxHours"),
			FlattenDispatch:       cfg.GetBool("Hydro.FlattenDispatch"),
			FlattenDispatchBuffer: cfg.GetFloat64("Hydro.FlattenDispatchBuffer"),
		},

		RenewableYear:           cfg.GetInt("Renewable.Year"),
		RenewableExpansionLimit: cfg.GetFloat64("Renewable.ExpansionLimit"),
		RenewableCountries:      cfg.GetStringSlice("Renewable.Countries"),
		RenewableTechnologies:   techMapping,

		ReconcileRegionsFile:   os.ExpandEnv(cfg.GetString("Reconcile.Regions")),
		ReconcileMethod:        elgrid.IncreaseMethod(cfg.GetString("Reconcile.Method")),
		ReconcileReportedFiles: expandStringMap(GetStringMapString("Reconcile.ReportedFiles", cfg)),
	}

	switch c.LoadMode {
	case elgrid.LoadNational, elgrid.LoadRegional:
	default:
		return nil, fmt.Errorf("elgridutil: Load.Mode must be 'national' or 'regional' but is %q", c.LoadMode)
	}
	if !(c.LineLengthFactor > 0) {
		return nil, fmt.Errorf("elgridutil: LineLengthFactor=%g but should be >0", c.LineLengthFactor)
	}
	return c, nil
}

// parseWeightOverrides converts per-country weight overrides of the form
// "gdp,pop" into weight pairs.
func parseWeightOverrides(raw map[string]string) (map[string]elgrid.WeightPair, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	o := make(map[string]elgrid.WeightPair, len(raw))
	for country, v := range raw {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("elgridutil: Load.WeightOverrides[%s]: need 'gdp,pop' but got %q", country, v)
		}
		gdp, err := cast.ToFloat64E(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("elgridutil: Load.WeightOverrides[%s]: %v", country, err)
		}
		pop, err := cast.ToFloat64E(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("elgridutil: Load.WeightOverrides[%s]: %v", country, err)
		}
		o[country] = elgrid.WeightPair{GDP: gdp, Pop: pop}
	}
	return o, nil
}

// toFloatMapE converts a map-valued configuration variable to
// map[string]float64.
func toFloatMapE(varName string, cfg *viper.Viper) (map[string]float64, error) {
	raw := GetStringMapString(varName, cfg)
	if len(raw) == 0 {
		return nil, nil
	}
	o := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("elgridutil: parsing config variable %s[%s]: %v", varName, k, err)
		}
		o[k] = f
	}
	return o, nil
}

// expandStringMap expands the environment variables in a map of strings.
func expandStringMap(m map[string]string) map[string]string {
	for k, v := range m {
		m[k] = os.ExpandEnv(v)
	}
	return m
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}
