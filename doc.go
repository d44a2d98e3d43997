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

// Package elgrid builds an electricity-sector network model by attaching
// generation, storage, load, and transmission-cost data to a pre-built
// bus/line topology. It is one stage of a scenario-generation pipeline:
// upstream stages produce the topology, renewable capacity-factor profiles,
// cost tables, and power-plant inventories, and this stage fuses them into
// one consistent network ready for optimization.
//
// The computation is a deterministic batch run per scenario: country- and
// region-level demand is disaggregated onto substation buses by GDP and
// population (spread between buses by fractional polygon overlap with
// statistical subdivisions), national hydro inflow is split across plants,
// missing reservoir storage durations are estimated from national
// statistics, and modeled capacities are reconciled against externally
// reported totals.
package elgrid

// Version gives the version number.
const Version = "0.3.1"
