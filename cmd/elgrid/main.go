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

// Command elgrid is a command-line interface for the elgrid electricity
// network model builder.
package main

import (
	"fmt"
	"os"

	"github.com/powermodel/elgrid/elgridutil"
)

func main() {
	if err := elgridutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
