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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
)

type transferShape struct {
	geom.Polygonal
	col int
}

// ShapeTransfer computes the fractional area-overlap matrix between two
// polygon sets: entry (i,j) is the area of the intersection between src[j]
// and dst[i], divided by the area of dst[i]. Every entry is in [0,1] and
// row sums are at most 1 (less when dst[i] extends beyond the union of src).
// The matrix can be used to transfer any areally distributed quantity
// (population, GDP) from the source zones to the destination zones.
//
// Candidate pairs are filtered through a spatial index of src before any
// exact intersection is computed, so widely separated polygons are skipped
// cheaply. A destination polygon with zero area is an error.
func ShapeTransfer(src, dst []geom.Polygonal) (*sparse.SparseArray, error) {
	index := rtree.NewTree(25, 50)
	for j, s := range src {
		index.Insert(&transferShape{Polygonal: s, col: j})
	}

	transfer := sparse.ZerosSparse(len(dst), len(src))
	for i, d := range dst {
		area := d.Area()
		if area == 0 {
			return nil, fmt.Errorf("elgrid: destination polygon %d has zero area", i)
		}
		for _, sI := range index.SearchIntersect(d.Bounds()) {
			s := sI.(*transferShape)
			isect := s.Intersection(d)
			if a := isect.Area(); a > 0 {
				transfer.Set(a/area, i, s.col)
			}
		}
	}
	return transfer, nil
}
