/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package store

import "sort"

/*
Color returns the color of a given vertex. Only valid after a coloring was
loaded or computed via ComputeColoring.
*/
func (gs *Store) Color(v VertexID) uint32 {
	gs.checkVertex(v)
	return gs.vcolors[v]
}

/*
SetColor sets the color of a given vertex.
*/
func (gs *Store) SetColor(v VertexID, color uint32) {
	gs.checkVertex(v)
	gs.vcolors[v] = color
}

/*
ComputeColoring constructs a heuristic coloring for the graph and returns
the number of colors used. Vertices are processed in order of decreasing
in-degree and each vertex receives the lowest color not used by any of its
in- or out-neighbors.
*/
func (gs *Store) ComputeColoring() uint32 {

	for v := range gs.vcolors {
		gs.vcolors[v] = 0
	}

	// Process high in-degree vertices first

	permutation := make([]VertexID, gs.nvertices)
	for v := range permutation {
		permutation[v] = VertexID(v)
	}

	sort.SliceStable(permutation, func(i, j int) bool {
		return len(gs.inEdges[permutation[i]]) > len(gs.inEdges[permutation[j]])
	})

	var maxColor uint32

	for _, vid := range permutation {

		// Neighbors in both directions constrain the color

		neighborColors := make(map[uint32]bool)

		for _, eid := range gs.inEdges[vid] {
			neighborColors[gs.vcolors[gs.edges[eid].Source]] = true
		}
		for _, eid := range gs.outEdges[vid] {
			neighborColors[gs.vcolors[gs.edges[eid].Target]] = true
		}

		// Find the lowest free color

		var vertexColor uint32
		for neighborColors[vertexColor] {
			vertexColor++
		}

		gs.vcolors[vid] = vertexColor

		if vertexColor > maxColor {
			maxColor = vertexColor
		}
	}

	return maxColor + 1
}

/*
ValidColoring checks that the stored colors satisfy a valid coloring of the
graph - i.e. no edge connects two vertices of the same color.
*/
func (gs *Store) ValidColoring() bool {

	for v := uint32(0); v < gs.nvertices; v++ {
		vertexColor := gs.vcolors[v]

		for _, eid := range gs.inEdges[v] {
			if gs.vcolors[gs.edges[eid].Source] == vertexColor {
				return false
			}
		}
		for _, eid := range gs.outEdges[v] {
			if gs.vcolors[gs.edges[eid].Target] == vertexColor {
				return false
			}
		}
	}

	return true
}
