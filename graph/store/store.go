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

import (
	"fmt"
	"sort"
	"sync"

	"devt.de/krotik/common/errorutil"
)

/*
edge is a structure record storing source and target of a single edge.
*/
type edge struct {
	Source VertexID
	Target VertexID
}

/*
less returns true if this edge is ordered before other in the lexicographic
(source, target) order.
*/
func (e edge) less(other edge) bool {
	return e.Source < other.Source ||
		(e.Source == other.Source && e.Target < other.Target)
}

/*
vertexRec is the versioned data record of a single vertex.
*/
type vertexRec struct {
	Data         []byte // Application defined payload
	Version      uint64 // Monotonically increasing logical clock
	Modified     bool   // Payload was written since Version last changed
	SnapshotMade bool   // Cleared whenever Version changes
}

/*
edgeRec is the versioned data record of a single edge.
*/
type edgeRec struct {
	Data         []byte
	Version      uint64
	Modified     bool
	SnapshotMade bool
}

/*
Store is the local storage for one machine's fragment of the graph.
*/
type Store struct {
	vertices []vertexRec  // Vertex data records
	edgedata []edgeRec    // Edge data records
	edges    []edge       // Edge structure arena
	inEdges  [][]EdgeID   // Per-vertex edge IDs arriving at the vertex
	outEdges [][]EdgeID   // Per-vertex edge IDs leaving the vertex
	vcolors  []uint32     // Vertex colors
	locks    []sync.Mutex // Per-vertex locks

	nvertices uint32
	nedges    uint32

	vertexStoreFile string // Advisory backing file hint for vertex data
	edgeStoreFile   string // Advisory backing file hint for edge data

	finalized bool
	changeid  uint64
}

/*
NewStore creates a new empty graph store.
*/
func NewStore() *Store {
	return &Store{finalized: true}
}

/*
CreateStore allocates vertex and edge records for the given counts. The two
file parameters are advisory backing file hints - they are recorded but the
store itself is purely in-memory.
*/
func (gs *Store) CreateStore(numVertices uint32, numEdges uint32,
	vertexStoreFile string, edgeStoreFile string) {

	gs.nvertices = numVertices
	gs.nedges = numEdges

	gs.vertices = make([]vertexRec, numVertices)
	gs.edgedata = make([]edgeRec, numEdges)
	gs.edges = make([]edge, numEdges)
	gs.inEdges = make([][]EdgeID, numVertices)
	gs.outEdges = make([][]EdgeID, numVertices)
	gs.vcolors = make([]uint32, numVertices)
	gs.locks = make([]sync.Mutex, numVertices)

	gs.vertexStoreFile = vertexStoreFile
	gs.edgeStoreFile = edgeStoreFile

	gs.finalized = true
	gs.changeid = 0
}

/*
Clear resets the store structure.
*/
func (gs *Store) Clear() {
	gs.edges = nil
	gs.inEdges = nil
	gs.outEdges = nil
	gs.vcolors = nil
	gs.vertices = nil
	gs.edgedata = nil
	gs.locks = nil
	gs.nvertices = 0
	gs.nedges = 0
	gs.finalized = true
	gs.changeid++
}

/*
ChangeID returns the number of times the store was cleared since it was
last created with CreateStore (which resets the count to 0).
*/
func (gs *Store) ChangeID() uint64 {
	return gs.changeid
}

/*
NumVertices returns the number of vertices in the store.
*/
func (gs *Store) NumVertices() uint32 {
	return gs.nvertices
}

/*
NumEdges returns the number of edges in the store.
*/
func (gs *Store) NumEdges() uint32 {
	return gs.nedges
}

/*
NumInNeighbors returns the number of edges arriving at a given vertex.
*/
func (gs *Store) NumInNeighbors(v VertexID) uint32 {
	gs.checkVertex(v)
	return uint32(len(gs.inEdges[v]))
}

/*
NumOutNeighbors returns the number of edges leaving a given vertex.
*/
func (gs *Store) NumOutNeighbors(v VertexID) uint32 {
	gs.checkVertex(v)
	return uint32(len(gs.outEdges[v]))
}

/*
AddEdge records an edge connecting vertex source to vertex target. May only
be called during construction. Out of range IDs and self loops are
programming errors which panic.
*/
func (gs *Store) AddEdge(eid EdgeID, source VertexID, target VertexID) {

	errorutil.AssertTrue(uint32(source) < gs.nvertices,
		fmt.Sprintf("Invalid source vertex %v - store has only %v vertices",
			source, gs.nvertices))
	errorutil.AssertTrue(uint32(target) < gs.nvertices,
		fmt.Sprintf("Invalid target vertex %v - store has only %v vertices",
			target, gs.nvertices))
	errorutil.AssertTrue(uint32(eid) < gs.nedges,
		fmt.Sprintf("Invalid edge ID %v - store has only %v edges",
			eid, gs.nedges))
	errorutil.AssertTrue(source != target,
		fmt.Sprintf("Attempt to add self loop (%v -> %v)", source, target))

	gs.edges[eid] = edge{source, target}

	gs.inEdges[target] = append(gs.inEdges[target], eid)
	gs.outEdges[source] = append(gs.outEdges[source], eid)

	gs.finalized = false
}

/*
Finalize sorts the adjacency lists of every vertex by the lexicographic
(source, target) key of the referenced edges. Finalizing enables the binary
search query path of Find. The operation is idempotent.
*/
func (gs *Store) Finalize() {

	if gs.finalized {
		return
	}

	for i := range gs.inEdges {
		gs.sortAdjacency(gs.inEdges[i])
	}
	for i := range gs.outEdges {
		gs.sortAdjacency(gs.outEdges[i])
	}

	gs.finalized = true
}

/*
IsFinalized returns whether the store has been finalized.
*/
func (gs *Store) IsFinalized() bool {
	return gs.finalized
}

/*
sortAdjacency sorts a single adjacency list by the (source, target) key of
the referenced edges.
*/
func (gs *Store) sortAdjacency(adj []EdgeID) {
	sort.Slice(adj, func(i, j int) bool {
		return gs.edges[adj[i]].less(gs.edges[adj[j]])
	})
}

/*
Find looks up the edge connecting source to target. Returns the edge ID and
true if the edge exists. The lookup searches the shorter of the target's
in-list and the source's out-list - binary search if the store is finalized,
linear scan otherwise.
*/
func (gs *Store) Find(source VertexID, target VertexID) (EdgeID, bool) {
	gs.checkVertex(source)
	gs.checkVertex(target)

	if len(gs.inEdges[target]) == 0 || len(gs.outEdges[source]) == 0 {
		return 0, false
	}

	var list []EdgeID

	if len(gs.inEdges[target]) < len(gs.outEdges[source]) {
		list = gs.inEdges[target]
	} else {
		list = gs.outEdges[source]
	}

	if gs.finalized {
		return gs.binarySearch(list, source, target)
	}

	for _, eid := range list {
		if gs.edges[eid].Source == source && gs.edges[eid].Target == target {
			return eid, true
		}
	}

	return 0, false
}

/*
EdgeID is the unchecked version of Find. Lookup of a missing edge is a
programming error which panics.
*/
func (gs *Store) EdgeID(source VertexID, target VertexID) EdgeID {
	eid, ok := gs.Find(source, target)

	errorutil.AssertTrue(ok,
		fmt.Sprintf("Edge (%v -> %v) does not exist", source, target))

	return eid
}

/*
RevEdgeID returns the ID of the edge going in the opposite direction of a
given edge. The reverse edge must exist.
*/
func (gs *Store) RevEdgeID(eid EdgeID) EdgeID {
	gs.checkEdge(eid)
	return gs.EdgeID(gs.edges[eid].Target, gs.edges[eid].Source)
}

/*
Source returns the source vertex of an edge.
*/
func (gs *Store) Source(eid EdgeID) VertexID {
	gs.checkEdge(eid)
	return gs.edges[eid].Source
}

/*
Target returns the target vertex of an edge.
*/
func (gs *Store) Target(eid EdgeID) VertexID {
	gs.checkEdge(eid)
	return gs.edges[eid].Target
}

/*
InEdgeIDs returns the IDs of the edges arriving at a given vertex. The
returned slice must not be modified by the caller.
*/
func (gs *Store) InEdgeIDs(v VertexID) []EdgeID {
	gs.checkVertex(v)
	return gs.inEdges[v]
}

/*
OutEdgeIDs returns the IDs of the edges leaving a given vertex. The
returned slice must not be modified by the caller.
*/
func (gs *Store) OutEdgeIDs(v VertexID) []EdgeID {
	gs.checkVertex(v)
	return gs.outEdges[v]
}

/*
binarySearch looks for the edge (source, target) in a sorted adjacency list.
*/
func (gs *Store) binarySearch(list []EdgeID, source VertexID,
	target VertexID) (EdgeID, bool) {

	key := edge{source, target}

	index := sort.Search(len(list), func(i int) bool {
		return !gs.edges[list[i]].less(key)
	})

	if index < len(list) && gs.edges[list[index]] == key {
		return list[index], true
	}

	return 0, false
}

/*
checkVertex panics if the given vertex ID is out of range.
*/
func (gs *Store) checkVertex(v VertexID) {
	errorutil.AssertTrue(uint32(v) < gs.nvertices,
		fmt.Sprintf("Invalid vertex ID %v - store has only %v vertices",
			v, gs.nvertices))
}

/*
checkEdge panics if the given edge ID is out of range.
*/
func (gs *Store) checkEdge(eid EdgeID) {
	errorutil.AssertTrue(uint32(eid) < gs.nedges,
		fmt.Sprintf("Invalid edge ID %v - store has only %v edges",
			eid, gs.nedges))
}
