/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"bytes"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"devt.de/krotik/gravel/cluster"
	"devt.de/krotik/gravel/graph/store"
)

/*
edgeNumbering is the numbering mode of edge identifiers in a fragment.
*/
type edgeNumbering int

/*
Edge numbering modes. With canonical numbering edge identifiers are only
locally valid - any operation which requires a globally valid edge ID is a
programming error in this mode.
*/
const (
	numberingGlobal edgeNumbering = iota
	numberingCanonical
)

/*
Graph is the distributed graph fragment of a cluster member.
*/
type Graph struct {
	mm *cluster.MemberManager // Cluster member this fragment runs on

	vidOwners *cluster.Directory // Directory mapping global vertex IDs to owners
	eidOwners *cluster.Directory // Directory mapping global edge IDs to owners

	localstore *store.Store // Local storage of the fragment

	global2localvid map[VertexID]VertexID // Mappings between global and local IDs -
	local2globalvid []VertexID            // entries exist only for entities in the
	global2localeid map[EdgeID]EdgeID     // local fragment
	local2globaleid []EdgeID

	localvid2owner []ProcID // Owner of every local vertex

	ghosts      *roaring.Bitmap // Local vertex IDs not owned by this member
	freshGhosts *roaring.Bitmap // Ghost vertices whose replica was installed by a synchronization
	freshEdges  *roaring.Bitmap // Ghost edges whose replica was installed by a synchronization

	numbering edgeNumbering

	numGlobalVerts uint32 // Total number of vertices in the distributed graph
	numGlobalEdges uint32 // Total number of edges in the distributed graph

	pendingAsyncUpdates int64 // Counter of outstanding asynchronous synchronizations
}

/*
NewGraph creates a new empty graph fragment for a given cluster member.
The fragment registers its rpc handlers with the member - this must happen
on every member before any fragment is constructed.
*/
func NewGraph(mm *cluster.MemberManager) *Graph {

	g := &Graph{
		mm:              mm,
		vidOwners:       cluster.NewDirectory(mm, "vid"),
		eidOwners:       cluster.NewDirectory(mm, "eid"),
		localstore:      store.NewStore(),
		global2localvid: make(map[VertexID]VertexID),
		global2localeid: make(map[EdgeID]EdgeID),
		ghosts:          roaring.New(),
		freshGhosts:     roaring.New(),
		freshEdges:      roaring.New(),
	}

	g.registerHandlers()

	return g
}

/*
Name returns the name of the cluster member this fragment runs on.
*/
func (g *Graph) Name() string {
	return g.mm.Name()
}

/*
ProcID returns the numeric member ID of this fragment's member.
*/
func (g *Graph) ProcID() ProcID {
	return g.mm.ProcID()
}

/*
LocalStore returns the local store of this fragment. Direct store access
bypasses the distribution layer - callers must only touch local entities.
*/
func (g *Graph) LocalStore() *store.Store {
	return g.localstore
}

/*
NumVertices returns the number of vertices in the distributed graph.
*/
func (g *Graph) NumVertices() uint32 {
	return g.numGlobalVerts
}

/*
NumEdges returns the number of edges in the distributed graph.
*/
func (g *Graph) NumEdges() uint32 {
	return g.numGlobalEdges
}

/*
NumLocalVertices returns the number of vertices in the local fragment
(partition plus boundary).
*/
func (g *Graph) NumLocalVertices() uint32 {
	return g.localstore.NumVertices()
}

/*
NumLocalEdges returns the number of edges in the local fragment.
*/
func (g *Graph) NumLocalEdges() uint32 {
	return g.localstore.NumEdges()
}

/*
NumGhosts returns the number of ghost vertices in the local fragment.
*/
func (g *Graph) NumGhosts() uint64 {
	return g.ghosts.GetCardinality()
}

/*
VertexIsLocal returns whether a given vertex is in the local fragment.
*/
func (g *Graph) VertexIsLocal(vid VertexID) bool {
	_, ok := g.global2localvid[vid]
	return ok
}

/*
EdgeIsLocal returns whether a given edge is in the local fragment.
*/
func (g *Graph) EdgeIsLocal(eid EdgeID) bool {
	_, ok := g.global2localeid[eid]
	return ok
}

/*
IsGhost returns whether a given vertex of the local fragment is a ghost -
i.e. its authoritative copy lives on another member. The vertex must be in
the local fragment.
*/
func (g *Graph) IsGhost(vid VertexID) bool {
	return g.localvid2owner[g.localVID(vid)] != g.mm.ProcID()
}

/*
Owner returns the owning member of a given vertex of the local fragment.
*/
func (g *Graph) Owner(vid VertexID) ProcID {
	return g.localvid2owner[g.localVID(vid)]
}

/*
EdgeCanonicalNumbering returns whether the fragment uses canonical edge
numbering.
*/
func (g *Graph) EdgeCanonicalNumbering() bool {
	return g.numbering == numberingCanonical
}

/*
Print writes the adjacency structure of the local fragment in global IDs
as text in "source, target" per line format.
*/
func (g *Graph) Print(out io.Writer) {
	for i := uint32(0); i < g.localstore.NumEdges(); i++ {
		fmt.Fprintf(out, "%v, %v\n",
			g.local2globalvid[g.localstore.Source(EdgeID(i))],
			g.local2globalvid[g.localstore.Target(EdgeID(i))])
	}
}

/*
String returns the adjacency structure of the local fragment as a string.
*/
func (g *Graph) String() string {
	var bb bytes.Buffer
	g.Print(&bb)
	return bb.String()
}

// Helper functions
// ================

/*
localVID maps a global vertex ID to its local ID. Lookup of a vertex which
is not in the local fragment is a programming error.
*/
func (g *Graph) localVID(vid VertexID) VertexID {
	localvid, ok := g.global2localvid[vid]

	if !ok {
		panic(&Error{ErrNotLocal, fmt.Sprint("vertex ", vid)})
	}

	return localvid
}

/*
localEID maps a global edge ID to its local ID. Lookup of an edge which is
not in the local fragment is a programming error.
*/
func (g *Graph) localEID(eid EdgeID) EdgeID {
	localeid, ok := g.global2localeid[eid]

	if !ok {
		panic(&Error{ErrNotLocal, fmt.Sprint("edge ", eid)})
	}

	return localeid
}

/*
vidOwnerMember resolves the owning member name of a given global vertex ID
via the vertex directory.
*/
func (g *Graph) vidOwnerMember(vid VertexID) string {
	owner, ok := g.vidOwners.GetCached(uint32(vid))

	if !ok {
		panic(&Error{ErrUnknownOwner, fmt.Sprint("vertex ", vid)})
	}

	return g.mm.MemberOfProcID(owner)
}

/*
eidOwnerMember resolves the owning member name of a given global edge ID
via the edge directory.
*/
func (g *Graph) eidOwnerMember(eid EdgeID) string {
	owner, ok := g.eidOwners.GetCached(uint32(eid))

	if !ok {
		panic(&Error{ErrUnknownOwner, fmt.Sprint("edge ", eid)})
	}

	return g.mm.MemberOfProcID(owner)
}

/*
assertGlobalNumbering panics if the fragment uses canonical edge numbering.
Remote edge operations by edge ID are impossible in this mode.
*/
func (g *Graph) assertGlobalNumbering() {
	if g.numbering == numberingCanonical {
		panic(&Error{ErrCanonicalEdges, ""})
	}
}
