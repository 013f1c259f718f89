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

// Vertex data records
// ===================

/*
VertexData returns the payload stored on a given vertex.
*/
func (gs *Store) VertexData(v VertexID) []byte {
	gs.checkVertex(v)
	return gs.vertices[v].Data
}

/*
SetVertexData sets the payload stored on a given vertex. Callers must hold
the vertex lock when the store is shared.
*/
func (gs *Store) SetVertexData(v VertexID, data []byte) {
	gs.checkVertex(v)
	gs.vertices[v].Data = data
}

/*
VertexVersion returns the version of a given vertex.
*/
func (gs *Store) VertexVersion(v VertexID) uint64 {
	gs.checkVertex(v)
	return gs.vertices[v].Version
}

/*
SetVertexVersion sets the version of a given vertex. Changing the version
clears the snapshot flag.
*/
func (gs *Store) SetVertexVersion(v VertexID, version uint64) {
	gs.checkVertex(v)
	gs.vertices[v].Version = version
	gs.vertices[v].SnapshotMade = false
}

/*
IncrementVertexVersion increments the version of a given vertex and clears
the snapshot flag.
*/
func (gs *Store) IncrementVertexVersion(v VertexID) {
	gs.checkVertex(v)
	gs.vertices[v].Version++
	gs.vertices[v].SnapshotMade = false
}

/*
VertexModified returns the modified flag of a given vertex.
*/
func (gs *Store) VertexModified(v VertexID) bool {
	gs.checkVertex(v)
	return gs.vertices[v].Modified
}

/*
SetVertexModified sets the modified flag of a given vertex.
*/
func (gs *Store) SetVertexModified(v VertexID, modified bool) {
	gs.checkVertex(v)
	gs.vertices[v].Modified = modified
}

/*
VertexSnapshotMade returns the snapshot flag of a given vertex.
*/
func (gs *Store) VertexSnapshotMade(v VertexID) bool {
	gs.checkVertex(v)
	return gs.vertices[v].SnapshotMade
}

/*
SetVertexSnapshotMade sets the snapshot flag of a given vertex.
*/
func (gs *Store) SetVertexSnapshotMade(v VertexID, snapshotMade bool) {
	gs.checkVertex(v)
	gs.vertices[v].SnapshotMade = snapshotMade
}

/*
IncrementAndUpdateVertex stores a new payload on a given vertex and
increments its version. The update is atomic under the vertex lock.
*/
func (gs *Store) IncrementAndUpdateVertex(v VertexID, data []byte) {
	gs.checkVertex(v)

	gs.locks[v].Lock()
	gs.vertices[v].Data = data
	gs.vertices[v].Version++
	gs.vertices[v].SnapshotMade = false
	gs.locks[v].Unlock()
}

/*
ConditionalUpdateVertex stores a new payload and version on a given vertex
if the supplied version is not behind the local version. The update is
atomic under the vertex lock and clears the modified flag.
*/
func (gs *Store) ConditionalUpdateVertex(v VertexID, data []byte, version uint64) {
	gs.checkVertex(v)

	gs.locks[v].Lock()
	if gs.vertices[v].Version <= version {
		gs.vertices[v].Data = data
		gs.vertices[v].Version = version
		gs.vertices[v].Modified = false
		gs.vertices[v].SnapshotMade = false
	}
	gs.locks[v].Unlock()
}

/*
LockVertex acquires the lock of a given vertex.
*/
func (gs *Store) LockVertex(v VertexID) {
	gs.checkVertex(v)
	gs.locks[v].Lock()
}

/*
UnlockVertex releases the lock of a given vertex.
*/
func (gs *Store) UnlockVertex(v VertexID) {
	gs.checkVertex(v)
	gs.locks[v].Unlock()
}

// Edge data records
// =================

/*
EdgeData returns the payload stored on a given edge.
*/
func (gs *Store) EdgeData(eid EdgeID) []byte {
	gs.checkEdge(eid)
	return gs.edgedata[eid].Data
}

/*
EdgeDataPair returns the payload stored on the edge source -> target. The
edge must exist.
*/
func (gs *Store) EdgeDataPair(source VertexID, target VertexID) []byte {
	return gs.edgedata[gs.EdgeID(source, target)].Data
}

/*
SetEdgeData sets the payload stored on a given edge. Callers must hold the
lock of the edge's target vertex when the store is shared.
*/
func (gs *Store) SetEdgeData(eid EdgeID, data []byte) {
	gs.checkEdge(eid)
	gs.edgedata[eid].Data = data
}

/*
EdgeVersion returns the version of a given edge.
*/
func (gs *Store) EdgeVersion(eid EdgeID) uint64 {
	gs.checkEdge(eid)
	return gs.edgedata[eid].Version
}

/*
SetEdgeVersion sets the version of a given edge. Changing the version
clears the snapshot flag.
*/
func (gs *Store) SetEdgeVersion(eid EdgeID, version uint64) {
	gs.checkEdge(eid)
	gs.edgedata[eid].Version = version
	gs.edgedata[eid].SnapshotMade = false
}

/*
IncrementEdgeVersion increments the version of a given edge and clears the
snapshot flag.
*/
func (gs *Store) IncrementEdgeVersion(eid EdgeID) {
	gs.checkEdge(eid)
	gs.edgedata[eid].Version++
	gs.edgedata[eid].SnapshotMade = false
}

/*
EdgeModified returns the modified flag of a given edge.
*/
func (gs *Store) EdgeModified(eid EdgeID) bool {
	gs.checkEdge(eid)
	return gs.edgedata[eid].Modified
}

/*
SetEdgeModified sets the modified flag of a given edge.
*/
func (gs *Store) SetEdgeModified(eid EdgeID, modified bool) {
	gs.checkEdge(eid)
	gs.edgedata[eid].Modified = modified
}

/*
EdgeSnapshotMade returns the snapshot flag of a given edge.
*/
func (gs *Store) EdgeSnapshotMade(eid EdgeID) bool {
	gs.checkEdge(eid)
	return gs.edgedata[eid].SnapshotMade
}

/*
SetEdgeSnapshotMade sets the snapshot flag of a given edge.
*/
func (gs *Store) SetEdgeSnapshotMade(eid EdgeID, snapshotMade bool) {
	gs.checkEdge(eid)
	gs.edgedata[eid].SnapshotMade = snapshotMade
}

/*
IncrementAndUpdateEdge stores a new payload on a given edge and increments
its version. The update is atomic under the lock of the edge's target
vertex.
*/
func (gs *Store) IncrementAndUpdateEdge(eid EdgeID, data []byte) {
	gs.checkEdge(eid)

	target := gs.edges[eid].Target

	gs.locks[target].Lock()
	gs.edgedata[eid].Data = data
	gs.edgedata[eid].Version++
	gs.edgedata[eid].SnapshotMade = false
	gs.locks[target].Unlock()
}

/*
ConditionalUpdateEdge stores a new payload and version on a given edge if
the supplied version is not behind the local version. The update is atomic
under the lock of the edge's target vertex and clears the modified flag.
*/
func (gs *Store) ConditionalUpdateEdge(eid EdgeID, data []byte, version uint64) {
	gs.checkEdge(eid)

	target := gs.edges[eid].Target

	gs.locks[target].Lock()
	if gs.edgedata[eid].Version <= version {
		gs.edgedata[eid].Data = data
		gs.edgedata[eid].Version = version
		gs.edgedata[eid].Modified = false
		gs.edgedata[eid].SnapshotMade = false
	}
	gs.locks[target].Unlock()
}

/*
ZeroAll resets payload, version and flag state of every vertex and edge
record.
*/
func (gs *Store) ZeroAll() {
	for i := range gs.vertices {
		gs.vertices[i] = vertexRec{}
	}
	for i := range gs.edgedata {
		gs.edgedata[i] = edgeRec{}
	}
}
