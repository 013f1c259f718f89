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
	"devt.de/krotik/common/errorutil"
)

/*
Public accessors of the distributed graph. Every accessor follows the same
routing rule: if the requested entity is present locally and the local
replica is authoritative then the request is served from the local store;
otherwise the owner of the entity is resolved through the identifier
directory and the request is routed to the owning member. Communication
errors are fatal - there is no failover for lost peers.
*/

// Structure accessors
// ===================

/*
NumInNeighbors returns the number of edges arriving at a given vertex.
*/
func (g *Graph) NumInNeighbors(vid VertexID) uint32 {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			return g.localstore.NumInNeighbors(lv)
		}
	}

	var ret uint32

	res, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcNumInNeighbors,
		toBytes(vidRequest{vid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
NumOutNeighbors returns the number of edges leaving a given vertex.
*/
func (g *Graph) NumOutNeighbors(vid VertexID) uint32 {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			return g.localstore.NumOutNeighbors(lv)
		}
	}

	var ret uint32

	res, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcNumOutNeighbors,
		toBytes(vidRequest{vid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
Find looks up the edge connecting a given source to a given target vertex.
Returns the global edge ID and true if the edge exists.
*/
func (g *Graph) Find(source VertexID, target VertexID) (EdgeID, bool) {

	lsource, sourceLocal := g.global2localvid[source]
	ltarget, targetLocal := g.global2localvid[target]

	// If both endpoints are local the local fragment can answer

	if sourceLocal && targetLocal {
		leid, ok := g.localstore.Find(lsource, ltarget)
		if !ok {
			return 0, false
		}
		return g.local2globaleid[leid], true
	}

	// If the edge exists, the owner of the target must have it

	targetOwner := g.vidOwnerMember(target)

	if targetOwner == g.mm.Name() {

		// If this member is the owner then the edge cannot exist

		return 0, false
	}

	var ret findReply

	res, err := g.mm.SendRequest(targetOwner, rpcFind,
		toBytes(findRequest{source, target}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret.EID, ret.Found
}

/*
EdgeIDPair is the unchecked version of Find. Lookup of a missing edge is a
programming error.
*/
func (g *Graph) EdgeIDPair(source VertexID, target VertexID) EdgeID {
	eid, ok := g.Find(source, target)

	if !ok {
		panic(&Error{ErrNotLocal, "edge does not exist"})
	}

	return eid
}

/*
Source returns the source vertex of a given edge.
*/
func (g *Graph) Source(eid EdgeID) VertexID {
	if leid, ok := g.global2localeid[eid]; ok {
		return g.local2globalvid[g.localstore.Source(leid)]
	}

	g.assertGlobalNumbering()

	var ret VertexID

	res, err := g.mm.SendRequest(g.eidOwnerMember(eid), rpcSource,
		toBytes(eidRequest{eid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
Target returns the target vertex of a given edge.
*/
func (g *Graph) Target(eid EdgeID) VertexID {
	if leid, ok := g.global2localeid[eid]; ok {
		return g.local2globalvid[g.localstore.Target(leid)]
	}

	g.assertGlobalNumbering()

	var ret VertexID

	res, err := g.mm.SendRequest(g.eidOwnerMember(eid), rpcTarget,
		toBytes(eidRequest{eid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
RevEdgeID returns the ID of the edge going in the opposite direction of a
given edge. The reverse edge must exist.
*/
func (g *Graph) RevEdgeID(eid EdgeID) EdgeID {
	if leid, ok := g.global2localeid[eid]; ok {

		// The reverse of a fragment-local edge is in the fragment too

		return g.local2globaleid[g.localstore.RevEdgeID(leid)]
	}

	g.assertGlobalNumbering()

	var ret EdgeID

	res, err := g.mm.SendRequest(g.eidOwnerMember(eid), rpcRevEdgeID,
		toBytes(eidRequest{eid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
InEdgeIDs returns the global IDs of the edges arriving at a given vertex.
*/
func (g *Graph) InEdgeIDs(vid VertexID) []EdgeID {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			return g.globalEIDs(g.localstore.InEdgeIDs(lv))
		}
	}

	var ret []EdgeID

	res, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcInEdgeIDs,
		toBytes(vidRequest{vid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
OutEdgeIDs returns the global IDs of the edges leaving a given vertex.
*/
func (g *Graph) OutEdgeIDs(vid VertexID) []EdgeID {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			return g.globalEIDs(g.localstore.OutEdgeIDs(lv))
		}
	}

	var ret []EdgeID

	res, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcOutEdgeIDs,
		toBytes(vidRequest{vid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

// Data accessors
// ==============

/*
GetVertexData returns the payload of a given vertex. Ghost replicas serve
the request locally only if they were installed by a prior
synchronization; otherwise the request is routed to the owner.
*/
func (g *Graph) GetVertexData(vid VertexID) []byte {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() || g.freshGhosts.Contains(uint32(lv)) {
			return g.localstore.VertexData(lv)
		}
	}

	var ret dataReply

	res, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcGetVertexData,
		toBytes(vidRequest{vid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret.Data
}

/*
SetVertexData sets the payload of a given vertex. The write is routed to
the owner and blocks until the owner acknowledges it. A local ghost
replica becomes stale until the next synchronization.
*/
func (g *Graph) SetVertexData(vid VertexID, data []byte) {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			g.localstore.IncrementAndUpdateVertex(lv, data)
			return
		}

		g.freshGhosts.Remove(uint32(lv))
	}

	_, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcSetVertexData,
		toBytes(setVertexRequest{vid, data}))
	errorutil.AssertOk(err)
}

/*
SetVertexDataAsync sets the payload of a given vertex. The write is routed
to the owner and returns immediately without waiting for an
acknowledgment.
*/
func (g *Graph) SetVertexDataAsync(vid VertexID, data []byte) {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			g.localstore.IncrementAndUpdateVertex(lv, data)
			return
		}

		g.freshGhosts.Remove(uint32(lv))
	}

	errorutil.AssertOk(g.mm.SendOneway(g.vidOwnerMember(vid), rpcSetVertexData,
		toBytes(setVertexRequest{vid, data})))
}

/*
GetEdgeData returns the payload of the edge connecting a given source to a
given target vertex.
*/
func (g *Graph) GetEdgeData(source VertexID, target VertexID) []byte {

	lsource, sourceLocal := g.global2localvid[source]
	ltarget, targetLocal := g.global2localvid[target]

	if sourceLocal && targetLocal {

		if g.localvid2owner[ltarget] == g.mm.ProcID() {
			return g.localstore.EdgeDataPair(lsource, ltarget)
		}

		if leid, ok := g.localstore.Find(lsource, ltarget); ok &&
			g.freshEdges.Contains(uint32(leid)) {
			return g.localstore.EdgeData(leid)
		}
	}

	var ret dataReply

	res, err := g.mm.SendRequest(g.vidOwnerMember(target), rpcGetEdgeDataPair,
		toBytes(findRequest{source, target}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret.Data
}

/*
GetEdgeDataEID returns the payload of a given edge.
*/
func (g *Graph) GetEdgeDataEID(eid EdgeID) []byte {
	if leid, ok := g.global2localeid[eid]; ok {
		ltarget := g.localstore.Target(leid)

		if g.localvid2owner[ltarget] == g.mm.ProcID() ||
			g.freshEdges.Contains(uint32(leid)) {
			return g.localstore.EdgeData(leid)
		}
	}

	g.assertGlobalNumbering()

	var ret dataReply

	res, err := g.mm.SendRequest(g.eidOwnerMember(eid), rpcGetEdgeDataEID,
		toBytes(eidRequest{eid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret.Data
}

/*
SetEdgeData sets the payload of the edge connecting a given source to a
given target vertex. The write is routed to the owner and blocks until the
owner acknowledges it.
*/
func (g *Graph) SetEdgeData(source VertexID, target VertexID, data []byte) {
	g.setEdgeDataPair(source, target, data, false)
}

/*
SetEdgeDataAsync sets the payload of the edge connecting a given source to
a given target vertex without waiting for an acknowledgment.
*/
func (g *Graph) SetEdgeDataAsync(source VertexID, target VertexID, data []byte) {
	g.setEdgeDataPair(source, target, data, true)
}

/*
setEdgeDataPair routes an edge write to the owner of the edge.
*/
func (g *Graph) setEdgeDataPair(source VertexID, target VertexID, data []byte,
	async bool) {

	lsource, sourceLocal := g.global2localvid[source]
	ltarget, targetLocal := g.global2localvid[target]

	if sourceLocal && targetLocal {

		if g.localvid2owner[ltarget] == g.mm.ProcID() {

			// If this member owns the target vertex it owns the edge

			g.localstore.IncrementAndUpdateEdge(g.localstore.EdgeID(lsource, ltarget), data)
			return
		}

		if leid, ok := g.localstore.Find(lsource, ltarget); ok {
			g.freshEdges.Remove(uint32(leid))
		}
	}

	if async {
		errorutil.AssertOk(g.mm.SendOneway(g.vidOwnerMember(target), rpcSetEdgeDataPair,
			toBytes(setEdgePairRequest{source, target, data})))
		return
	}

	_, err := g.mm.SendRequest(g.vidOwnerMember(target), rpcSetEdgeDataPair,
		toBytes(setEdgePairRequest{source, target, data}))
	errorutil.AssertOk(err)
}

/*
SetEdgeDataEID sets the payload of a given edge. The write is routed to
the owner and blocks until the owner acknowledges it.
*/
func (g *Graph) SetEdgeDataEID(eid EdgeID, data []byte) {
	g.setEdgeDataEID(eid, data, false)
}

/*
SetEdgeDataEIDAsync sets the payload of a given edge without waiting for
an acknowledgment.
*/
func (g *Graph) SetEdgeDataEIDAsync(eid EdgeID, data []byte) {
	g.setEdgeDataEID(eid, data, true)
}

/*
setEdgeDataEID routes an edge write by global edge ID to the owner of the
edge.
*/
func (g *Graph) setEdgeDataEID(eid EdgeID, data []byte, async bool) {
	if leid, ok := g.global2localeid[eid]; ok {

		if g.localvid2owner[g.localstore.Target(leid)] == g.mm.ProcID() {
			g.localstore.IncrementAndUpdateEdge(leid, data)
			return
		}

		g.freshEdges.Remove(uint32(leid))
	}

	g.assertGlobalNumbering()

	if async {
		errorutil.AssertOk(g.mm.SendOneway(g.eidOwnerMember(eid), rpcSetEdgeDataEID,
			toBytes(setEdgeEIDRequest{eid, data})))
		return
	}

	_, err := g.mm.SendRequest(g.eidOwnerMember(eid), rpcSetEdgeDataEID,
		toBytes(setEdgeEIDRequest{eid, data}))
	errorutil.AssertOk(err)
}

// Coloring accessors
// ==================

/*
GetColor returns the color of a given vertex.
*/
func (g *Graph) GetColor(vid VertexID) uint32 {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			return g.localstore.Color(lv)
		}
	}

	var ret uint32

	res, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcGetColor,
		toBytes(vidRequest{vid}))
	errorutil.AssertOk(err)

	fromBytes(res, &ret)

	return ret
}

/*
SetColor sets the color of a given vertex. The write is routed to the
owner and blocks until the owner acknowledges it.
*/
func (g *Graph) SetColor(vid VertexID, color uint32) {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			g.localstore.SetColor(lv, color)
			return
		}
	}

	_, err := g.mm.SendRequest(g.vidOwnerMember(vid), rpcSetColor,
		toBytes(setColorRequest{vid, color}))
	errorutil.AssertOk(err)
}

/*
SetColorAsync sets the color of a given vertex without waiting for an
acknowledgment.
*/
func (g *Graph) SetColorAsync(vid VertexID, color uint32) {
	if lv, ok := g.global2localvid[vid]; ok {
		if g.localvid2owner[lv] == g.mm.ProcID() {
			g.localstore.SetColor(lv, color)
			return
		}
	}

	errorutil.AssertOk(g.mm.SendOneway(g.vidOwnerMember(vid), rpcSetColor,
		toBytes(setColorRequest{vid, color})))
}

// Local replica writes
// ====================

/*
UpdateLocalVertex writes the payload of the local replica of a given
vertex - owned or ghost. The write increments the replica's version and
marks it as modified so a subsequent synchronization carries it forward to
the owner.
*/
func (g *Graph) UpdateLocalVertex(vid VertexID, data []byte) {
	lv := g.localVID(vid)

	g.localstore.LockVertex(lv)
	g.localstore.SetVertexData(lv, data)
	g.localstore.IncrementVertexVersion(lv)
	g.localstore.SetVertexModified(lv, true)
	g.localstore.UnlockVertex(lv)
}

/*
UpdateLocalEdge writes the payload of the local replica of the edge
connecting a given source to a given target vertex. The write increments
the replica's version and marks it as modified so a subsequent
synchronization carries it forward to the owner.
*/
func (g *Graph) UpdateLocalEdge(source VertexID, target VertexID, data []byte) {
	lsource := g.localVID(source)
	ltarget := g.localVID(target)

	leid := g.localstore.EdgeID(lsource, ltarget)

	g.localstore.LockVertex(ltarget)
	g.localstore.SetEdgeData(leid, data)
	g.localstore.IncrementEdgeVersion(leid)
	g.localstore.SetEdgeModified(leid, true)
	g.localstore.UnlockVertex(ltarget)
}

// Helper functions
// ================

/*
globalEIDs maps a list of local edge IDs to global edge IDs.
*/
func (g *Graph) globalEIDs(leids []EdgeID) []EdgeID {
	ret := make([]EdgeID, len(leids))

	for i, leid := range leids {
		ret[i] = g.local2globaleid[leid]
	}

	return ret
}
