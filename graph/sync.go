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
	"fmt"
	"runtime"
	"sync/atomic"

	"devt.de/krotik/common/errorutil"
)

/*
Ghost synchronization protocol.

Ghost replicas are reconciled with their authoritative owners through a
versioned pull: the ghost sends its current version (and its payload if the
replica was modified locally) to the owner. The owner compares versions -
if the owner is ahead it returns its payload and version, if the ghost is
ahead the owner adopts the ghost's payload (the ghost's writes win
forward), if both are at the same version nothing is exchanged.

All synchronization forms exist synchronously (blocking request/reply) and
asynchronously (one-way request answered by a one-way reply, gated by a
pending counter). Batched forms pack many vertex and edge requests into a
single message per owner.
*/

/*
vertexConditionalStore carries an optional vertex payload with its version.
*/
type vertexConditionalStore struct {
	HasData bool
	Data    []byte
	Version uint64
}

/*
edgeConditionalStore carries an optional edge payload with its version.
*/
type edgeConditionalStore struct {
	HasData bool
	Data    []byte
	Version uint64
}

/*
syncVertexRequest asks the owner of a vertex for a newer payload.
*/
type syncVertexRequest struct {
	VID     VertexID
	Version uint64
	Store   vertexConditionalStore
}

/*
syncEdgeRequest asks the owner of an edge for a newer payload.
*/
type syncEdgeRequest struct {
	EID     EdgeID
	Version uint64
	Store   edgeConditionalStore
}

/*
syncEdgePairRequest asks the owner of an edge - addressed by its source
and target vertex - for a newer payload.
*/
type syncEdgePairRequest struct {
	Source  VertexID
	Target  VertexID
	Version uint64
	Store   edgeConditionalStore
}

/*
replyVertexRequest is the one-way reply of an asynchronous vertex
synchronization.
*/
type replyVertexRequest struct {
	VID   VertexID
	Store vertexConditionalStore
}

/*
replyEdgeRequest is the one-way reply of an asynchronous edge
synchronization.
*/
type replyEdgeRequest struct {
	EID   EdgeID
	Store edgeConditionalStore
}

/*
replyEdgePairRequest is the one-way reply of an asynchronous edge
synchronization addressed by source and target vertex.
*/
type replyEdgePairRequest struct {
	Source VertexID
	Target VertexID
	Store  edgeConditionalStore
}

/*
blockSynchronizeRequest packs many vertex and edge synchronization
requests - edges addressed by global edge ID - into one message. The owner
returns the same message shape with the conditional stores filled in and
the version arrays cleared.
*/
type blockSynchronizeRequest struct {
	VID         []VertexID
	VIDVersion  []uint64
	VStore      []vertexConditionalStore
	EID         []EdgeID
	EdgeVersion []uint64
	EStore      []edgeConditionalStore
}

/*
blockSynchronizeRequest2 packs many vertex and edge synchronization
requests - edges addressed by source / target pairs - into one message.
This form works under canonical edge numbering.
*/
type blockSynchronizeRequest2 struct {
	VID         []VertexID
	VIDVersion  []uint64
	VStore      []vertexConditionalStore
	SrcDest     []vertexPair
	EdgeVersion []uint64
	EStore      []edgeConditionalStore
}

// Owner-side primitives
// =====================

/*
getVertexIfVersionLessThan runs on the owner of a vertex. If the owner's
version is ahead of the given ghost version the owner's payload and
version are returned. If the owner is behind, the ghost's payload wins
forward - the owner adopts it and returns nothing. At equal versions
nothing is exchanged.
*/
func (g *Graph) getVertexIfVersionLessThan(vid VertexID, vertexVersion uint64,
	vdata vertexConditionalStore) vertexConditionalStore {

	var ret vertexConditionalStore

	localvid := g.localVID(vid)

	g.localstore.LockVertex(localvid)

	localVertexVersion := g.localstore.VertexVersion(localvid)

	if localVertexVersion > vertexVersion {
		ret.HasData = true
		ret.Data = g.localstore.VertexData(localvid)
		ret.Version = localVertexVersion

	} else if localVertexVersion < vertexVersion {

		errorutil.AssertTrue(vdata.HasData,
			fmt.Sprintf("Ghost of vertex %v is ahead (%v > %v) but carries no data",
				vid, vertexVersion, localVertexVersion))

		g.localstore.SetVertexData(localvid, vdata.Data)
		g.localstore.SetVertexVersion(localvid, vertexVersion)
	}

	g.localstore.UnlockVertex(localvid)

	return ret
}

/*
getEdgeIfVersionLessThan is the edge equivalent of
getVertexIfVersionLessThan, addressed by global edge ID. Not available
under canonical edge numbering.
*/
func (g *Graph) getEdgeIfVersionLessThan(eid EdgeID, edgeVersion uint64,
	edata edgeConditionalStore) edgeConditionalStore {

	g.assertGlobalNumbering()

	return g.edgeVersionCompare(g.localEID(eid), eid, edgeVersion, edata)
}

/*
getEdgeIfVersionLessThan2 is the edge equivalent of
getVertexIfVersionLessThan, addressed by source and target vertex.
*/
func (g *Graph) getEdgeIfVersionLessThan2(source VertexID, target VertexID,
	edgeVersion uint64, edata edgeConditionalStore) edgeConditionalStore {

	localsource := g.localVID(source)
	localtarget := g.localVID(target)

	localeid, ok := g.localstore.Find(localsource, localtarget)

	errorutil.AssertTrue(ok,
		fmt.Sprintf("Edge (%v -> %v) does not exist on its owner", source, target))

	return g.edgeVersionCompare(localeid, 0, edgeVersion, edata)
}

/*
edgeVersionCompare applies the version comparison rule to a local edge.
*/
func (g *Graph) edgeVersionCompare(localeid EdgeID, eid EdgeID, edgeVersion uint64,
	edata edgeConditionalStore) edgeConditionalStore {

	var ret edgeConditionalStore

	localtarget := g.localstore.Target(localeid)

	g.localstore.LockVertex(localtarget)

	localEdgeVersion := g.localstore.EdgeVersion(localeid)

	if localEdgeVersion > edgeVersion {
		ret.HasData = true
		ret.Data = g.localstore.EdgeData(localeid)
		ret.Version = localEdgeVersion

	} else if localEdgeVersion < edgeVersion {

		errorutil.AssertTrue(edata.HasData,
			fmt.Sprintf("Ghost of edge %v is ahead (%v > %v) but carries no data",
				eid, edgeVersion, localEdgeVersion))

		g.localstore.SetEdgeData(localeid, edata.Data)
		g.localstore.SetEdgeVersion(localeid, edgeVersion)
	}

	g.localstore.UnlockVertex(localtarget)

	return ret
}

// Caller-side single entity forms
// ===============================

/*
SynchronizeVertex reconciles the local ghost replica of a given vertex
with its owner. The call blocks until the reconciliation is complete. A
no-op if the vertex is not a ghost.
*/
func (g *Graph) SynchronizeVertex(vid VertexID) {
	localvid := g.localVID(vid)

	if g.localvid2owner[localvid] == g.mm.ProcID() {
		return
	}

	req := syncVertexRequest{vid, g.localstore.VertexVersion(localvid),
		g.vertexOutStore(localvid)}

	res, err := g.mm.SendRequest(g.ownerMemberOfLocalVID(localvid), rpcSyncVertex,
		toBytes(req))
	errorutil.AssertOk(err)

	var vstore vertexConditionalStore
	fromBytes(res, &vstore)

	g.updateVertexDataAndVersion(vid, vstore)
}

/*
SynchronizeVertexAsync reconciles the local ghost replica of a given
vertex with its owner. The call returns immediately - completion is
tracked by the pending counter (see WaitForAllAsyncSyncs).
*/
func (g *Graph) SynchronizeVertexAsync(vid VertexID) {
	localvid := g.localVID(vid)

	if g.localvid2owner[localvid] == g.mm.ProcID() {
		return
	}

	req := syncVertexRequest{vid, g.localstore.VertexVersion(localvid),
		g.vertexOutStore(localvid)}

	atomic.AddInt64(&g.pendingAsyncUpdates, 1)

	errorutil.AssertOk(g.mm.SendOneway(g.ownerMemberOfLocalVID(localvid),
		rpcAsyncSyncVertex, toBytes(req)))
}

/*
SynchronizeEdge reconciles the local ghost replica of a given edge with
its owner. The call blocks until the reconciliation is complete. A no-op
if the edge is owned by this member.
*/
func (g *Graph) SynchronizeEdge(eid EdgeID) {
	g.synchronizeEdge(eid, false)
}

/*
SynchronizeEdgeAsync reconciles the local ghost replica of a given edge
with its owner without blocking.
*/
func (g *Graph) SynchronizeEdgeAsync(eid EdgeID) {
	g.synchronizeEdge(eid, true)
}

/*
synchronizeEdge issues a single edge synchronization. Under canonical edge
numbering the edge is addressed by its source and target vertex -
otherwise by its global edge ID.
*/
func (g *Graph) synchronizeEdge(eid EdgeID, async bool) {
	localeid := g.localEID(eid)
	localtarget := g.localstore.Target(localeid)

	if g.localvid2owner[localtarget] == g.mm.ProcID() {
		return
	}

	owner := g.ownerMemberOfLocalVID(localtarget)
	version := g.localstore.EdgeVersion(localeid)
	out := g.edgeOutStore(localeid)

	if g.numbering == numberingGlobal {

		req := toBytes(syncEdgeRequest{eid, version, out})

		if async {
			atomic.AddInt64(&g.pendingAsyncUpdates, 1)
			errorutil.AssertOk(g.mm.SendOneway(owner, rpcAsyncSyncEdge, req))
			return
		}

		res, err := g.mm.SendRequest(owner, rpcSyncEdge, req)
		errorutil.AssertOk(err)

		var estore edgeConditionalStore
		fromBytes(res, &estore)

		g.updateEdgeDataAndVersion(eid, estore)

		return
	}

	// Canonical numbering - address the edge by its endpoints

	source := g.local2globalvid[g.localstore.Source(localeid)]
	target := g.local2globalvid[localtarget]

	req := toBytes(syncEdgePairRequest{source, target, version, out})

	if async {
		atomic.AddInt64(&g.pendingAsyncUpdates, 1)
		errorutil.AssertOk(g.mm.SendOneway(owner, rpcAsyncSyncEdgePair, req))
		return
	}

	res, err := g.mm.SendRequest(owner, rpcSyncEdgePair, req)
	errorutil.AssertOk(err)

	var estore edgeConditionalStore
	fromBytes(res, &estore)

	g.updateEdgeDataAndVersion2(source, target, estore)
}

// Scope synchronization
// =====================

/*
SynchronizeScope reconciles every ghost vertex and ghost edge incident to
a given vertex with their owners. All requests for the same owner are
packed into a single batched message - the call issues at most one request
per remote owner and blocks until all replies are merged.
*/
func (g *Graph) SynchronizeScope(vid VertexID) {
	g.synchronizeScope(vid, false)
}

/*
AsyncSynchronizeScope reconciles the scope of a given vertex without
blocking. Completion is tracked by the pending counter.
*/
func (g *Graph) AsyncSynchronizeScope(vid VertexID) {
	g.synchronizeScope(vid, true)
}

/*
synchronizeScope groups all ghost entities of a vertex scope by owner and
issues one batched request per remote owner.
*/
func (g *Graph) synchronizeScope(vid VertexID, async bool) {
	localvid := g.localVID(vid)

	if g.numbering == numberingGlobal {

		requests := make(map[ProcID]*blockSynchronizeRequest)

		batch := func(owner ProcID) *blockSynchronizeRequest {
			req, ok := requests[owner]
			if !ok {
				req = &blockSynchronizeRequest{}
				requests[owner] = req
			}
			return req
		}

		g.collectScope(localvid,
			func(owner ProcID, lv VertexID) {
				req := batch(owner)
				req.VID = append(req.VID, g.local2globalvid[lv])
				req.VIDVersion = append(req.VIDVersion, g.localstore.VertexVersion(lv))
				req.VStore = append(req.VStore, g.vertexOutStore(lv))
			},
			func(owner ProcID, leid EdgeID) {
				req := batch(owner)
				req.EID = append(req.EID, g.local2globaleid[leid])
				req.EdgeVersion = append(req.EdgeVersion, g.localstore.EdgeVersion(leid))
				req.EStore = append(req.EStore, g.edgeOutStore(leid))
			})

		for owner, req := range requests {
			member := g.mm.MemberOfProcID(owner)

			if async {
				atomic.AddInt64(&g.pendingAsyncUpdates, 1)
				errorutil.AssertOk(g.mm.SendOneway(member, rpcAsyncGetAlot, toBytes(*req)))
				continue
			}

			res, err := g.mm.SendRequest(member, rpcGetAlot, toBytes(*req))
			errorutil.AssertOk(err)

			var reply blockSynchronizeRequest
			fromBytes(res, &reply)

			g.mergeAlot(&reply)
		}

		return
	}

	// Canonical numbering - edges are addressed by their endpoints

	requests := make(map[ProcID]*blockSynchronizeRequest2)

	batch := func(owner ProcID) *blockSynchronizeRequest2 {
		req, ok := requests[owner]
		if !ok {
			req = &blockSynchronizeRequest2{}
			requests[owner] = req
		}
		return req
	}

	g.collectScope(localvid,
		func(owner ProcID, lv VertexID) {
			req := batch(owner)
			req.VID = append(req.VID, g.local2globalvid[lv])
			req.VIDVersion = append(req.VIDVersion, g.localstore.VertexVersion(lv))
			req.VStore = append(req.VStore, g.vertexOutStore(lv))
		},
		func(owner ProcID, leid EdgeID) {
			req := batch(owner)
			req.SrcDest = append(req.SrcDest, vertexPair{
				g.local2globalvid[g.localstore.Source(leid)],
				g.local2globalvid[g.localstore.Target(leid)]})
			req.EdgeVersion = append(req.EdgeVersion, g.localstore.EdgeVersion(leid))
			req.EStore = append(req.EStore, g.edgeOutStore(leid))
		})

	for owner, req := range requests {
		member := g.mm.MemberOfProcID(owner)

		if async {
			atomic.AddInt64(&g.pendingAsyncUpdates, 1)
			errorutil.AssertOk(g.mm.SendOneway(member, rpcAsyncGetAlot2, toBytes(*req)))
			continue
		}

		res, err := g.mm.SendRequest(member, rpcGetAlot2, toBytes(*req))
		errorutil.AssertOk(err)

		var reply blockSynchronizeRequest2
		fromBytes(res, &reply)

		g.mergeAlot2(&reply)
	}
}

/*
collectScope walks the scope of a local vertex - the vertex itself, all
neighbor vertices and all incident edges - and reports every ghost entity
together with its owner. Vertices are reported once even if they are
reachable through multiple edges.
*/
func (g *Graph) collectScope(localvid VertexID,
	ghostVertex func(owner ProcID, lv VertexID),
	ghostEdge func(owner ProcID, leid EdgeID)) {

	self := g.mm.ProcID()
	seen := make(map[VertexID]bool)

	vertex := func(lv VertexID) {
		if seen[lv] {
			return
		}
		seen[lv] = true

		if owner := g.localvid2owner[lv]; owner != self {
			ghostVertex(owner, lv)
		}
	}

	vertex(localvid)

	for _, leid := range g.localstore.InEdgeIDs(localvid) {
		vertex(g.localstore.Source(leid))

		// In-edges are owned by the owner of the scope vertex itself

		if owner := g.localvid2owner[localvid]; owner != self {
			ghostEdge(owner, leid)
		}
	}

	for _, leid := range g.localstore.OutEdgeIDs(localvid) {
		localtarget := g.localstore.Target(leid)

		vertex(localtarget)

		if owner := g.localvid2owner[localtarget]; owner != self {
			ghostEdge(owner, leid)
		}
	}
}

// Batched owner-side forms
// ========================

/*
getAlot runs every packed request of a batched synchronization through the
version comparison primitives. The request object is reused as the reply -
the version arrays are cleared since the conditional stores carry the
authoritative versions back.
*/
func (g *Graph) getAlot(request *blockSynchronizeRequest) *blockSynchronizeRequest {
	for i := range request.VID {
		request.VStore[i] = g.getVertexIfVersionLessThan(request.VID[i],
			request.VIDVersion[i], request.VStore[i])
	}
	for i := range request.EID {
		request.EStore[i] = g.getEdgeIfVersionLessThan(request.EID[i],
			request.EdgeVersion[i], request.EStore[i])
	}

	request.VIDVersion = nil
	request.EdgeVersion = nil

	return request
}

/*
getAlot2 is the canonical numbering equivalent of getAlot.
*/
func (g *Graph) getAlot2(request *blockSynchronizeRequest2) *blockSynchronizeRequest2 {
	for i := range request.VID {
		request.VStore[i] = g.getVertexIfVersionLessThan(request.VID[i],
			request.VIDVersion[i], request.VStore[i])
	}
	for i := range request.SrcDest {
		request.EStore[i] = g.getEdgeIfVersionLessThan2(request.SrcDest[i].Source,
			request.SrcDest[i].Target, request.EdgeVersion[i], request.EStore[i])
	}

	request.VIDVersion = nil
	request.EdgeVersion = nil

	return request
}

// Reply merging
// =============

/*
updateVertexDataAndVersion installs an owner payload on the local ghost
replica of a vertex.
*/
func (g *Graph) updateVertexDataAndVersion(vid VertexID, vstore vertexConditionalStore) {
	if vstore.HasData {
		localvid := g.localVID(vid)

		g.localstore.ConditionalUpdateVertex(localvid, vstore.Data, vstore.Version)
		g.freshGhosts.Add(uint32(localvid))
	}
}

/*
updateEdgeDataAndVersion installs an owner payload on the local ghost
replica of an edge.
*/
func (g *Graph) updateEdgeDataAndVersion(eid EdgeID, estore edgeConditionalStore) {
	if estore.HasData {
		localeid := g.localEID(eid)

		g.localstore.ConditionalUpdateEdge(localeid, estore.Data, estore.Version)
		g.freshEdges.Add(uint32(localeid))
	}
}

/*
updateEdgeDataAndVersion2 installs an owner payload on the local ghost
replica of an edge addressed by its endpoints.
*/
func (g *Graph) updateEdgeDataAndVersion2(source VertexID, target VertexID,
	estore edgeConditionalStore) {

	if estore.HasData {
		localsource := g.localVID(source)
		localtarget := g.localVID(target)

		localeid, ok := g.localstore.Find(localsource, localtarget)

		errorutil.AssertTrue(ok,
			fmt.Sprintf("Edge (%v -> %v) of synchronization reply does not exist locally",
				source, target))

		g.localstore.ConditionalUpdateEdge(localeid, estore.Data, estore.Version)
		g.freshEdges.Add(uint32(localeid))
	}
}

/*
mergeAlot merges a batched synchronization reply into the local replicas.
*/
func (g *Graph) mergeAlot(reply *blockSynchronizeRequest) {
	for i := range reply.VID {
		g.updateVertexDataAndVersion(reply.VID[i], reply.VStore[i])
	}
	for i := range reply.EID {
		g.updateEdgeDataAndVersion(reply.EID[i], reply.EStore[i])
	}
}

/*
mergeAlot2 merges a batched synchronization reply addressed by endpoints
into the local replicas.
*/
func (g *Graph) mergeAlot2(reply *blockSynchronizeRequest2) {
	for i := range reply.VID {
		g.updateVertexDataAndVersion(reply.VID[i], reply.VStore[i])
	}
	for i := range reply.SrcDest {
		g.updateEdgeDataAndVersion2(reply.SrcDest[i].Source, reply.SrcDest[i].Target,
			reply.EStore[i])
	}
}

// Pending counter
// ===============

/*
WaitForAllAsyncSyncs waits for all asynchronous data synchronizations to
complete. The wait spins yielding the CPU until the pending counter
reaches zero.
*/
func (g *Graph) WaitForAllAsyncSyncs() {
	for atomic.LoadInt64(&g.pendingAsyncUpdates) != 0 {
		runtime.Gosched()
	}
}

/*
PendingAsyncUpdates returns the number of outstanding asynchronous
synchronizations.
*/
func (g *Graph) PendingAsyncUpdates() int64 {
	return atomic.LoadInt64(&g.pendingAsyncUpdates)
}

// Helper functions
// ================

/*
vertexOutStore builds the conditional store which a ghost sends to the
owner - the payload is included only if the replica was modified locally.
*/
func (g *Graph) vertexOutStore(localvid VertexID) vertexConditionalStore {
	var out vertexConditionalStore

	if out.HasData = g.localstore.VertexModified(localvid); out.HasData {
		out.Data = g.localstore.VertexData(localvid)
		out.Version = g.localstore.VertexVersion(localvid)
	}

	return out
}

/*
edgeOutStore builds the conditional store which a ghost edge sends to the
owner.
*/
func (g *Graph) edgeOutStore(localeid EdgeID) edgeConditionalStore {
	var out edgeConditionalStore

	if out.HasData = g.localstore.EdgeModified(localeid); out.HasData {
		out.Data = g.localstore.EdgeData(localeid)
		out.Version = g.localstore.EdgeVersion(localeid)
	}

	return out
}

/*
ownerMemberOfLocalVID returns the member name of the owner of a local
vertex.
*/
func (g *Graph) ownerMemberOfLocalVID(localvid VertexID) string {
	return g.mm.MemberOfProcID(g.localvid2owner[localvid])
}

/*
registerSyncHandlers registers the remote functions of the ghost
synchronization protocol.
*/
func (g *Graph) registerSyncHandlers() {

	g.mm.RegisterHandler(rpcSyncVertex, func(source string, args []byte) ([]byte, error) {
		var req syncVertexRequest
		fromBytes(args, &req)
		return toBytes(g.getVertexIfVersionLessThan(req.VID, req.Version, req.Store)), nil
	})

	g.mm.RegisterHandler(rpcSyncEdge, func(source string, args []byte) ([]byte, error) {
		var req syncEdgeRequest
		fromBytes(args, &req)
		return toBytes(g.getEdgeIfVersionLessThan(req.EID, req.Version, req.Store)), nil
	})

	g.mm.RegisterHandler(rpcSyncEdgePair, func(source string, args []byte) ([]byte, error) {
		var req syncEdgePairRequest
		fromBytes(args, &req)
		return toBytes(g.getEdgeIfVersionLessThan2(req.Source, req.Target,
			req.Version, req.Store)), nil
	})

	g.mm.RegisterHandler(rpcAsyncSyncVertex, func(source string, args []byte) ([]byte, error) {
		var req syncVertexRequest
		fromBytes(args, &req)

		ret := g.getVertexIfVersionLessThan(req.VID, req.Version, req.Store)

		return nil, g.mm.SendOneway(source, rpcReplyVertex,
			toBytes(replyVertexRequest{req.VID, ret}))
	})

	g.mm.RegisterHandler(rpcAsyncSyncEdge, func(source string, args []byte) ([]byte, error) {
		var req syncEdgeRequest
		fromBytes(args, &req)

		ret := g.getEdgeIfVersionLessThan(req.EID, req.Version, req.Store)

		return nil, g.mm.SendOneway(source, rpcReplyEdge,
			toBytes(replyEdgeRequest{req.EID, ret}))
	})

	g.mm.RegisterHandler(rpcAsyncSyncEdgePair, func(source string, args []byte) ([]byte, error) {
		var req syncEdgePairRequest
		fromBytes(args, &req)

		ret := g.getEdgeIfVersionLessThan2(req.Source, req.Target, req.Version, req.Store)

		return nil, g.mm.SendOneway(source, rpcReplyEdgePair,
			toBytes(replyEdgePairRequest{req.Source, req.Target, ret}))
	})

	g.mm.RegisterHandler(rpcReplyVertex, func(source string, args []byte) ([]byte, error) {
		var req replyVertexRequest
		fromBytes(args, &req)

		g.updateVertexDataAndVersion(req.VID, req.Store)
		atomic.AddInt64(&g.pendingAsyncUpdates, -1)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcReplyEdge, func(source string, args []byte) ([]byte, error) {
		var req replyEdgeRequest
		fromBytes(args, &req)

		g.updateEdgeDataAndVersion(req.EID, req.Store)
		atomic.AddInt64(&g.pendingAsyncUpdates, -1)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcReplyEdgePair, func(source string, args []byte) ([]byte, error) {
		var req replyEdgePairRequest
		fromBytes(args, &req)

		g.updateEdgeDataAndVersion2(req.Source, req.Target, req.Store)
		atomic.AddInt64(&g.pendingAsyncUpdates, -1)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcGetAlot, func(source string, args []byte) ([]byte, error) {
		var req blockSynchronizeRequest
		fromBytes(args, &req)
		return toBytes(*g.getAlot(&req)), nil
	})

	g.mm.RegisterHandler(rpcGetAlot2, func(source string, args []byte) ([]byte, error) {
		var req blockSynchronizeRequest2
		fromBytes(args, &req)
		return toBytes(*g.getAlot2(&req)), nil
	})

	g.mm.RegisterHandler(rpcAsyncGetAlot, func(source string, args []byte) ([]byte, error) {
		var req blockSynchronizeRequest
		fromBytes(args, &req)
		return nil, g.mm.SendOneway(source, rpcReplyAlot, toBytes(*g.getAlot(&req)))
	})

	g.mm.RegisterHandler(rpcAsyncGetAlot2, func(source string, args []byte) ([]byte, error) {
		var req blockSynchronizeRequest2
		fromBytes(args, &req)
		return nil, g.mm.SendOneway(source, rpcReplyAlot2, toBytes(*g.getAlot2(&req)))
	})

	g.mm.RegisterHandler(rpcReplyAlot, func(source string, args []byte) ([]byte, error) {
		var req blockSynchronizeRequest
		fromBytes(args, &req)

		g.mergeAlot(&req)
		atomic.AddInt64(&g.pendingAsyncUpdates, -1)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcReplyAlot2, func(source string, args []byte) ([]byte, error) {
		var req blockSynchronizeRequest2
		fromBytes(args, &req)

		g.mergeAlot2(&req)
		atomic.AddInt64(&g.pendingAsyncUpdates, -1)

		return nil, nil
	})
}
