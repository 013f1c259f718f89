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
	"devt.de/krotik/gravel/cluster"
)

/*
Remote functions served by every graph fragment. Inbound calls are
executed on the rpc dispatcher's thread and may re-enter any fragment
method.
*/
const (
	rpcNumInNeighbors  cluster.RPCFunction = "Graph.NumInNeighbors"
	rpcNumOutNeighbors cluster.RPCFunction = "Graph.NumOutNeighbors"
	rpcFind            cluster.RPCFunction = "Graph.Find"
	rpcSource          cluster.RPCFunction = "Graph.Source"
	rpcTarget          cluster.RPCFunction = "Graph.Target"
	rpcRevEdgeID       cluster.RPCFunction = "Graph.RevEdgeID"
	rpcInEdgeIDs       cluster.RPCFunction = "Graph.InEdgeIDs"
	rpcOutEdgeIDs      cluster.RPCFunction = "Graph.OutEdgeIDs"
	rpcGetVertexData   cluster.RPCFunction = "Graph.GetVertexData"
	rpcSetVertexData   cluster.RPCFunction = "Graph.SetVertexData"
	rpcGetEdgeDataPair cluster.RPCFunction = "Graph.GetEdgeDataPair"
	rpcGetEdgeDataEID  cluster.RPCFunction = "Graph.GetEdgeDataEID"
	rpcSetEdgeDataPair cluster.RPCFunction = "Graph.SetEdgeDataPair"
	rpcSetEdgeDataEID  cluster.RPCFunction = "Graph.SetEdgeDataEID"
	rpcGetColor        cluster.RPCFunction = "Graph.GetColor"
	rpcSetColor        cluster.RPCFunction = "Graph.SetColor"

	rpcSyncVertex        cluster.RPCFunction = "Graph.SyncVertex"
	rpcSyncEdge          cluster.RPCFunction = "Graph.SyncEdge"
	rpcSyncEdgePair      cluster.RPCFunction = "Graph.SyncEdgePair"
	rpcAsyncSyncVertex   cluster.RPCFunction = "Graph.AsyncSyncVertex"
	rpcAsyncSyncEdge     cluster.RPCFunction = "Graph.AsyncSyncEdge"
	rpcAsyncSyncEdgePair cluster.RPCFunction = "Graph.AsyncSyncEdgePair"
	rpcReplyVertex       cluster.RPCFunction = "Graph.ReplyVertex"
	rpcReplyEdge         cluster.RPCFunction = "Graph.ReplyEdge"
	rpcReplyEdgePair     cluster.RPCFunction = "Graph.ReplyEdgePair"
	rpcGetAlot           cluster.RPCFunction = "Graph.GetAlot"
	rpcGetAlot2          cluster.RPCFunction = "Graph.GetAlot2"
	rpcAsyncGetAlot      cluster.RPCFunction = "Graph.AsyncGetAlot"
	rpcAsyncGetAlot2     cluster.RPCFunction = "Graph.AsyncGetAlot2"
	rpcReplyAlot         cluster.RPCFunction = "Graph.ReplyAlot"
	rpcReplyAlot2        cluster.RPCFunction = "Graph.ReplyAlot2"
)

// Request objects
// ===============

/*
vidRequest addresses a single vertex.
*/
type vidRequest struct {
	VID VertexID
}

/*
eidRequest addresses a single edge by global edge ID.
*/
type eidRequest struct {
	EID EdgeID
}

/*
findRequest addresses a single edge by source and target vertex.
*/
type findRequest struct {
	Source VertexID
	Target VertexID
}

/*
findReply is the reply of an edge lookup.
*/
type findReply struct {
	Found bool
	EID   EdgeID
}

/*
dataReply carries a payload reply.
*/
type dataReply struct {
	Data []byte
}

/*
setVertexRequest carries a vertex write.
*/
type setVertexRequest struct {
	VID  VertexID
	Data []byte
}

/*
setEdgePairRequest carries an edge write addressed by source and target.
*/
type setEdgePairRequest struct {
	Source VertexID
	Target VertexID
	Data   []byte
}

/*
setEdgeEIDRequest carries an edge write addressed by global edge ID.
*/
type setEdgeEIDRequest struct {
	EID  EdgeID
	Data []byte
}

/*
setColorRequest carries a color write.
*/
type setColorRequest struct {
	VID   VertexID
	Color uint32
}

// Handler registration
// ====================

/*
registerHandlers registers the remote functions of this fragment with the
cluster member.
*/
func (g *Graph) registerHandlers() {

	g.mm.RegisterHandler(rpcNumInNeighbors, func(source string, args []byte) ([]byte, error) {
		var req vidRequest
		fromBytes(args, &req)
		return toBytes(g.NumInNeighbors(req.VID)), nil
	})

	g.mm.RegisterHandler(rpcNumOutNeighbors, func(source string, args []byte) ([]byte, error) {
		var req vidRequest
		fromBytes(args, &req)
		return toBytes(g.NumOutNeighbors(req.VID)), nil
	})

	g.mm.RegisterHandler(rpcFind, func(source string, args []byte) ([]byte, error) {
		var req findRequest
		fromBytes(args, &req)

		eid, found := g.Find(req.Source, req.Target)

		return toBytes(findReply{found, eid}), nil
	})

	g.mm.RegisterHandler(rpcSource, func(source string, args []byte) ([]byte, error) {
		var req eidRequest
		fromBytes(args, &req)
		return toBytes(g.Source(req.EID)), nil
	})

	g.mm.RegisterHandler(rpcTarget, func(source string, args []byte) ([]byte, error) {
		var req eidRequest
		fromBytes(args, &req)
		return toBytes(g.Target(req.EID)), nil
	})

	g.mm.RegisterHandler(rpcRevEdgeID, func(source string, args []byte) ([]byte, error) {
		var req eidRequest
		fromBytes(args, &req)
		return toBytes(g.RevEdgeID(req.EID)), nil
	})

	g.mm.RegisterHandler(rpcInEdgeIDs, func(source string, args []byte) ([]byte, error) {
		var req vidRequest
		fromBytes(args, &req)
		return toBytes(g.InEdgeIDs(req.VID)), nil
	})

	g.mm.RegisterHandler(rpcOutEdgeIDs, func(source string, args []byte) ([]byte, error) {
		var req vidRequest
		fromBytes(args, &req)
		return toBytes(g.OutEdgeIDs(req.VID)), nil
	})

	g.mm.RegisterHandler(rpcGetVertexData, func(source string, args []byte) ([]byte, error) {
		var req vidRequest
		fromBytes(args, &req)
		return toBytes(dataReply{g.GetVertexData(req.VID)}), nil
	})

	g.mm.RegisterHandler(rpcSetVertexData, func(source string, args []byte) ([]byte, error) {
		var req setVertexRequest
		fromBytes(args, &req)

		g.SetVertexData(req.VID, req.Data)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcGetEdgeDataPair, func(source string, args []byte) ([]byte, error) {
		var req findRequest
		fromBytes(args, &req)
		return toBytes(dataReply{g.GetEdgeData(req.Source, req.Target)}), nil
	})

	g.mm.RegisterHandler(rpcGetEdgeDataEID, func(source string, args []byte) ([]byte, error) {
		var req eidRequest
		fromBytes(args, &req)
		return toBytes(dataReply{g.GetEdgeDataEID(req.EID)}), nil
	})

	g.mm.RegisterHandler(rpcSetEdgeDataPair, func(source string, args []byte) ([]byte, error) {
		var req setEdgePairRequest
		fromBytes(args, &req)

		g.SetEdgeData(req.Source, req.Target, req.Data)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcSetEdgeDataEID, func(source string, args []byte) ([]byte, error) {
		var req setEdgeEIDRequest
		fromBytes(args, &req)

		g.SetEdgeDataEID(req.EID, req.Data)

		return nil, nil
	})

	g.mm.RegisterHandler(rpcGetColor, func(source string, args []byte) ([]byte, error) {
		var req vidRequest
		fromBytes(args, &req)
		return toBytes(g.GetColor(req.VID)), nil
	})

	g.mm.RegisterHandler(rpcSetColor, func(source string, args []byte) ([]byte, error) {
		var req setColorRequest
		fromBytes(args, &req)

		g.SetColor(req.VID, req.Color)

		return nil, nil
	})

	g.registerSyncHandlers()
}
