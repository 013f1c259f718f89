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
	"sync"
	"testing"

	"devt.de/krotik/gravel/cluster"
	"devt.de/krotik/gravel/graph/atom"
)

/*
createTestCluster creates and starts a cluster of n in-process members.
*/
func createTestCluster(t *testing.T, n int, portBase int) []*cluster.MemberManager {
	t.Helper()

	addrs := make(map[string]string)

	for i := 0; i < n; i++ {
		addrs[fmt.Sprintf("member%v", i+1)] = fmt.Sprintf("127.0.0.1:%v", portBase+i)
	}

	var mms []*cluster.MemberManager

	for i := 0; i < n; i++ {
		name := fmt.Sprintf("member%v", i+1)

		peers := make(map[string]string)
		for p, addr := range addrs {
			if p != name {
				peers[p] = addr
			}
		}

		mm := cluster.NewMemberManager(addrs[name], name, "secret123", peers)

		if err := mm.Start(); err != nil {
			t.Fatal(err)
		}

		mms = append(mms, mm)
	}

	return mms
}

/*
shutdownTestCluster shuts all given members down.
*/
func shutdownTestCluster(t *testing.T, mms []*cluster.MemberManager) {
	t.Helper()

	for _, mm := range mms {
		if err := mm.Shutdown(); err != nil {
			t.Error(err)
		}
	}
}

/*
writeRingAtoms writes numAtoms atoms forming a directed ring graph of
3*numAtoms vertices. Atom a owns vertices 3a, 3a+1 and 3a+2 which form an
internal triangle; one cross edge connects the atom to its successor. Each
cross edge appears in both adjacent atoms so every fragment holds all
edges incident to its vertices - the loader must collapse the duplicates.

With global edge IDs atom a carries the edges 4a (3a -> 3a+1),
4a+1 (3a+1 -> 3a+2), 4a+2 (3a+2 -> 3a) and 4a+3 (3a+2 -> 3a+3).
*/
func writeRingAtoms(t *testing.T, dir string, numAtoms int, withEIDs bool) *atom.Index {
	t.Helper()

	nverts := uint32(3 * numAtoms)
	index := &atom.Index{NVerts: nverts, NEdges: uint32(4 * numAtoms)}

	vid := func(i int) VertexID {
		return VertexID((i + 3*numAtoms) % (3 * numAtoms))
	}

	for a := 0; a < numAtoms; a++ {
		next := (a + 1) % numAtoms
		prev := (a + numAtoms - 1) % numAtoms

		content := &atom.Content{
			GlobalVIDs: []VertexID{vid(3 * a), vid(3*a + 1), vid(3*a + 2),
				vid(3*a + 3), vid(3*a - 1)},
			Atom: []uint32{uint32(a), uint32(a), uint32(a),
				uint32(next), uint32(prev)},
			VColor: []uint32{0, 1, 2, 0, 2},
			EdgeSrcDest: []atom.SrcDest{
				{Src: 0, Dest: 1}, {Src: 1, Dest: 2}, {Src: 2, Dest: 0},
				{Src: 2, Dest: 3}, // Cross edge to the successor atom
				{Src: 4, Dest: 0}, // Cross edge from the predecessor atom
			},
		}

		for _, v := range content.GlobalVIDs {
			content.VData = append(content.VData, []byte(fmt.Sprintf("v%v", v)))
		}

		if withEIDs {
			content.GlobalEIDs = []EdgeID{EdgeID(4 * a), EdgeID(4*a + 1),
				EdgeID(4*a + 2), EdgeID(4*a + 3), EdgeID(4*prev + 3)}

			for _, e := range content.GlobalEIDs {
				content.EData = append(content.EData, []byte(fmt.Sprintf("e%v", e)))
			}

		} else {

			for range content.EdgeSrcDest {
				content.EData = append(content.EData, []byte("e"))
			}
		}

		path := fmt.Sprintf("%v/atom%v", dir, a)

		if err := atom.SaveContent(path, content); err != nil {
			t.Fatal(err)
		}

		index.Atoms = append(index.Atoms, atom.IndexEntry{Protocol: "file", File: path})
	}

	return index
}

/*
constructFragments builds one fragment per member concurrently - the
cluster-wide barrier at the end of the bootstrap requires all members to
construct at the same time.
*/
func constructFragments(t *testing.T, graphs []*Graph, index *atom.Index,
	partitions [][]int) {

	t.Helper()

	var wg sync.WaitGroup

	for _, g := range graphs {
		wg.Add(1)

		go func(g *Graph) {
			defer wg.Done()

			if err := g.ConstructLocalFragment(index, partitions); err != nil {
				t.Error(err)
			}
		}(g)
	}

	wg.Wait()
}

func TestThreePeerBootstrap(t *testing.T) {
	mms := createTestCluster(t, 3, 9301)
	defer shutdownTestCluster(t, mms)

	index := writeRingAtoms(t, t.TempDir(), 6, true)
	partitions := [][]int{{0, 1}, {2, 3}, {4, 5}}

	var graphs []*Graph
	for _, mm := range mms {
		graphs = append(graphs, NewGraph(mm))
	}

	constructFragments(t, graphs, index, partitions)

	// Every peer reports the global graph size

	for _, g := range graphs {
		if g.NumVertices() != 18 || g.NumEdges() != 24 {
			t.Error("Unexpected graph size:", g.NumVertices(), g.NumEdges())
			return
		}

		if g.EdgeCanonicalNumbering() {
			t.Error("Canonical numbering should not be used")
			return
		}
	}

	// Every vertex has exactly one owner across the cluster

	for v := VertexID(0); v < 18; v++ {
		owners := 0

		for _, g := range graphs {
			if g.VertexIsLocal(v) && !g.IsGhost(v) {
				owners++
			}
		}

		if owners != 1 {
			t.Error("Vertex", v, "has", owners, "owners")
			return
		}
	}

	// Cross atom duplicates were collapsed - member1 holds its own 6
	// vertices plus the ghosts 6 and 17

	if n := graphs[0].NumLocalVertices(); n != 8 {
		t.Error("Unexpected local vertex count:", n)
		return
	}

	if n := graphs[0].NumLocalEdges(); n != 9 {
		t.Error("Unexpected local edge count:", n)
		return
	}

	if !graphs[0].IsGhost(6) || !graphs[0].IsGhost(17) {
		t.Error("Expected ghost vertices 6 and 17 on member1")
		return
	}

	if graphs[0].IsGhost(3) {
		t.Error("Vertex 3 should be interior on member1")
		return
	}

	if n := graphs[0].NumGhosts(); n != 2 {
		t.Error("Unexpected ghost count:", n)
		return
	}

	// Structure accessors route to the owner when needed: vertex 9 is
	// owned by member2 and has two in edges (11 -> 9 and 8 -> 9)

	if n := graphs[0].NumInNeighbors(9); n != 2 {
		t.Error("Unexpected in neighbor count:", n)
		return
	}

	if n := graphs[0].NumOutNeighbors(9); n != 1 {
		t.Error("Unexpected out neighbor count:", n)
		return
	}

	// Edge lookup - local and routed

	if eid, ok := graphs[0].Find(0, 1); !ok || eid != 0 {
		t.Error("Unexpected find result:", eid, ok)
		return
	}

	if _, ok := graphs[0].Find(1, 0); ok {
		t.Error("Found nonexistent edge")
		return
	}

	if eid, ok := graphs[0].Find(9, 10); !ok || eid != 12 {
		t.Error("Unexpected routed find result:", eid, ok)
		return
	}

	// Edge endpoint queries by global edge ID - local and routed

	if src, tgt := graphs[0].Source(0), graphs[0].Target(0); src != 0 || tgt != 1 {
		t.Error("Unexpected endpoints:", src, tgt)
		return
	}

	if src, tgt := graphs[0].Source(13), graphs[0].Target(13); src != 10 || tgt != 11 {
		t.Error("Unexpected routed endpoints:", src, tgt)
		return
	}

	// In edge lists - routed requests return global edge IDs

	if res := fmt.Sprint(graphs[0].InEdgeIDs(9)); res != "[11 14]" {
		t.Error("Unexpected in edges:", res)
		return
	}

	if res := fmt.Sprint(graphs[0].OutEdgeIDs(9)); res != "[12]" {
		t.Error("Unexpected out edges:", res)
		return
	}

	// Colors were loaded from the atoms

	if c := graphs[0].GetColor(1); c != 1 {
		t.Error("Unexpected color:", c)
		return
	}

	if c := graphs[0].GetColor(10); c != 1 {
		t.Error("Unexpected routed color:", c)
		return
	}
}

func TestGhostReadThrough(t *testing.T) {
	mms := createTestCluster(t, 3, 9311)
	defer shutdownTestCluster(t, mms)

	index := writeRingAtoms(t, t.TempDir(), 6, true)
	partitions := [][]int{{0, 1}, {2, 3}, {4, 5}}

	var graphs []*Graph
	for _, mm := range mms {
		graphs = append(graphs, NewGraph(mm))
	}

	constructFragments(t, graphs, index, partitions)

	g0, g2 := graphs[0], graphs[2]

	// Vertex 0 is owned by member1 and a ghost on member3

	if !g2.VertexIsLocal(0) || !g2.IsGhost(0) {
		t.Error("Vertex 0 should be a ghost on member3")
		return
	}

	// The owner advances vertex 0

	g0.SetVertexData(0, []byte("new0"))

	// With no prior synchronization the ghost read goes through to the
	// owner and returns the owner's current payload ...

	if res := g2.GetVertexData(0); !bytes.Equal(res, []byte("new0")) {
		t.Error("Unexpected read through result:", string(res))
		return
	}

	// ... while the local replica still holds the bootstrap payload

	if res := g2.localstore.VertexData(g2.localVID(0)); !bytes.Equal(res, []byte("v0")) {
		t.Error("Local replica should be untouched:", string(res))
		return
	}

	// After a synchronization installed the replica, reads are served
	// locally - even if the owner moves on

	g2.SynchronizeVertex(0)

	g0.SetVertexData(0, []byte("newer0"))

	if res := g2.GetVertexData(0); !bytes.Equal(res, []byte("new0")) {
		t.Error("Read should be served from the installed replica:", string(res))
		return
	}

	// A local write makes the replica stale again - reads route to the
	// owner once more

	g2.SetVertexData(0, []byte("write0"))

	if res := g2.GetVertexData(0); !bytes.Equal(res, []byte("write0")) {
		t.Error("Unexpected read through result:", string(res))
		return
	}

	if res := g0.GetVertexData(0); !bytes.Equal(res, []byte("write0")) {
		t.Error("Owner should have received the write:", string(res))
		return
	}
}

func TestVersionReconciliation(t *testing.T) {
	mms := createTestCluster(t, 3, 9321)
	defer shutdownTestCluster(t, mms)

	index := writeRingAtoms(t, t.TempDir(), 6, true)
	partitions := [][]int{{0, 1}, {2, 3}, {4, 5}}

	var graphs []*Graph
	for _, mm := range mms {
		graphs = append(graphs, NewGraph(mm))
	}

	constructFragments(t, graphs, index, partitions)

	g0, g2 := graphs[0], graphs[2]

	lv0 := g0.localVID(0)
	lv2 := g2.localVID(0)

	// The ghost is ahead of the owner - its writes win forward

	g2.UpdateLocalVertex(0, []byte("ghostwrite"))

	if v := g2.localstore.VertexVersion(lv2); v != 1 {
		t.Error("Unexpected ghost version:", v)
		return
	}

	g2.SynchronizeVertex(0)

	if res := g0.localstore.VertexData(lv0); !bytes.Equal(res, []byte("ghostwrite")) {
		t.Error("Owner should have adopted the ghost payload:", string(res))
		return
	}

	if v := g0.localstore.VertexVersion(lv0); v != 1 {
		t.Error("Owner version should have advanced:", v)
		return
	}

	// Owner and ghost are at the same version - nothing is exchanged
	// even though the ghost is marked modified

	g2.localstore.SetVertexModified(lv2, true)

	g2.SynchronizeVertex(0)

	if v := g0.localstore.VertexVersion(lv0); v != 1 {
		t.Error("Versions should be unchanged:", v)
		return
	}

	if v := g2.localstore.VertexVersion(lv2); v != 1 {
		t.Error("Versions should be unchanged:", v)
		return
	}

	// The owner is ahead - the ghost receives payload and version

	g0.SetVertexData(0, []byte("ownerwrite"))

	g2.SynchronizeVertex(0)

	if res := g2.localstore.VertexData(lv2); !bytes.Equal(res, []byte("ownerwrite")) {
		t.Error("Ghost should have received the owner payload:", string(res))
		return
	}

	if v := g2.localstore.VertexVersion(lv2); v != 2 {
		t.Error("Unexpected ghost version:", v)
		return
	}

	if g2.localstore.VertexModified(lv2) {
		t.Error("Modified flag should be cleared after an install")
		return
	}
}

func TestEdgeSynchronization(t *testing.T) {
	mms := createTestCluster(t, 3, 9331)
	defer shutdownTestCluster(t, mms)

	index := writeRingAtoms(t, t.TempDir(), 6, true)
	partitions := [][]int{{0, 1}, {2, 3}, {4, 5}}

	var graphs []*Graph
	for _, mm := range mms {
		graphs = append(graphs, NewGraph(mm))
	}

	constructFragments(t, graphs, index, partitions)

	g0, g2 := graphs[0], graphs[2]

	// Edge 23 (17 -> 0) is owned by member1 and replicated on member3

	if !g2.EdgeIsLocal(23) || !g0.EdgeIsLocal(23) {
		t.Error("Edge 23 should be on member1 and member3")
		return
	}

	// A write from the replica side routes to the owner

	g2.SetEdgeData(17, 0, []byte("edgewrite"))

	if res := g0.GetEdgeData(17, 0); !bytes.Equal(res, []byte("edgewrite")) {
		t.Error("Owner should have received the edge write:", string(res))
		return
	}

	// The replica still holds the bootstrap payload until synchronized

	if res := g2.localstore.EdgeData(g2.localEID(23)); !bytes.Equal(res, []byte("e23")) {
		t.Error("Replica should be untouched:", string(res))
		return
	}

	g2.SynchronizeEdge(23)

	if res := g2.localstore.EdgeData(g2.localEID(23)); !bytes.Equal(res, []byte("edgewrite")) {
		t.Error("Replica should have been synchronized:", string(res))
		return
	}

	// An installed edge replica serves reads locally

	g0.SetEdgeData(17, 0, []byte("newerwrite"))

	if res := g2.GetEdgeDataEID(23); !bytes.Equal(res, []byte("edgewrite")) {
		t.Error("Read should be served from the installed replica:", string(res))
		return
	}
}

func TestScopeSynchronization(t *testing.T) {
	mms := createTestCluster(t, 3, 9341)
	defer shutdownTestCluster(t, mms)

	index := writeRingAtoms(t, t.TempDir(), 6, true)
	partitions := [][]int{{0, 1}, {2, 3}, {4, 5}}

	var graphs []*Graph
	for _, mm := range mms {
		graphs = append(graphs, NewGraph(mm))
	}

	constructFragments(t, graphs, index, partitions)

	g0, g2 := graphs[0], graphs[2]

	// The owner advances vertex 0 and edge 23

	g0.SetVertexData(0, []byte("scope-v"))
	g0.SetEdgeData(17, 0, []byte("scope-e"))

	// Synchronizing the scope of vertex 0 on member3 reconciles the
	// ghost vertex and the ghost edge with one batched request

	g2.SynchronizeScope(0)

	if res := g2.localstore.VertexData(g2.localVID(0)); !bytes.Equal(res, []byte("scope-v")) {
		t.Error("Ghost vertex should have been synchronized:", string(res))
		return
	}

	if res := g2.localstore.EdgeData(g2.localEID(23)); !bytes.Equal(res, []byte("scope-e")) {
		t.Error("Ghost edge should have been synchronized:", string(res))
		return
	}

	// The asynchronous form completes after the pending gate

	g0.SetVertexData(0, []byte("scope-v2"))
	g0.SetEdgeData(17, 0, []byte("scope-e2"))

	g2.AsyncSynchronizeScope(0)
	g2.WaitForAllAsyncSyncs()

	if res := g2.localstore.VertexData(g2.localVID(0)); !bytes.Equal(res, []byte("scope-v2")) {
		t.Error("Ghost vertex should have been synchronized:", string(res))
		return
	}

	if res := g2.localstore.EdgeData(g2.localEID(23)); !bytes.Equal(res, []byte("scope-e2")) {
		t.Error("Ghost edge should have been synchronized:", string(res))
		return
	}
}

func TestAsyncVertexSynchronization(t *testing.T) {
	mms := createTestCluster(t, 3, 9351)
	defer shutdownTestCluster(t, mms)

	index := writeRingAtoms(t, t.TempDir(), 6, true)
	partitions := [][]int{{0, 1}, {2, 3}, {4, 5}}

	var graphs []*Graph
	for _, mm := range mms {
		graphs = append(graphs, NewGraph(mm))
	}

	constructFragments(t, graphs, index, partitions)

	g0, g2 := graphs[0], graphs[2]

	g0.SetVertexData(0, []byte("async0"))

	g2.SynchronizeVertexAsync(0)
	g2.WaitForAllAsyncSyncs()

	if g2.PendingAsyncUpdates() != 0 {
		t.Error("Pending counter should be zero")
		return
	}

	if res := g2.localstore.VertexData(g2.localVID(0)); !bytes.Equal(res, []byte("async0")) {
		t.Error("Ghost should have been synchronized:", string(res))
		return
	}

	// Asynchronous writes are gated by the one-way flush of the comm
	// barrier

	g2.SetVertexDataAsync(0, []byte("asyncwrite"))

	g2.mm.Client.FlushOneway()

	if res := g0.GetVertexData(0); !bytes.Equal(res, []byte("asyncwrite")) {
		t.Error("Owner should have received the async write:", string(res))
		return
	}
}
