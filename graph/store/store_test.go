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
	"testing"
)

/*
buildTestStore creates a store with 4 vertices and 5 edges:

	0 -> 1, 0 -> 2, 1 -> 2, 2 -> 3, 3 -> 0
*/
func buildTestStore() *Store {
	gs := NewStore()
	gs.CreateStore(4, 5, "", "")

	gs.AddEdge(0, 0, 1)
	gs.AddEdge(1, 0, 2)
	gs.AddEdge(2, 1, 2)
	gs.AddEdge(3, 2, 3)
	gs.AddEdge(4, 3, 0)

	return gs
}

func TestStoreStructure(t *testing.T) {
	gs := buildTestStore()

	if gs.NumVertices() != 4 || gs.NumEdges() != 5 {
		t.Error("Unexpected store size:", gs.NumVertices(), gs.NumEdges())
		return
	}

	if gs.IsFinalized() {
		t.Error("Store should not be finalized after adding edges")
		return
	}

	if n := gs.NumInNeighbors(2); n != 2 {
		t.Error("Unexpected in neighbor count:", n)
		return
	}

	if n := gs.NumOutNeighbors(0); n != 2 {
		t.Error("Unexpected out neighbor count:", n)
		return
	}

	// Find must work before finalizing via linear scan

	if eid, ok := gs.Find(1, 2); !ok || eid != 2 {
		t.Error("Unexpected find result:", eid, ok)
		return
	}

	if _, ok := gs.Find(2, 1); ok {
		t.Error("Found nonexistent edge")
		return
	}

	gs.Finalize()

	if !gs.IsFinalized() {
		t.Error("Store should be finalized")
		return
	}

	// Find must work after finalizing via binary search

	if eid, ok := gs.Find(1, 2); !ok || eid != 2 {
		t.Error("Unexpected find result:", eid, ok)
		return
	}

	if eid, ok := gs.Find(3, 0); !ok || eid != 4 {
		t.Error("Unexpected find result:", eid, ok)
		return
	}

	if _, ok := gs.Find(0, 3); ok {
		t.Error("Found nonexistent edge")
		return
	}

	if eid := gs.EdgeID(0, 2); eid != 1 {
		t.Error("Unexpected edge id:", eid)
		return
	}

	if src, tgt := gs.Source(2), gs.Target(2); src != 1 || tgt != 2 {
		t.Error("Unexpected endpoints:", src, tgt)
		return
	}
}

func TestStoreFinalizeOrder(t *testing.T) {
	gs := NewStore()
	gs.CreateStore(4, 4, "", "")

	// Insert edges out of order

	gs.AddEdge(0, 3, 2)
	gs.AddEdge(1, 1, 2)
	gs.AddEdge(2, 0, 2)
	gs.AddEdge(3, 2, 1)

	gs.Finalize()

	// In edges of vertex 2 must be sorted by (source, target)

	if res := fmt.Sprint(gs.InEdgeIDs(2)); res != "[2 1 0]" {
		t.Error("Unexpected in edge order:", res)
		return
	}

	// Finalize must be idempotent

	gs.Finalize()

	if res := fmt.Sprint(gs.InEdgeIDs(2)); res != "[2 1 0]" {
		t.Error("Unexpected in edge order:", res)
		return
	}

	// A second store built from the same input in a different insertion
	// order must produce the same order

	gs2 := NewStore()
	gs2.CreateStore(4, 4, "", "")

	gs2.AddEdge(2, 0, 2)
	gs2.AddEdge(3, 2, 1)
	gs2.AddEdge(0, 3, 2)
	gs2.AddEdge(1, 1, 2)

	gs2.Finalize()

	if res, res2 := fmt.Sprint(gs.InEdgeIDs(2)), fmt.Sprint(gs2.InEdgeIDs(2)); res != res2 {
		t.Error("Orders differ:", res, res2)
		return
	}
}

func TestStoreRevEdgeID(t *testing.T) {
	gs := NewStore()
	gs.CreateStore(2, 2, "", "")

	gs.AddEdge(0, 0, 1)
	gs.AddEdge(1, 1, 0)
	gs.Finalize()

	if rev := gs.RevEdgeID(0); rev != 1 {
		t.Error("Unexpected reverse edge:", rev)
		return
	}

	if rev := gs.RevEdgeID(1); rev != 0 {
		t.Error("Unexpected reverse edge:", rev)
		return
	}
}

func TestStoreFatalErrors(t *testing.T) {

	gs := buildTestStore()

	// Self loops are fatal

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Self loop should panic")
			}
		}()

		gs.AddEdge(0, 1, 1)
	}()

	// Out of range vertices are fatal

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Out of range vertex should panic")
			}
		}()

		gs.AddEdge(0, 99, 1)
	}()

	// Out of range edge IDs are fatal

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Out of range edge should panic")
			}
		}()

		gs.AddEdge(99, 0, 1)
	}()

	// Unchecked lookup of a missing edge is fatal

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Missing edge lookup should panic")
			}
		}()

		gs.EdgeID(2, 1)
	}()
}

func TestEmptyStore(t *testing.T) {
	gs := NewStore()
	gs.CreateStore(0, 0, "", "")

	if gs.NumVertices() != 0 || gs.NumEdges() != 0 {
		t.Error("Unexpected store size")
		return
	}

	// Finalizing an empty store must work

	gs.Finalize()

	if !gs.IsFinalized() {
		t.Error("Empty store should be finalized")
		return
	}

	if colors := gs.ComputeColoring(); colors != 1 {
		t.Error("Unexpected color count:", colors)
		return
	}
}

func TestStoreErrors(t *testing.T) {

	err := &Error{ErrSelfLoop, "1 -> 1"}

	if err.Error() != "GraphStoreError: Self loops are not permitted (1 -> 1)" {
		t.Error("Unexpected error message:", err.Error())
		return
	}

	err = &Error{ErrBadArchive, ""}

	if err.Error() != "GraphStoreError: Invalid store archive" {
		t.Error("Unexpected error message:", err.Error())
		return
	}
}
