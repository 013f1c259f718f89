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

import "testing"

func TestColoringCycle(t *testing.T) {

	// A 5-cycle 0-1-2-3-4-0 needs 3 colors

	gs := NewStore()
	gs.CreateStore(5, 5, "", "")

	gs.AddEdge(0, 0, 1)
	gs.AddEdge(1, 1, 2)
	gs.AddEdge(2, 2, 3)
	gs.AddEdge(3, 3, 4)
	gs.AddEdge(4, 4, 0)

	gs.Finalize()

	if colors := gs.ComputeColoring(); colors != 3 {
		t.Error("Unexpected color count:", colors)
		return
	}

	if !gs.ValidColoring() {
		t.Error("Coloring should be valid")
		return
	}

	// Every edge must connect differently colored endpoints

	for eid := EdgeID(0); eid < 5; eid++ {
		if gs.Color(gs.Source(eid)) == gs.Color(gs.Target(eid)) {
			t.Error("Edge", eid, "connects same colored endpoints")
			return
		}
	}
}

func TestColoringStar(t *testing.T) {

	// A star graph needs 2 colors - the high degree center is colored first

	gs := NewStore()
	gs.CreateStore(5, 4, "", "")

	gs.AddEdge(0, 1, 0)
	gs.AddEdge(1, 2, 0)
	gs.AddEdge(2, 3, 0)
	gs.AddEdge(3, 4, 0)

	gs.Finalize()

	if colors := gs.ComputeColoring(); colors != 2 {
		t.Error("Unexpected color count:", colors)
		return
	}

	if !gs.ValidColoring() {
		t.Error("Coloring should be valid")
		return
	}
}

func TestInvalidColoring(t *testing.T) {
	gs := NewStore()
	gs.CreateStore(2, 1, "", "")

	gs.AddEdge(0, 0, 1)
	gs.Finalize()

	gs.SetColor(0, 1)
	gs.SetColor(1, 1)

	if gs.ValidColoring() {
		t.Error("Coloring should be invalid")
		return
	}

	gs.SetColor(1, 2)

	if !gs.ValidColoring() {
		t.Error("Coloring should be valid")
		return
	}

	if c := gs.Color(1); c != 2 {
		t.Error("Unexpected color:", c)
		return
	}
}
