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
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"devt.de/krotik/gravel/graph/atom"
)

/*
vertexPair is a global source / target vertex ID pair identifying an edge.
*/
type vertexPair struct {
	Source VertexID
	Target VertexID
}

/*
ConstructLocalFragment builds the local fragment of the distributed graph
from the atoms assigned to this member. The partition assignment maps every
partition (numeric member ID) to the list of atoms it should load - it must
be identical on every member. After the fragment is constructed the call
blocks until every cluster member has finished its own construction.
*/
func (g *Graph) ConstructLocalFragment(index *atom.Index, partitionToAtom [][]int) error {

	curPartition := int(g.mm.ProcID())

	if len(partitionToAtom) != g.mm.NumProcs() {
		return &Error{ErrBootstrap,
			fmt.Sprintf("Partition assignment has %v entries for %v members",
				len(partitionToAtom), g.mm.NumProcs())}
	}

	g.numGlobalVerts = index.NVerts
	g.numGlobalEdges = index.NEdges

	// First make a map mapping atoms to machines - needed for the
	// ownership pass later

	atom2machine := make([]ProcID, len(index.Atoms))

	for machine, atoms := range partitionToAtom {
		for _, a := range atoms {
			if a < 0 || a >= len(index.Atoms) {
				return &Error{ErrBootstrap,
					fmt.Sprintf("Partition assignment references unknown atom %v", a)}
			}
			atom2machine[a] = ProcID(machine)
		}
	}

	// Create the atom readers and load the id maps in parallel

	g.mm.LogInfo("Loading ID maps")

	atomsInCurpart := partitionToAtom[curPartition]
	atomfiles := make([]atom.File, len(atomsInCurpart))

	var eg errgroup.Group

	for i, a := range atomsInCurpart {
		i, a := i, a

		eg.Go(func() error {
			entry := index.Atoms[a]

			af, err := atom.OpenFile(entry.Protocol, entry.File)
			if err == nil {
				err = af.LoadIDMaps()
				atomfiles[i] = af
			}

			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return &Error{ErrBootstrap, err.Error()}
	}

	g.mm.LogInfo("Generating mappings")

	// Detect canonical edge numbering - signalled by the first atom
	// carrying no global edge IDs

	g.numbering = numberingGlobal

	if len(atomfiles) > 0 && len(atomfiles[0].GlobalEIDs()) == 0 {
		g.numbering = numberingCanonical
		g.mm.LogInfo("Edge canonical numbering used. Edge IDs are only locally valid")
	}

	// Construct the global/local vid mappings by merging the mappings of
	// each atom - concatenate, sort and unique

	for _, af := range atomfiles {
		g.local2globalvid = append(g.local2globalvid, af.GlobalVIDs()...)
	}

	g.local2globalvid = sortUniqueVIDs(g.local2globalvid)

	g.localvid2owner = make([]ProcID, len(g.local2globalvid))

	for i, vid := range g.local2globalvid {
		g.global2localvid[vid] = VertexID(i)
	}

	// Repeat for edges if global edge IDs are available

	if g.numbering == numberingGlobal {
		for _, af := range atomfiles {
			g.local2globaleid = append(g.local2globaleid, af.GlobalEIDs()...)
		}

		g.local2globaleid = sortUniqueEIDs(g.local2globaleid)

		for i, eid := range g.local2globaleid {
			g.global2localeid[eid] = EdgeID(i)
		}
	}

	// Load the structure records and assign dense local edge IDs to
	// (source, target) pairs in insertion order, deduplicating across atoms

	g.mm.LogInfo("Loading structure")

	canonicalNumbering := make(map[vertexPair]EdgeID)

	for _, af := range atomfiles {
		if err := af.LoadStructure(); err != nil {
			return &Error{ErrBootstrap, err.Error()}
		}

		for _, sd := range af.EdgeSrcDest() {
			pair := vertexPair{af.GlobalVIDs()[sd.Src], af.GlobalVIDs()[sd.Dest]}

			if _, ok := canonicalNumbering[pair]; !ok {
				canonicalNumbering[pair] = EdgeID(len(canonicalNumbering))
			}
		}
	}

	if g.numbering == numberingCanonical {

		// Local edge IDs double as their own global IDs in this mode

		g.local2globaleid = make([]EdgeID, len(canonicalNumbering))

		for i := range g.local2globaleid {
			g.local2globaleid[i] = EdgeID(i)
			g.global2localeid[EdgeID(i)] = EdgeID(i)
		}
	}

	// Create the local store

	nedgesToCreate := len(canonicalNumbering)
	if len(g.local2globaleid) > nedgesToCreate {
		nedgesToCreate = len(g.local2globaleid)
	}

	g.localstore.CreateStore(uint32(len(g.local2globalvid)), uint32(nedgesToCreate),
		fmt.Sprintf("vdata.%v", curPartition), fmt.Sprintf("edata.%v", curPartition))

	// Second pass - add the edges to the store using the computed local
	// IDs; the loaded bitmap collapses cross-atom duplicates

	eidloaded := roaring.New()

	for _, af := range atomfiles {

		for j, sd := range af.EdgeSrcDest() {

			var localeid EdgeID

			if g.numbering == numberingGlobal {
				localeid = g.global2localeid[af.GlobalEIDs()[j]]
			} else {
				localeid = canonicalNumbering[vertexPair{
					af.GlobalVIDs()[sd.Src], af.GlobalVIDs()[sd.Dest]}]
			}

			if !eidloaded.Contains(uint32(localeid)) {
				sourcevid := g.global2localvid[af.GlobalVIDs()[sd.Src]]
				destvid := g.global2localvid[af.GlobalVIDs()[sd.Dest]]

				g.localstore.AddEdge(localeid, sourcevid, destvid)
				eidloaded.Add(uint32(localeid))
			}
		}

		// Third pass - record owner and color of every vertex and publish
		// ownership of owned vertices to the vertex directory

		for j, owningAtom := range af.Atom() {
			globalvid := af.GlobalVIDs()[j]
			localvid := g.global2localvid[globalvid]

			g.localvid2owner[localvid] = atom2machine[owningAtom]
			g.localstore.SetColor(localvid, af.VColor()[j])

			if g.localvid2owner[localvid] == g.mm.ProcID() {
				if err := g.vidOwners.Set(uint32(globalvid), g.mm.ProcID()); err != nil {
					return &Error{ErrBootstrap, err.Error()}
				}
			} else {
				g.ghosts.Add(uint32(localvid))
			}
		}
	}

	// Publish edge ownership if global edge IDs exist - this needs a
	// separate pass since all vertex ownerships must be known first

	if g.numbering == numberingGlobal {
		g.mm.LogInfo("Set up global eid table")

		for _, af := range atomfiles {
			for j, sd := range af.EdgeSrcDest() {
				globaleid := af.GlobalEIDs()[j]
				targetlocalvid := g.global2localvid[af.GlobalVIDs()[sd.Dest]]

				if g.localvid2owner[targetlocalvid] == g.mm.ProcID() {
					if err := g.eidOwners.Set(uint32(globaleid), g.mm.ProcID()); err != nil {
						return &Error{ErrBootstrap, err.Error()}
					}
				}
			}
		}

	} else {
		g.mm.LogInfo("Edge canonical numbering used - global eid table not needed")
	}

	// Load the data payloads one atom at a time - versions start at 0
	// with all flags cleared

	g.mm.LogInfo("Loading data")

	for _, af := range atomfiles {
		if err := af.LoadAll(); err != nil {
			return &Error{ErrBootstrap, err.Error()}
		}

		for j, vdata := range af.VData() {
			localvid := g.global2localvid[af.GlobalVIDs()[j]]
			g.localstore.SetVertexData(localvid, vdata)
			g.localstore.SetVertexVersion(localvid, 0)
		}

		for j, edata := range af.EData() {
			var localeid EdgeID

			if g.numbering == numberingGlobal {
				localeid = g.global2localeid[af.GlobalEIDs()[j]]
			} else {
				sd := af.EdgeSrcDest()[j]
				localeid = canonicalNumbering[vertexPair{
					af.GlobalVIDs()[sd.Src], af.GlobalVIDs()[sd.Dest]}]
			}

			g.localstore.SetEdgeData(localeid, edata)
			g.localstore.SetEdgeVersion(localeid, 0)
		}

		af.Clear()
	}

	g.mm.LogInfo("Finalize")

	g.localstore.Finalize()

	g.mm.LogInfo("Load complete")

	return g.mm.CommBarrier()
}

// Helper functions
// ================

/*
sortUniqueVIDs sorts a vertex ID list and removes duplicates.
*/
func sortUniqueVIDs(ids []VertexID) []VertexID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != out[len(out)-1] {
			out = append(out, id)
		}
	}

	return out
}

/*
sortUniqueEIDs sorts an edge ID list and removes duplicates.
*/
func sortUniqueEIDs(ids []EdgeID) []EdgeID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != out[len(out)-1] {
			out = append(out, id)
		}
	}

	return out
}
