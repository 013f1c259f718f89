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
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
)

/*
storeArchive is the self-describing archive header of a persisted store.
The vertex and edge record blocks follow the header on the same stream.
*/
type storeArchive struct {
	NumVertices uint32
	NumEdges    uint32
	Edges       []edge
	InEdges     [][]EdgeID
	OutEdges    [][]EdgeID
	VColors     []uint32
	Finalized   bool
}

/*
Save writes the store to a given file. The archive preserves every field
including versions and flags.
*/
func (gs *Store) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}
	defer file.Close()

	return gs.SaveTo(file)
}

/*
SaveTo writes the store to a given writer.
*/
func (gs *Store) SaveTo(w io.Writer) error {
	zw := gzip.NewWriter(w)
	enc := gob.NewEncoder(zw)

	arc := storeArchive{gs.nvertices, gs.nedges, gs.edges, gs.inEdges,
		gs.outEdges, gs.vcolors, gs.finalized}

	if err := enc.Encode(arc); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}

	// Raw record blocks follow the structure header

	if err := enc.Encode(gs.vertices); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}
	if err := enc.Encode(gs.edgedata); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}

	if err := zw.Close(); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}

	return nil
}

/*
Load reads the store from a given file replacing all current content.
*/
func (gs *Store) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}
	defer file.Close()

	return gs.LoadFrom(file)
}

/*
LoadFrom reads the store from a given reader.
*/
func (gs *Store) LoadFrom(r io.Reader) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}

	dec := gob.NewDecoder(zr)

	var arc storeArchive

	if err := dec.Decode(&arc); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}

	gs.Clear()

	gs.nvertices = arc.NumVertices
	gs.nedges = arc.NumEdges
	gs.edges = arc.Edges
	gs.inEdges = arc.InEdges
	gs.outEdges = arc.OutEdges
	gs.vcolors = arc.VColors
	gs.finalized = arc.Finalized
	gs.locks = make([]sync.Mutex, arc.NumVertices)

	if err := dec.Decode(&gs.vertices); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}
	if err := dec.Decode(&gs.edgedata); err != nil {
		return &Error{ErrBadArchive, err.Error()}
	}

	if uint32(len(gs.vertices)) != gs.nvertices ||
		uint32(len(gs.edgedata)) != gs.nedges {
		return &Error{ErrBadArchive,
			fmt.Sprintf("Record blocks do not match header counts (%v/%v vertices, %v/%v edges)",
				len(gs.vertices), gs.nvertices, len(gs.edgedata), gs.nedges)}
	}

	return zr.Close()
}

/*
SaveAdjacency writes the adjacency structure as text in "source, target"
per line format.
*/
func (gs *Store) SaveAdjacency(w io.Writer) error {
	for i := uint32(0); i < gs.nedges; i++ {
		if _, err := fmt.Fprintf(w, "%v, %v\n",
			gs.edges[i].Source, gs.edges[i].Target); err != nil {
			return err
		}
	}
	return nil
}
