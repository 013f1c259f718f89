/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package atom contains the reader code for persisted graph shards.

Atoms are produced by the external graph partitioner. Each atom stores the
identifier maps, the edge structure and the data payloads of one shard of
the overall graph. An atom index file describes the full set of atoms of a
graph together with the total vertex and edge counts.

The graph package consumes atoms through the File interface - the disk
format provided here is a gzip compressed gob archive but any other reader
satisfying the interface can be used.
*/
package atom

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"devt.de/krotik/gravel/graph/store"
)

/*
Atom related error types
*/
var (
	ErrBadIndex    = errors.New("Invalid atom index file")
	ErrBadAtom     = errors.New("Invalid atom file")
	ErrBadProtocol = errors.New("Unsupported atom protocol")
)

/*
SrcDest is an atom-local source / target vertex index pair.
*/
type SrcDest struct {
	Src store.VertexID
	Dest store.VertexID
}

/*
File is the contract of a single atom reader. The id map, structure and
data stages can be loaded separately so a consumer never needs to keep
more than one fully loaded atom in memory.
*/
type File interface {

	/*
		GlobalVIDs returns the global vertex IDs of the atom (dense
		atom-local index to global ID).
	*/
	GlobalVIDs() []store.VertexID

	/*
		GlobalEIDs returns the global edge IDs of the atom. An empty
		sequence signals canonical edge numbering.
	*/
	GlobalEIDs() []store.EdgeID

	/*
		EdgeSrcDest returns the atom-local source / target pairs of all
		edges (parallel to GlobalEIDs if global edge IDs are provided).
	*/
	EdgeSrcDest() []SrcDest

	/*
		Atom returns for each atom-local vertex the atom number the vertex
		actually belongs to (may differ from this atom if the vertex is a
		boundary vertex).
	*/
	Atom() []uint32

	/*
		VColor returns the colors of all atom-local vertices.
	*/
	VColor() []uint32

	/*
		VData returns the payloads of all atom-local vertices.
	*/
	VData() [][]byte

	/*
		EData returns the payloads of all atom-local edges.
	*/
	EData() [][]byte

	/*
		LoadIDMaps loads the identifier maps of the atom.
	*/
	LoadIDMaps() error

	/*
		LoadStructure loads the edge structure of the atom.
	*/
	LoadStructure() error

	/*
		LoadAll loads everything including the data payloads.
	*/
	LoadAll() error

	/*
		Clear releases all loaded content.
	*/
	Clear()
}

// Atom index file
// ===============

/*
IndexEntry describes the location of a single atom.
*/
type IndexEntry struct {
	Protocol string `json:"protocol"`
	File     string `json:"file"`
}

/*
Index is the descriptor of all atoms of a graph.
*/
type Index struct {
	Atoms  []IndexEntry `json:"atoms"`
	NVerts uint32       `json:"nverts"`
	NEdges uint32       `json:"nedges"`
}

/*
LoadIndex reads an atom index file.
*/
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
	}

	var index Index

	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadIndex, err)
	}

	return &index, nil
}

/*
Save writes the atom index to a file.
*/
func (idx *Index) Save(path string) error {
	data, err := json.MarshalIndent(idx, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadIndex, err)
	}

	return os.WriteFile(path, data, 0644)
}

// Disk atoms
// ==========

/*
Content is the persisted content of a single atom.
*/
type Content struct {
	GlobalVIDs  []store.VertexID
	GlobalEIDs  []store.EdgeID
	EdgeSrcDest []SrcDest
	Atom        []uint32
	VColor      []uint32
	VData       [][]byte
	EData       [][]byte
}

/*
SaveContent writes atom content as a gzip compressed gob archive.
*/
func SaveContent(path string, content *Content) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAtom, err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)

	if err := gob.NewEncoder(zw).Encode(content); err != nil {
		return fmt.Errorf("%w: %v", ErrBadAtom, err)
	}

	return zw.Close()
}

/*
OpenFile creates a reader for a single atom. Only the "file" protocol is
supported by this implementation.
*/
func OpenFile(protocol string, path string) (File, error) {
	if protocol != "file" {
		return nil, fmt.Errorf("%w: %v", ErrBadProtocol, protocol)
	}

	return &diskFile{path, nil}, nil
}

/*
diskFile is a file based atom reader.
*/
type diskFile struct {
	path    string
	content *Content
}

/*
load reads the atom archive from disk if it is not already loaded.
*/
func (df *diskFile) load() error {
	if df.content != nil {
		return nil
	}

	file, err := os.Open(df.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAtom, err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadAtom, err)
	}

	var content Content

	if err := gob.NewDecoder(zr).Decode(&content); err != nil {
		return fmt.Errorf("%w: %v", ErrBadAtom, err)
	}

	df.content = &content

	return zr.Close()
}

func (df *diskFile) GlobalVIDs() []store.VertexID { return df.content.GlobalVIDs }
func (df *diskFile) GlobalEIDs() []store.EdgeID   { return df.content.GlobalEIDs }
func (df *diskFile) EdgeSrcDest() []SrcDest       { return df.content.EdgeSrcDest }
func (df *diskFile) Atom() []uint32               { return df.content.Atom }
func (df *diskFile) VColor() []uint32             { return df.content.VColor }
func (df *diskFile) VData() [][]byte              { return df.content.VData }
func (df *diskFile) EData() [][]byte              { return df.content.EData }

func (df *diskFile) LoadIDMaps() error    { return df.load() }
func (df *diskFile) LoadStructure() error { return df.load() }
func (df *diskFile) LoadAll() error       { return df.load() }

func (df *diskFile) Clear() { df.content = nil }

// Partition helpers
// =================

/*
RoundRobinPartition produces a simple round robin assignment of atoms to
partitions. The real assignment is normally produced by the external
partitioner - this helper covers single process setups and tests.
*/
func RoundRobinPartition(numAtoms int, numPartitions int) [][]int {
	partitions := make([][]int, numPartitions)

	for i := 0; i < numAtoms; i++ {
		partitions[i%numPartitions] = append(partitions[i%numPartitions], i)
	}

	return partitions
}
