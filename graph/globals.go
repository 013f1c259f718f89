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
Package graph contains the distributed graph fragment of a cluster member.

A Graph object presents one logical graph to its user. Vertices are
partitioned across members. Each vertex is owned by a unique member. Each
edge is owned by its target vertex's owner. Each member stores all data for
vertices and edges within its partition, as well as replicas (ghosts) of
vertices and edges on the boundary of the partition.

All read accessors serve from the local store if the requested entity is
present locally and the local replica is authoritative. Otherwise the
request is routed to the owning member. All writes are sent to the owner.
Writes do not update replicas on other members unless explicitly requested
through the synchronization operations - ghost replicas are reconciled with
their owner via a versioned pull protocol (see sync.go).

The fragment is built once at startup from a set of atom files. The
topology is immutable thereafter - only vertex and edge data changes at
runtime.
*/
package graph

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"devt.de/krotik/common/errorutil"

	"devt.de/krotik/gravel/graph/store"
)

/*
VertexID is a global vertex identifier.
*/
type VertexID = store.VertexID

/*
EdgeID is a global edge identifier.
*/
type EdgeID = store.EdgeID

/*
ProcID identifies a cluster member.
*/
type ProcID = store.ProcID

/*
Error is a graph related error.
*/
type Error struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *Error) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Graph related error types
*/
var (
	ErrBootstrap      = errors.New("Fragment construction error")
	ErrNotLocal       = errors.New("Entity is not in the local fragment")
	ErrUnknownOwner   = errors.New("Unknown entity owner")
	ErrCanonicalEdges = errors.New("Remote edge request impossible due to use of canonical edge numbering")
)

// Serialization helpers
// =====================

/*
toBytes converts a given object to bytes. This function panics on errors.
*/
func toBytes(v interface{}) []byte {
	var bb bytes.Buffer

	errorutil.AssertOk(gob.NewEncoder(&bb).Encode(v))

	return bb.Bytes()
}

/*
fromBytes converts bytes back into a given object. This function panics on
errors.
*/
func fromBytes(b []byte, v interface{}) {
	errorutil.AssertOk(gob.NewDecoder(bytes.NewReader(b)).Decode(v))
}
