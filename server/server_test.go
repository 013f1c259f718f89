/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package server

import (
	"sync/atomic"
	"testing"

	"devt.de/krotik/gravel/config"
	"devt.de/krotik/gravel/engine"
	"devt.de/krotik/gravel/graph"
	"devt.de/krotik/gravel/graph/atom"
	"devt.de/krotik/gravel/scheduler"
)

func TestServer(t *testing.T) {
	dir := t.TempDir()

	// Write a single atom with a directed triangle

	content := &atom.Content{
		GlobalVIDs:  []graph.VertexID{0, 1, 2},
		GlobalEIDs:  []graph.EdgeID{0, 1, 2},
		EdgeSrcDest: []atom.SrcDest{{Src: 0, Dest: 1}, {Src: 1, Dest: 2}, {Src: 2, Dest: 0}},
		Atom:        []uint32{0, 0, 0},
		VColor:      []uint32{0, 1, 2},
		VData:       [][]byte{[]byte("v0"), []byte("v1"), []byte("v2")},
		EData:       [][]byte{[]byte("e0"), []byte("e1"), []byte("e2")},
	}

	if err := atom.SaveContent(dir+"/atom0", content); err != nil {
		t.Fatal(err)
	}

	index := &atom.Index{
		Atoms:  []atom.IndexEntry{{Protocol: "file", File: dir + "/atom0"}},
		NVerts: 3,
		NEdges: 3,
	}

	if err := index.Save(dir + "/index.json"); err != nil {
		t.Fatal(err)
	}

	// Configure a single member cluster without the monitoring API

	config.LoadDefaultConfig()
	config.Config[config.MemberRPC] = "127.0.0.1:9431"
	config.Config[config.AtomIndexFile] = dir + "/index.json"
	config.Config[config.WorkerCount] = "2"
	config.Config[config.EnableMonitoringAPI] = false

	var updates int64

	srv, err := NewServer(func(ctx *engine.Context) {
		atomic.AddInt64(&updates, 1)
	})

	if err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown()

	if srv.Graph().NumVertices() != 3 {
		t.Error("Unexpected graph size:", srv.Graph().NumVertices())
		return
	}

	srv.Engine().Schedule(1, &scheduler.SumMessage{Prio: 1})

	srv.Engine().Start()
	srv.Engine().Join()

	if n := atomic.LoadInt64(&updates); n != 1 {
		t.Error("Unexpected update count:", n)
		return
	}

	if srv.MemberManager().Name() != "member1" {
		t.Error("Unexpected member name")
		return
	}
}

func TestServerBadIndex(t *testing.T) {
	config.LoadDefaultConfig()
	config.Config[config.MemberRPC] = "127.0.0.1:9432"
	config.Config[config.AtomIndexFile] = "nonexistent/index.json"

	if _, err := NewServer(func(ctx *engine.Context) {}); err == nil {
		t.Error("Missing atom index should fail")
		return
	}
}
