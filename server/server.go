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
Package server contains the startup code for a Gravel cluster member.

The server wires the configured components together: it starts the cluster
member, constructs the local graph fragment from the configured atom index
and creates an engine running the application's update function. If the
monitoring API is enabled, the engine state is exposed over HTTP.

Applications embed the server and supply their vertex update function:

	config.LoadConfigFile("gravel.config.json")

	srv, err := server.NewServer(myUpdateFunc)
	...
	srv.Engine().Schedule(0, &scheduler.SumMessage{Prio: 1})
	srv.Engine().Start()
	srv.Engine().Join()
	srv.Shutdown()
*/
package server

import (
	"fmt"
	"net/http"

	"devt.de/krotik/common/logutil"

	"devt.de/krotik/gravel/api"
	v1 "devt.de/krotik/gravel/api/v1"
	"devt.de/krotik/gravel/cluster"
	"devt.de/krotik/gravel/config"
	"devt.de/krotik/gravel/engine"
	"devt.de/krotik/gravel/graph"
	"devt.de/krotik/gravel/graph/atom"
)

/*
Logger for server related messages
*/
var Logger = logutil.GetLogger("gravel.server")

/*
Server is a fully wired Gravel cluster member.
*/
type Server struct {
	mm *cluster.MemberManager
	gr *graph.Graph
	e  *engine.Engine
}

/*
NewServer creates and starts a cluster member from the global
configuration and constructs its local graph fragment. The call blocks in
the cluster-wide bootstrap barrier until every configured member has
constructed its fragment.
*/
func NewServer(updateFunc engine.UpdateFunc) (*Server, error) {

	peers := make(map[string]string)

	if p, ok := config.Config[config.ClusterPeers].(map[string]interface{}); ok {
		for name, addr := range p {
			peers[name] = fmt.Sprint(addr)
		}
	}

	mm := cluster.NewMemberManager(config.Str(config.MemberRPC),
		config.Str(config.MemberName), config.Str(config.ClusterSecret), peers)

	gr := graph.NewGraph(mm)

	if err := mm.Start(); err != nil {
		return nil, err
	}

	index, err := atom.LoadIndex(config.Str(config.AtomIndexFile))
	if err != nil {
		mm.Shutdown()
		return nil, err
	}

	partitions := atom.RoundRobinPartition(len(index.Atoms), mm.NumProcs())

	if err := gr.ConstructLocalFragment(index, partitions); err != nil {
		mm.Shutdown()
		return nil, err
	}

	e := engine.NewEngine(gr, int(config.Int(config.WorkerCount)),
		map[string]interface{}{
			"queuesize": config.Str(config.SchedulerQueueSize),
		}, updateFunc)

	srv := &Server{mm, gr, e}

	if config.Bool(config.EnableMonitoringAPI) {
		srv.startAPI()
	}

	return srv, nil
}

/*
MemberManager returns the cluster member of this server.
*/
func (s *Server) MemberManager() *cluster.MemberManager {
	return s.mm
}

/*
Graph returns the graph fragment of this server.
*/
func (s *Server) Graph() *graph.Graph {
	return s.gr
}

/*
Engine returns the engine of this server.
*/
func (s *Server) Engine() *engine.Engine {
	return s.e
}

/*
Shutdown stops the engine and the cluster member.
*/
func (s *Server) Shutdown() error {
	s.e.Stop()
	return s.mm.Shutdown()
}

/*
startAPI registers the REST endpoints and serves the monitoring API.
*/
func (s *Server) startAPI() {
	api.Engine = s.e
	api.MM = s.mm
	api.APIHost = fmt.Sprintf("localhost:%v", config.Str(config.HTTPPort))

	api.RegisterRestEndpoints(api.GeneralEndpointMap)
	api.RegisterRestEndpoints(v1.V1EndpointMap)

	go func() {
		Logger.Info(s.mm.Name(), ": Serving monitoring API on ", api.APIHost)

		if err := http.ListenAndServe(api.APIHost, nil); err != nil {
			Logger.Error(s.mm.Name(), ": Monitoring API failed: ", err)
		}
	}()
}
