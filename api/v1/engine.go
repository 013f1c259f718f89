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
Package v1 contains Gravel's REST API version 1.

Engine endpoint

/engine

The engine endpoint returns the state of the local engine as JSON:
scheduler statistics, pending asynchronous synchronizations and
termination state.

/engine/members

Returns the list of cluster members.

/engine-sock

Websocket endpoint which streams engine state snapshots to the client
while the engine is running (see engine-sock.go).
*/
package v1

import (
	"encoding/json"
	"net/http"

	"devt.de/krotik/gravel/api"
)

/*
APIv1 is the directory for version 1 of the API
*/
const APIv1 = "/v1"

/*
EndpointEngine is the engine endpoint URL (rooted). Handles everything
under engine/...
*/
const EndpointEngine = api.APIRoot + APIv1 + "/engine/"

/*
V1EndpointMap is a map of urls to endpoints for version 1 of the API
*/
var V1EndpointMap = map[string]api.RestEndpointInst{
	EndpointEngine:     EngineEndpointInst,
	EndpointEngineSock: EngineSockEndpointInst,
}

/*
EngineEndpointInst creates a new endpoint handler.
*/
func EngineEndpointInst() api.RestEndpointHandler {
	return &engineEndpoint{}
}

/*
Handler object for engine state queries.
*/
type engineEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET handles an engine state query REST call.
*/
func (ee *engineEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {
	var data interface{}

	if api.Engine == nil {
		http.Error(w, "No engine is running on this instance", http.StatusServiceUnavailable)
		return
	}

	if len(resources) == 1 && resources[0] == "members" {

		// Cluster member list is requested

		data = api.MM.Members()

	} else {

		// By default the engine state is returned

		data = api.Engine.Status()
	}

	// Write data

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(data)
}
