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
Package api contains general REST API definitions.

The REST API provides a monitoring interface to a running engine. It
exposes engine and cluster state as JSON. The API responds to GET requests
in JSON if the request was successful (Return code 200 OK) and plain text
in all other cases.

Common API definitions

/about

Endpoint which returns an object with version information.

	api_versions : List of available API versions e.g. [ "v1" ]
	product      : Name of the API provider (Gravel)
	version:     : Version of the API provider
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"devt.de/krotik/gravel/cluster"
	"devt.de/krotik/gravel/config"
	"devt.de/krotik/gravel/engine"
)

/*
APIRoot is the root directory for the REST API
*/
const APIRoot = "/api"

/*
APIHost is the host definition for the REST API
*/
var APIHost = "localhost:9040"

/*
Engine is the engine which is exposed by the REST API
*/
var Engine *engine.Engine

/*
MM is the member manager which is exposed by the REST API
*/
var MM *cluster.MemberManager

/*
RestEndpointInst models a factory function for REST endpoint handlers.
*/
type RestEndpointInst func() RestEndpointHandler

/*
RestEndpointHandler models a REST endpoint handler.
*/
type RestEndpointHandler interface {

	/*
		HandleGET handles a GET request.
	*/
	HandleGET(w http.ResponseWriter, r *http.Request, resources []string)
}

/*
DefaultEndpointHandler is the default endpoint handler implementation.
*/
type DefaultEndpointHandler struct {
}

/*
HandleGET is a method stub returning an error.
*/
func (de *DefaultEndpointHandler) HandleGET(w http.ResponseWriter, r *http.Request,
	resources []string) {

	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

/*
RegisterRestEndpoints registers all given REST endpoint handlers.
*/
func RegisterRestEndpoints(endpointInsts map[string]RestEndpointInst) {

	for url, endpointInst := range endpointInsts {
		url, endpointInst := url, endpointInst

		http.HandleFunc(url, func(w http.ResponseWriter, r *http.Request) {

			// Create a new handler instance

			handler := endpointInst()

			// Handle request in appropriate method

			res := strings.TrimSpace(r.URL.Path[len(url):])

			if len(res) > 0 && res[len(res)-1] == '/' {
				res = res[:len(res)-1]
			}

			var resources []string

			if res != "" {
				resources = strings.Split(res, "/")
			}

			switch r.Method {
			case "GET":
				handler.HandleGET(w, r, resources)

			default:
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			}
		})
	}
}

/*
GeneralEndpointMap contains the endpoints which are version independent
*/
var GeneralEndpointMap = map[string]RestEndpointInst{
	EndpointAbout: AboutEndpointInst,
}

/*
EndpointAbout is the about endpoint URL (rooted). Handles about/
*/
const EndpointAbout = APIRoot + "/about/"

/*
AboutEndpointInst creates a new endpoint handler.
*/
func AboutEndpointInst() RestEndpointHandler {
	return &aboutEndpoint{}
}

/*
Handler object for about operations.
*/
type aboutEndpoint struct {
	*DefaultEndpointHandler
}

/*
HandleGET returns about data for the REST API.
*/
func (a *aboutEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	data := map[string]interface{}{
		"api_versions": []string{"v1"},
		"product":      "Gravel",
		"version":      config.ProductVersion,
	}

	// Write data

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(data)
}
