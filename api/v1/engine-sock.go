/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package v1

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"devt.de/krotik/gravel/api"
)

/*
EndpointEngineSock is the engine monitoring endpoint URL (rooted). Handles
websockets under engine-sock/
*/
const EndpointEngineSock = api.APIRoot + APIv1 + "/engine-sock/"

/*
SockInterval is the interval between streamed engine state snapshots
*/
var SockInterval = time.Second

/*
upgrader can upgrade normal requests to websocket communications
*/
var upgrader = websocket.Upgrader{
	Subprotocols:    []string{"engine-monitor"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

/*
EngineSockEndpointInst creates a new endpoint handler.
*/
func EngineSockEndpointInst() api.RestEndpointHandler {
	return &engineSockEndpoint{}
}

/*
Handler object for engine monitoring operations.
*/
type engineSockEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET handles engine monitoring subscriptions.
*/
func (e *engineSockEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if api.Engine == nil {
		http.Error(w, "No engine is running on this instance", http.StatusServiceUnavailable)
		return
	}

	// Upgrade the incoming connection to a websocket
	// If the upgrade fails then the client gets an HTTP error response.

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {

		// We give details here on what went wrong

		w.Write([]byte(err.Error()))
		return
	}

	// Websocket connections support one concurrent reader and one
	// concurrent writer - guard the writer since snapshots and close
	// messages can interleave

	connWMutex := &sync.Mutex{}

	connWMutex.Lock()
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"init_success","payload":{}}`))
	connWMutex.Unlock()

	finished := false

	// Detect the client hanging up

	go func() {
		for !finished {
			if _, _, err := conn.ReadMessage(); err != nil {
				finished = true
			}
		}
	}()

	for !finished {

		res, err := json.Marshal(map[string]interface{}{
			"type":    "engine_status",
			"payload": api.Engine.Status(),
		})

		if err == nil {
			connWMutex.Lock()
			err = conn.WriteMessage(websocket.TextMessage, res)
			connWMutex.Unlock()
		}

		if err != nil {
			finished = true
			break
		}

		time.Sleep(SockInterval)
	}

	connWMutex.Lock()
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	connWMutex.Unlock()

	conn.Close()
}
