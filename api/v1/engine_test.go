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
	"net/http"
	"net/http/httptest"
	"testing"

	"devt.de/krotik/gravel/api"
)

func TestEngineEndpointNoEngine(t *testing.T) {

	// Without a running engine the endpoint reports service unavailable

	api.Engine = nil

	handler := EngineEndpointInst()

	req := httptest.NewRequest("GET", EndpointEngine, nil)
	w := httptest.NewRecorder()

	handler.HandleGET(w, req, nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Error("Unexpected response code:", w.Code)
		return
	}

	sockHandler := EngineSockEndpointInst()

	req = httptest.NewRequest("GET", EndpointEngineSock, nil)
	w = httptest.NewRecorder()

	sockHandler.HandleGET(w, req, nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Error("Unexpected response code:", w.Code)
		return
	}
}
