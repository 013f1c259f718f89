/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cluster

import (
	"crypto/sha512"
	"fmt"
	"net/rpc"
)

func init() {

	// Register the cluster API as RPC server

	rpc.Register(server)
}

/*
RPCFunction is the name of a function which can be called on a remote member.
*/
type RPCFunction string

/*
Core remote functions - further functions are registered by higher level
components via MemberManager.RegisterHandler.
*/
const (
	RPCPing    RPCFunction = "Ping"    // Ping a member
	RPCBarrier RPCFunction = "Barrier" // Enter the cluster-wide barrier
)

/*
RequestArgument is an argument key of a request.
*/
type RequestArgument int

/*
Known request arguments
*/
const (
	RequestTARGET RequestArgument = iota // Required - target member of the request
	RequestTOKEN                         // Required - token of the calling member
	RequestFN                            // Required - function to invoke
	RequestSOURCE                        // Required - name of the calling member
	RequestARGS                          // Optional - gob-encoded argument blob
)

/*
server is the local rpc server object. It is a singleton object which
routes rpc calls to registered MemberManagers - this architecture makes it
easy to unit test the cluster code with multiple in-process members.
*/
var server = &Server{make(map[string]*MemberManager)}

/*
Server is the RPC exposed cluster API of a cluster member. Server
communication should be secured and encrypted if running in an untrusted
environment.
*/
type Server struct {
	managers map[string]*MemberManager // Map of local cluster members
}

/*
Invoke routes a remote call to the local member given by RequestTARGET.
*/
func (ms *Server) Invoke(request map[RequestArgument]interface{},
	response *interface{}) error {

	// Verify the given token and retrieve the target member

	manager, err := ms.checkToken(request)
	if err != nil {
		return err
	}

	fn := RPCFunction(fmt.Sprint(request[RequestFN]))
	source := fmt.Sprint(request[RequestSOURCE])

	var args []byte

	if a, ok := request[RequestARGS]; ok {
		args = a.([]byte)
	}

	res, err := manager.invokeFunction(source, fn, args)
	if err != nil {
		return err
	}

	*response = res

	return nil
}

/*
checkToken checks the member token of an incoming request and returns the
addressed target member.
*/
func (ms *Server) checkToken(request map[RequestArgument]interface{}) (*MemberManager, error) {

	// Get the target member

	target := fmt.Sprint(request[RequestTARGET])

	manager, ok := ms.managers[target]
	if !ok {
		return nil, &Error{ErrUnknownTarget, target}
	}

	// Generate expected auth from given requesting member name and the
	// target's secret

	token, ok := request[RequestTOKEN].(*MemberToken)
	if !ok {
		return nil, &Error{ErrInvalidToken, "No token found"}
	}

	expectedAuth := fmt.Sprintf("%X", sha512.Sum512_224([]byte(token.MemberName+manager.secret)))

	if token.MemberAuth != expectedAuth {
		return nil, &Error{ErrInvalidToken, "Invalid member authentication"}
	}

	return manager, nil
}
