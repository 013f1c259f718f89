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
	"encoding/gob"
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"
)

func init() {

	// Make sure we can use the relevant types in a gob operation

	gob.Register(&MemberToken{})
	gob.Register([]byte{})
	gob.Register("")
}

/*
DialTimeout is the dial timeout for RPC connections
*/
var DialTimeout = 10 * time.Second

/*
MemberToken is used to authenticate a member in the cluster
*/
type MemberToken struct {
	MemberName string
	MemberAuth string
}

/*
Client is the client for the RPC cluster API of a cluster member.
*/
type Client struct {
	token   *MemberToken           // Token to be send to other members for authentication
	name    string                 // Name of the owning member
	rpc     string                 // This client's rpc network interface
	peers   map[string]string      // Map of member names to their rpc network interface
	conns   map[string]*rpc.Client // Map of member names to network connections
	maplock *sync.RWMutex          // Lock for maps
	oneway  sync.WaitGroup         // Tracker for in-flight one-way calls
}

/*
MemberErrors map for simulated member errors (only used for testing)
*/
var MemberErrors map[string]error

/*
Peers returns all configured peers of this member.
*/
func (mc *Client) Peers() []string {
	var ret []string

	mc.maplock.RLock()
	defer mc.maplock.RUnlock()

	for p := range mc.peers {
		ret = append(ret, p)
	}

	return ret
}

/*
SendRequest sends a request to another cluster member and waits for the
reply. Communication errors with a peer are not recoverable - the cluster
does not support failover - and should be treated as fatal by the caller.
*/
func (mc *Client) SendRequest(member string, remoteCall RPCFunction,
	args []byte) ([]byte, error) {

	conn, request, err := mc.prepareRequest(member, remoteCall, args)
	if err != nil {
		return nil, err
	}

	var response interface{}

	LogDebug(mc.token.MemberName, ": ",
		fmt.Sprintf("> %v.%v", member, remoteCall))

	if err = MemberErrors[member]; err == nil {
		err = conn.Call("Server.Invoke", request, &response)
	}

	LogDebug(mc.token.MemberName, ": ",
		fmt.Sprintf("< %v.%v (err=%v)", member, remoteCall, err))

	if err != nil {
		return nil, mc.handleError(member, err)
	}

	if response == nil {
		return nil, nil
	}

	return response.([]byte), nil
}

/*
SendOneway sends a request to another cluster member without waiting for a
reply. The call is tracked and waited for by FlushOneway. Errors of the
call surface asynchronously through the error handler of the one-way
completion goroutine.
*/
func (mc *Client) SendOneway(member string, remoteCall RPCFunction, args []byte) error {

	conn, request, err := mc.prepareRequest(member, remoteCall, args)
	if err != nil {
		return err
	}

	LogDebug(mc.token.MemberName, ": ",
		fmt.Sprintf("-> %v.%v", member, remoteCall))

	mc.oneway.Add(1)

	var response interface{}

	call := conn.Go("Server.Invoke", request, &response, make(chan *rpc.Call, 1))

	go func() {
		<-call.Done

		if call.Error != nil {
			LogInfo(mc.token.MemberName, ": ",
				fmt.Sprintf("One-way call %v.%v failed: %v", member, remoteCall, call.Error))
		}

		mc.oneway.Done()
	}()

	return nil
}

/*
FlushOneway waits until every one-way call issued by this client has been
delivered and processed by its target.
*/
func (mc *Client) FlushOneway() {
	mc.oneway.Wait()
}

/*
SendPing sends a ping to a member and returns its name.
*/
func (mc *Client) SendPing(member string) (string, error) {
	res, err := mc.SendRequest(member, RPCPing, nil)

	if err != nil {
		return "", err
	}

	return string(res), nil
}

// Helper functions
// ================

/*
prepareRequest assembles the request object and the connection for a call
to a given member.
*/
func (mc *Client) prepareRequest(member string, remoteCall RPCFunction,
	args []byte) (*rpc.Client, map[RequestArgument]interface{}, error) {

	mc.maplock.RLock()
	laddr, ok := mc.peers[member]
	conn, connOk := mc.conns[member]
	mc.maplock.RUnlock()

	if !ok {
		return nil, nil, &Error{ErrUnknownPeer, member}
	}

	if !connOk {
		c, err := net.DialTimeout("tcp", laddr, DialTimeout)

		if err != nil {
			LogDebug(mc.token.MemberName, ": ",
				fmt.Sprintf("- %v.%v (laddr=%v err=%v)", member, remoteCall, laddr, err))
			return nil, nil, mc.handleError(member, err)
		}

		conn = rpc.NewClient(c)

		mc.maplock.Lock()
		mc.conns[member] = conn
		mc.maplock.Unlock()
	}

	request := map[RequestArgument]interface{}{
		RequestTARGET: member,
		RequestTOKEN:  mc.token,
		RequestFN:     string(remoteCall),
		RequestSOURCE: mc.name,
	}

	if args != nil {
		request[RequestARGS] = args
	}

	return conn, request, nil
}

/*
handleError categorizes errors of a remote call. Network errors drop the
cached connection so a subsequent diagnostic attempt gets a fresh dial.
*/
func (mc *Client) handleError(member string, err error) error {

	if _, ok := err.(net.Error); ok {

		mc.maplock.Lock()
		delete(mc.conns, member)
		mc.maplock.Unlock()

		return &Error{ErrMemberComm, err.Error()}
	}

	return &Error{ErrMemberError, err.Error()}
}
