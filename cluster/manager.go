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
	"net"
	"net/rpc"
	"sort"
	"sync"

	"devt.de/krotik/gravel/graph/store"
)

/*
RequestHandler is a handler function for cluster requests. It receives the
name of the calling member and a gob-encoded argument blob and produces a
gob-encoded reply blob.
*/
type RequestHandler func(source string, args []byte) ([]byte, error)

/*
MemberManager is the management object for a cluster member.

This is the main object of the clustering code - it contains the main API.
A member registers itself to the rpc server which is the global
Server (server) object. Each cluster member needs to have a unique name.
Communication between members is secured by using a secret string which
is never exchanged over the network and a hash generated token which
identifies a member.

Each MemberManager object contains a Client object which can be used to
communicate with other cluster members.

The membership of the cluster is fixed and must be identical on every
member - the sorted list of member names defines the numeric member IDs
which the engine uses to address owners of graph data.
*/
type MemberManager struct {
	name   string // Name of the cluster member
	secret string // Cluster secret

	members []string // Sorted names of all cluster members (including this one)

	handlers     map[RPCFunction]RequestHandler // Registered request handlers
	handlersLock *sync.RWMutex                  // Lock for handler registry

	barrier *memberBarrier // Barrier coordination state

	Client   *Client        // RPC client object
	listener net.Listener   // RPC server listener
	wg       sync.WaitGroup // RPC server Waitgroup for listener shutdown
}

/*
NewMemberManager creates a new MemberManager object. The peers map must
list every other cluster member (name to rpc network interface) and must
agree with the configuration of all peers.
*/
func NewMemberManager(rpcInterface string, name string, secret string,
	peers map[string]string) *MemberManager {

	// Generate member token

	token := &MemberToken{name, fmt.Sprintf("%X", sha512.Sum512_224([]byte(name+secret)))}

	members := []string{name}
	for peer := range peers {
		members = append(members, peer)
	}
	sort.Strings(members)

	peersCopy := make(map[string]string)
	for k, v := range peers {
		peersCopy[k] = v
	}

	mm := &MemberManager{name, secret, members,
		make(map[RPCFunction]RequestHandler), &sync.RWMutex{}, nil,
		&Client{token, name, rpcInterface, peersCopy,
			make(map[string]*rpc.Client), &sync.RWMutex{}, sync.WaitGroup{}},
		nil, sync.WaitGroup{}}

	mm.barrier = newMemberBarrier(mm)

	return mm
}

// General cluster member API
// ==========================

/*
Start starts the rpc server of this cluster member.
*/
func (mm *MemberManager) Start() error {

	mm.LogInfo("Starting member manager ", mm.name, " rpc server on: ", mm.Client.rpc)

	l, err := net.Listen("tcp", mm.Client.rpc)
	if err != nil {
		return err
	}

	mm.wg.Add(1)

	go func() {
		rpc.Accept(l)
		mm.wg.Done()
		mm.LogInfo("Connection closed: ", mm.Client.rpc)
	}()

	mm.listener = l

	server.managers[mm.name] = mm

	return nil
}

/*
Shutdown shuts the member manager rpc server for this cluster member down.
*/
func (mm *MemberManager) Shutdown() error {

	if mm.listener != nil {
		mm.LogInfo("Shutdown rpc server on: ", mm.Client.rpc)
		mm.listener.Close()
		mm.listener = nil
		mm.wg.Wait()

		delete(server.managers, mm.name)

	} else {
		LogDebug("Member manager ", mm.name, " already shut down")
	}

	return nil
}

/*
LogInfo logs a member related message at info level.
*/
func (mm *MemberManager) LogInfo(v ...interface{}) {
	LogInfo(mm.name, ": ", fmt.Sprint(v...))
}

/*
Name returns the member name.
*/
func (mm *MemberManager) Name() string {
	return mm.name
}

/*
NetAddr returns the network address of the member.
*/
func (mm *MemberManager) NetAddr() string {
	return mm.Client.rpc
}

/*
Members returns the sorted list of all cluster members (including this one).
*/
func (mm *MemberManager) Members() []string {
	ret := make([]string, len(mm.members))
	copy(ret, mm.members)
	return ret
}

/*
NumProcs returns the number of cluster members.
*/
func (mm *MemberManager) NumProcs() int {
	return len(mm.members)
}

/*
ProcID returns the numeric member ID of this member. Numeric member IDs
are the positions in the sorted list of all member names - they are
identical on every member of the cluster.
*/
func (mm *MemberManager) ProcID() store.ProcID {
	return mm.ProcIDOfMember(mm.name)
}

/*
ProcIDOfMember returns the numeric member ID of a given member name.
*/
func (mm *MemberManager) ProcIDOfMember(name string) store.ProcID {
	i := sort.SearchStrings(mm.members, name)

	if i == len(mm.members) || mm.members[i] != name {
		panic(&Error{ErrUnknownPeer, name})
	}

	return store.ProcID(i)
}

/*
MemberOfProcID returns the member name of a given numeric member ID.
*/
func (mm *MemberManager) MemberOfProcID(proc store.ProcID) string {
	if int(proc) >= len(mm.members) {
		panic(&Error{ErrUnknownPeer, fmt.Sprint("proc ", proc)})
	}

	return mm.members[proc]
}

// Request handling
// ================

/*
RegisterHandler registers a handler function for a named remote function.
Registered handlers are called by the rpc server when a remote member
invokes the function on this member.
*/
func (mm *MemberManager) RegisterHandler(fn RPCFunction, handler RequestHandler) {
	mm.handlersLock.Lock()
	mm.handlers[fn] = handler
	mm.handlersLock.Unlock()
}

/*
invokeFunction runs a local or registered function on this member. Core
functions (ping and barrier handling) are served directly; everything else
is routed through the handler registry.
*/
func (mm *MemberManager) invokeFunction(source string, fn RPCFunction,
	args []byte) ([]byte, error) {

	switch fn {

	case RPCPing:
		return []byte(mm.name), nil

	case RPCBarrier:
		return nil, mm.barrier.enter(source)
	}

	mm.handlersLock.RLock()
	handler, ok := mm.handlers[fn]
	mm.handlersLock.RUnlock()

	if !ok {
		return nil, &Error{ErrUnknownFunc, string(fn)}
	}

	return handler(source, args)
}
