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

import "sync"

/*
memberBarrier coordinates cluster-wide barriers. Every member - including
the coordinating member itself - enters the barrier via a request to the
first member in the sorted member list (the coordinator serves its own
request directly). The request blocks until all members have arrived.
*/
type memberBarrier struct {
	mm         *MemberManager
	lock       *sync.Mutex
	cond       *sync.Cond
	arrived    int      // Number of members which have arrived
	generation uint64   // Incremented on every barrier release
	seen       []string // Members which arrived in the current generation (debug)
}

/*
newMemberBarrier creates a new barrier coordination object.
*/
func newMemberBarrier(mm *MemberManager) *memberBarrier {
	lock := &sync.Mutex{}
	return &memberBarrier{mm, lock, sync.NewCond(lock), 0, 0, nil}
}

/*
enter registers the arrival of a member and blocks until every cluster
member has arrived.
*/
func (mb *memberBarrier) enter(source string) error {
	mb.lock.Lock()
	defer mb.lock.Unlock()

	generation := mb.generation

	mb.arrived++
	mb.seen = append(mb.seen, source)

	LogDebug(mb.mm.name, ": barrier arrival of ", source,
		" (", mb.arrived, "/", mb.mm.NumProcs(), ")")

	if mb.arrived == mb.mm.NumProcs() {

		// All members arrived - release the barrier

		mb.arrived = 0
		mb.seen = nil
		mb.generation++
		mb.cond.Broadcast()

		return nil
	}

	for generation == mb.generation {
		mb.cond.Wait()
	}

	return nil
}

// Barrier API
// ===========

/*
FullBarrier blocks until every cluster member has entered the barrier.
*/
func (mm *MemberManager) FullBarrier() error {
	_, err := mm.SendRequest(mm.members[0], RPCBarrier, nil)
	return err
}

/*
CommBarrier flushes all outstanding one-way calls of this member and then
blocks until every cluster member has entered the barrier. After the
barrier returns, all one-way communication issued before it has been
processed cluster-wide.
*/
func (mm *MemberManager) CommBarrier() error {
	mm.Client.FlushOneway()
	return mm.FullBarrier()
}

// Local routing
// =============

/*
SendRequest sends a request to a cluster member and waits for the reply.
Requests to this member are served directly without going through the rpc
layer.
*/
func (mm *MemberManager) SendRequest(member string, fn RPCFunction,
	args []byte) ([]byte, error) {

	if member == mm.name {
		return mm.invokeFunction(mm.name, fn, args)
	}

	return mm.Client.SendRequest(member, fn, args)
}

/*
SendOneway sends a request to a cluster member without waiting for the
reply. Requests to this member are served on a separate goroutine and are
tracked like remote one-way calls.
*/
func (mm *MemberManager) SendOneway(member string, fn RPCFunction, args []byte) error {

	if member == mm.name {

		mm.Client.oneway.Add(1)

		go func() {
			defer mm.Client.oneway.Done()

			if _, err := mm.invokeFunction(mm.name, fn, args); err != nil {
				LogInfo(mm.name, ": ",
					"Local one-way call ", fn, " failed: ", err)
			}
		}()

		return nil
	}

	return mm.Client.SendOneway(member, fn, args)
}
