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
	"fmt"
	"sync"
	"testing"

	"devt.de/krotik/gravel/graph/store"
)

/*
createCluster creates and starts a cluster of n in-process members.
*/
func createCluster(t *testing.T, n int, portBase int, secret string) []*MemberManager {
	t.Helper()

	addrs := make(map[string]string)

	for i := 0; i < n; i++ {
		addrs[fmt.Sprintf("member%v", i+1)] = fmt.Sprintf("127.0.0.1:%v", portBase+i)
	}

	var mms []*MemberManager

	for i := 0; i < n; i++ {
		name := fmt.Sprintf("member%v", i+1)

		peers := make(map[string]string)
		for p, addr := range addrs {
			if p != name {
				peers[p] = addr
			}
		}

		mm := NewMemberManager(addrs[name], name, secret, peers)

		if err := mm.Start(); err != nil {
			t.Fatal(err)
		}

		mms = append(mms, mm)
	}

	return mms
}

/*
shutdownCluster shuts all given members down.
*/
func shutdownCluster(t *testing.T, mms []*MemberManager) {
	t.Helper()

	for _, mm := range mms {
		if err := mm.Shutdown(); err != nil {
			t.Error(err)
		}
	}
}

func TestMemberManager(t *testing.T) {
	mms := createCluster(t, 3, 9201, "secret123")
	defer shutdownCluster(t, mms)

	if res := fmt.Sprint(mms[0].Members()); res != "[member1 member2 member3]" {
		t.Error("Unexpected members:", res)
		return
	}

	if mms[0].NumProcs() != 3 {
		t.Error("Unexpected member count:", mms[0].NumProcs())
		return
	}

	// Numeric member IDs follow the sorted member list on every member

	if mms[0].ProcID() != 0 || mms[1].ProcID() != 1 || mms[2].ProcID() != 2 {
		t.Error("Unexpected proc IDs")
		return
	}

	if mms[1].ProcIDOfMember("member3") != 2 {
		t.Error("Unexpected proc ID")
		return
	}

	if mms[1].MemberOfProcID(0) != "member1" {
		t.Error("Unexpected member name")
		return
	}

	if mms[0].NetAddr() != "127.0.0.1:9201" {
		t.Error("Unexpected net addr:", mms[0].NetAddr())
		return
	}

	// Ping a remote member

	if res, err := mms[0].Client.SendPing("member2"); err != nil || res != "member2" {
		t.Error("Unexpected ping result:", res, err)
		return
	}

	// Pinging an unknown member must fail

	if _, err := mms[0].Client.SendPing("member99"); err == nil ||
		err.Error() != "ClusterError: Unknown peer member (member99)" {
		t.Error("Unexpected ping error:", err)
		return
	}

	// Calling an unregistered function must fail

	if _, err := mms[0].SendRequest("member2", RPCFunction("NoSuchFunc"), nil); err == nil {
		t.Error("Unknown function should fail")
		return
	}

	// Registered handlers receive the caller name and the argument blob

	mms[1].RegisterHandler(RPCFunction("Echo"), func(source string, args []byte) ([]byte, error) {
		return []byte(source + ":" + string(args)), nil
	})

	res, err := mms[0].SendRequest("member2", RPCFunction("Echo"), []byte("hello"))

	if err != nil || string(res) != "member1:hello" {
		t.Error("Unexpected echo result:", string(res), err)
		return
	}

	// Local requests bypass the rpc layer

	mms[0].RegisterHandler(RPCFunction("Echo"), func(source string, args []byte) ([]byte, error) {
		return []byte("local:" + string(args)), nil
	})

	res, err = mms[0].SendRequest("member1", RPCFunction("Echo"), []byte("hi"))

	if err != nil || string(res) != "local:hi" {
		t.Error("Unexpected echo result:", string(res), err)
		return
	}
}

func TestInvalidToken(t *testing.T) {
	mms := createCluster(t, 2, 9211, "secret123")
	defer shutdownCluster(t, mms)

	// A member with a wrong secret is rejected by its peers

	rogue := NewMemberManager("127.0.0.1:9213", "member3",
		"wrongsecret", map[string]string{"member1": "127.0.0.1:9211"})

	if _, err := rogue.Client.SendPing("member1"); err == nil {
		t.Error("Invalid token should be rejected")
		return
	}

	// A request from a correctly authenticated member is accepted

	if _, err := mms[0].SendRequest("member2", RPCPing, nil); err != nil {
		t.Error(err)
		return
	}
}

func TestBarrier(t *testing.T) {
	mms := createCluster(t, 3, 9221, "secret123")
	defer shutdownCluster(t, mms)

	// All members must pass the barrier together - several times in a row

	for i := 0; i < 3; i++ {
		var wg sync.WaitGroup

		for _, mm := range mms {
			wg.Add(1)

			go func(mm *MemberManager) {
				defer wg.Done()

				if err := mm.FullBarrier(); err != nil {
					t.Error(err)
				}
			}(mm)
		}

		wg.Wait()
	}

	// A comm barrier flushes one-way calls before entering the barrier

	var handled sync.WaitGroup

	handled.Add(1)

	mms[1].RegisterHandler(RPCFunction("Note"), func(source string, args []byte) ([]byte, error) {
		handled.Done()
		return nil, nil
	})

	if err := mms[0].SendOneway("member2", RPCFunction("Note"), nil); err != nil {
		t.Error(err)
		return
	}

	var wg sync.WaitGroup

	for _, mm := range mms {
		wg.Add(1)

		go func(mm *MemberManager) {
			defer wg.Done()

			if err := mm.CommBarrier(); err != nil {
				t.Error(err)
			}
		}(mm)
	}

	wg.Wait()

	// The one-way call must have been processed by now

	handled.Wait()
}

func TestDirectory(t *testing.T) {
	mms := createCluster(t, 3, 9231, "secret123")
	defer shutdownCluster(t, mms)

	var dirs []*Directory

	for _, mm := range mms {
		dirs = append(dirs, NewDirectory(mm, "vid"))
	}

	// Publish ownership of a range of IDs from their owning members

	for id := uint32(0); id < 30; id++ {
		owner := store.ProcID(id % 3)

		if err := dirs[owner].Set(id, owner); err != nil {
			t.Error(err)
			return
		}
	}

	// Every member must resolve every ID regardless of shard placement

	for id := uint32(0); id < 30; id++ {
		for _, dir := range dirs {
			owner, ok := dir.GetCached(id)

			if !ok || owner != store.ProcID(id%3) {
				t.Error("Unexpected lookup result:", id, owner, ok)
				return
			}
		}
	}

	// Repeated lookups are served from the cache

	for id := uint32(0); id < 30; id++ {
		if owner, ok := dirs[0].GetCached(id); !ok || owner != store.ProcID(id%3) {
			t.Error("Unexpected cached lookup result:", id, owner, ok)
			return
		}
	}

	// Lookup of an unknown ID fails

	if _, ok := dirs[0].GetCached(9999); ok {
		t.Error("Unknown ID should not resolve")
		return
	}
}
