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
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/errorutil"
	"github.com/cespare/xxhash/v2"

	"devt.de/krotik/gravel/graph/store"
)

/*
Directory maps global identifiers to their owning member. To avoid
requiring storage proportional to the graph size on every machine the
entries are sharded across all members by hashing the identifier. Lookups
consult a local cache first - ownership is stable for the lifetime of a
fragment so cache entries are never evicted.
*/
type Directory struct {
	mm        *MemberManager     // Member this directory runs on
	fnSet     RPCFunction        // Remote function storing an entry on the shard owner
	fnLookup  RPCFunction        // Remote function retrieving an entry from the shard owner
	local     map[uint32]store.ProcID // Entries of the local shard
	localLock *sync.Mutex        // Lock for the local shard
	cache     *datautil.MapCache // Cache for resolved lookups
}

/*
directoryEntry is the rpc argument object of directory operations.
*/
type directoryEntry struct {
	ID    uint32
	Owner store.ProcID
}

/*
NewDirectory creates a new distributed identifier directory. The given
name distinguishes multiple directories on the same member (e.g. a vertex
and an edge directory) and must be identical on all members.
*/
func NewDirectory(mm *MemberManager, name string) *Directory {

	dd := &Directory{mm, RPCFunction("DirectorySet." + name),
		RPCFunction("DirectoryLookup." + name),
		make(map[uint32]store.ProcID), &sync.Mutex{},
		datautil.NewMapCache(0, 0)}

	mm.RegisterHandler(dd.fnSet, func(source string, args []byte) ([]byte, error) {
		var entry directoryEntry

		if err := gob.NewDecoder(bytes.NewReader(args)).Decode(&entry); err != nil {
			return nil, &Error{ErrMemberError, err.Error()}
		}

		dd.localSet(entry.ID, entry.Owner)

		return nil, nil
	})

	mm.RegisterHandler(dd.fnLookup, func(source string, args []byte) ([]byte, error) {
		var entry directoryEntry

		if err := gob.NewDecoder(bytes.NewReader(args)).Decode(&entry); err != nil {
			return nil, &Error{ErrMemberError, err.Error()}
		}

		owner, ok := dd.localGet(entry.ID)
		if !ok {
			return nil, &Error{ErrUnknownID, fmt.Sprint(name, " ", entry.ID)}
		}

		return encodeEntry(directoryEntry{entry.ID, owner}), nil
	})

	return dd
}

/*
Set publishes the ownership of an identifier. The entry is stored on the
shard owner of the identifier. Called on the owning member for each owned
entity at startup.
*/
func (dd *Directory) Set(id uint32, owner store.ProcID) error {
	shard := dd.shardMember(id)

	if shard == dd.mm.Name() {
		dd.localSet(id, owner)
		return nil
	}

	_, err := dd.mm.SendRequest(shard, dd.fnSet, encodeEntry(directoryEntry{id, owner}))

	return err
}

/*
GetCached looks up the owner of an identifier. The local cache is
consulted first; on a miss a blocking request is issued to the shard owner
and the reply is cached. An unknown identifier (or a failed request)
yields false; callers treat a failed lookup as a programming error.
*/
func (dd *Directory) GetCached(id uint32) (store.ProcID, bool) {

	if owner, ok := dd.cache.Get(cacheKey(id)); ok {
		return owner.(store.ProcID), true
	}

	shard := dd.shardMember(id)

	if shard == dd.mm.Name() {
		owner, ok := dd.localGet(id)
		if ok {
			dd.cache.Put(cacheKey(id), owner)
		}
		return owner, ok
	}

	res, err := dd.mm.SendRequest(shard, dd.fnLookup, encodeEntry(directoryEntry{id, 0}))
	if err != nil {
		return 0, false
	}

	var entry directoryEntry

	errorutil.AssertOk(gob.NewDecoder(bytes.NewReader(res)).Decode(&entry))

	dd.cache.Put(cacheKey(id), entry.Owner)

	return entry.Owner, true
}

// Helper functions
// ================

/*
localSet stores an entry in the local shard.
*/
func (dd *Directory) localSet(id uint32, owner store.ProcID) {
	dd.localLock.Lock()
	dd.local[id] = owner
	dd.localLock.Unlock()
}

/*
localGet retrieves an entry from the local shard.
*/
func (dd *Directory) localGet(id uint32) (store.ProcID, bool) {
	dd.localLock.Lock()
	owner, ok := dd.local[id]
	dd.localLock.Unlock()
	return owner, ok
}

/*
shardMember returns the member which stores the directory entry of a given
identifier.
*/
func (dd *Directory) shardMember(id uint32) string {
	var key [4]byte

	binary.BigEndian.PutUint32(key[:], id)

	return dd.mm.MemberOfProcID(
		store.ProcID(xxhash.Sum64(key[:]) % uint64(dd.mm.NumProcs())))
}

/*
cacheKey returns the cache lookup key of a given identifier.
*/
func cacheKey(id uint32) string {
	return fmt.Sprint(id)
}

/*
encodeEntry converts a directory entry to bytes. This function panics on
errors.
*/
func encodeEntry(entry directoryEntry) []byte {
	var bb bytes.Buffer

	errorutil.AssertOk(gob.NewEncoder(&bb).Encode(entry))

	return bb.Bytes()
}
