/*
 * Gravel
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package scheduler

import "sync"

/*
Terminator decides when a group of workers has run out of work. Workers
which find their queues drained enter a critical section, re-check for
work and - if there is none - go to sleep inside EndCriticalSection.
Termination is declared once every worker sleeps at the same time with no
new job having arrived since.
*/
type Terminator interface {

	/*
		NewJob signals that new work was created for a given worker. Sleeping
		workers are woken up.
	*/
	NewJob(cpuid int)

	/*
		CompletedJob signals that a unit of work was finished.
	*/
	CompletedJob()

	/*
		BeginCriticalSection starts the termination protocol for a worker
		which believes it has run out of work. The worker must re-check its
		work sources before calling EndCriticalSection and must call
		CancelCriticalSection if it found work after all.
	*/
	BeginCriticalSection(cpuid int)

	/*
		CancelCriticalSection aborts the termination protocol for a worker.
	*/
	CancelCriticalSection(cpuid int)

	/*
		EndCriticalSection puts a worker to sleep until new work arrives or
		termination is declared. Returns true if the workers terminated.
	*/
	EndCriticalSection(cpuid int) bool

	/*
		Done returns whether termination was declared.
	*/
	Done() bool

	/*
		Reset re-arms the terminator.
	*/
	Reset()
}

/*
CriticalTermination is the critical section based termination detector.
*/
type CriticalTermination struct {
	lock     *sync.Mutex
	cond     *sync.Cond
	ncpus    int
	sleeping int    // Number of workers currently sleeping
	jobGen   uint64 // Incremented whenever a new job arrives
	done     bool
}

/*
NewCriticalTermination creates a new critical termination detector for a
given number of workers.
*/
func NewCriticalTermination(ncpus int) *CriticalTermination {
	lock := &sync.Mutex{}
	return &CriticalTermination{lock, sync.NewCond(lock), ncpus, 0, 0, false}
}

/*
NewJob signals that new work was created for a given worker.
*/
func (ct *CriticalTermination) NewJob(cpuid int) {
	ct.lock.Lock()
	ct.jobGen++
	ct.cond.Broadcast()
	ct.lock.Unlock()
}

/*
CompletedJob signals that a unit of work was finished.
*/
func (ct *CriticalTermination) CompletedJob() {
}

/*
BeginCriticalSection starts the termination protocol for a worker. The
internal lock is held until the protocol is cancelled or ended - work
re-checks between begin and end therefore race with nobody.
*/
func (ct *CriticalTermination) BeginCriticalSection(cpuid int) {
	ct.lock.Lock()
}

/*
CancelCriticalSection aborts the termination protocol for a worker.
*/
func (ct *CriticalTermination) CancelCriticalSection(cpuid int) {
	ct.lock.Unlock()
}

/*
EndCriticalSection puts a worker to sleep until new work arrives or
termination is declared. Returns true if the workers terminated.
*/
func (ct *CriticalTermination) EndCriticalSection(cpuid int) bool {
	ct.sleeping++

	if ct.sleeping == ct.ncpus {

		// Everybody sleeps with no new job since the last re-check -
		// declare termination

		ct.done = true
		ct.cond.Broadcast()

	} else {

		gen := ct.jobGen

		for !ct.done && gen == ct.jobGen {
			ct.cond.Wait()
		}
	}

	ct.sleeping--

	done := ct.done

	ct.lock.Unlock()

	return done
}

/*
Done returns whether termination was declared.
*/
func (ct *CriticalTermination) Done() bool {
	ct.lock.Lock()
	defer ct.lock.Unlock()

	return ct.done
}

/*
Reset re-arms the terminator.
*/
func (ct *CriticalTermination) Reset() {
	ct.lock.Lock()
	ct.done = false
	ct.sleeping = 0
	ct.jobGen = 0
	ct.lock.Unlock()
}
