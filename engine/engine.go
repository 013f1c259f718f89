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
Package engine contains the worker engine of a cluster member.

An Engine binds the distributed graph fragment and the scheduler of a
member together and drives a user supplied update function with a set of
worker threads. Workers drain the scheduler, run the update function
against the graph and enter the termination protocol when their queues run
dry. The engine terminates once the termination detector declares that
every worker has been continuously idle with no new messages.

The peer-local fragment, the directories and the scheduler are logically
one system - the engine object owns them and is propagated explicitly to
all collaborators.
*/
package engine

import (
	"sync"
	"sync/atomic"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/common/timeutil"

	"devt.de/krotik/gravel/graph"
	"devt.de/krotik/gravel/scheduler"
)

/*
Logger for engine related messages
*/
var Logger = logutil.GetLogger("gravel.engine")

/*
UpdateFunc is a user supplied function which is run for every scheduled
vertex message.
*/
type UpdateFunc func(ctx *Context)

/*
Context is the execution context of a single update function invocation.
*/
type Context struct {
	engine  *Engine
	CPUID   int               // Worker index running the update
	VID     graph.VertexID    // Vertex the update runs on
	Message scheduler.Message // Combiner-folded aggregate of all scheduled messages
}

/*
Graph returns the distributed graph fragment.
*/
func (ctx *Context) Graph() *graph.Graph {
	return ctx.engine.gr
}

/*
Schedule inserts a message for a given vertex from within an update
function. The vertex is queued on the calling worker.
*/
func (ctx *Context) Schedule(vid graph.VertexID, msg scheduler.Message) {
	ctx.engine.sched.ScheduleFromExecutionThread(ctx.CPUID, vid, msg)
}

/*
Engine drives the message driven computation of a cluster member.
*/
type Engine struct {
	gr         *graph.Graph
	sched      *scheduler.Scheduler
	updateFunc UpdateFunc
	ncpus      int

	wg      sync.WaitGroup
	stopped int32

	tasksExecuted  uint64
	startTimestamp string
}

/*
NewEngine creates a new engine for a given fragment. The options map is
passed to the scheduler.
*/
func NewEngine(gr *graph.Graph, ncpus int, options map[string]interface{},
	updateFunc UpdateFunc) *Engine {

	return &Engine{
		gr:         gr,
		sched:      scheduler.NewScheduler(gr.NumVertices(), ncpus, options),
		updateFunc: updateFunc,
		ncpus:      ncpus,
	}
}

/*
Graph returns the distributed graph fragment of this engine.
*/
func (e *Engine) Graph() *graph.Graph {
	return e.gr
}

/*
Scheduler returns the scheduler of this engine.
*/
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}

/*
Terminator returns the termination detector of this engine.
*/
func (e *Engine) Terminator() scheduler.Terminator {
	return e.sched.Terminator()
}

/*
Schedule inserts a message for a given vertex.
*/
func (e *Engine) Schedule(vid graph.VertexID, msg scheduler.Message) {
	e.sched.Schedule(vid, msg)
}

/*
Start flushes the scheduler and launches the worker threads. Messages
scheduled before Start are observed by the workers.
*/
func (e *Engine) Start() {
	Logger.Info(e.gr.Name(), ": Starting engine with ", e.ncpus, " workers")

	atomic.StoreInt32(&e.stopped, 0)
	e.startTimestamp = timeutil.MakeTimestamp()

	e.sched.Start()

	e.wg.Add(e.ncpus)

	for w := 0; w < e.ncpus; w++ {
		go e.worker(w)
	}
}

/*
Join blocks until the termination detector declares global termination and
all worker threads have exited. Outstanding asynchronous synchronizations
are waited for before returning.
*/
func (e *Engine) Join() {
	e.wg.Wait()
	e.gr.WaitForAllAsyncSyncs()

	Logger.Info(e.gr.Name(), ": Engine terminated after ",
		atomic.LoadUint64(&e.tasksExecuted), " tasks")
}

/*
Stop cooperatively stops all workers without waiting for the scheduler to
drain.
*/
func (e *Engine) Stop() {
	atomic.StoreInt32(&e.stopped, 1)

	// Wake up sleeping workers so they can observe the stop flag

	e.sched.Terminator().NewJob(0)

	e.wg.Wait()
}

/*
TasksExecuted returns the number of update function invocations.
*/
func (e *Engine) TasksExecuted() uint64 {
	return atomic.LoadUint64(&e.tasksExecuted)
}

/*
Status returns a snapshot of the engine state for monitoring.
*/
func (e *Engine) Status() map[string]interface{} {
	return map[string]interface{}{
		"member":        e.gr.Name(),
		"workers":       e.ncpus,
		"tasks":         atomic.LoadUint64(&e.tasksExecuted),
		"joins":         e.sched.NumJoins(),
		"ghosts":        e.gr.NumGhosts(),
		"pending_async": e.gr.PendingAsyncUpdates(),
		"terminated":    e.sched.Terminator().Done(),
		"started":       e.startTimestamp,
		"vertices":      e.gr.NumVertices(),
		"edges":         e.gr.NumEdges(),
	}
}

/*
worker is the main loop of a single worker thread.
*/
func (e *Engine) worker(cpuid int) {
	defer e.wg.Done()

	term := e.sched.Terminator()

	for atomic.LoadInt32(&e.stopped) == 0 {

		status, vid, msg := e.sched.GetNext(cpuid)

		if status == scheduler.NewTask {
			e.execute(cpuid, vid, msg)
			continue
		}

		// The queues ran dry - enter the termination protocol and re-check
		// for work inside the critical section

		term.BeginCriticalSection(cpuid)

		status, vid, msg = e.sched.GetNext(cpuid)

		if status == scheduler.NewTask {
			term.CancelCriticalSection(cpuid)
			e.execute(cpuid, vid, msg)
			continue
		}

		if term.EndCriticalSection(cpuid) {
			return
		}
	}
}

/*
execute runs the update function for a single task.
*/
func (e *Engine) execute(cpuid int, vid graph.VertexID, msg scheduler.Message) {
	atomic.AddUint64(&e.tasksExecuted, 1)

	e.updateFunc(&Context{e, cpuid, vid, msg})

	e.sched.Completed(cpuid, vid, msg)
}
