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

import (
	"encoding/gob"
	"math"
)

func init() {

	// Make sure we can use the message types in a gob operation

	gob.Register(&SumMessage{})
	gob.Register(&MaxMessage{})
}

/*
Message is a unit of work for a single vertex. Multiple messages scheduled
for the same vertex are merged through the associative and commutative
combiner of the message type before the vertex is handed to a worker.
*/
type Message interface {

	/*
		Combine merges another message of the same type into this message.
	*/
	Combine(other Message)

	/*
		Priority returns the priority of this message.
	*/
	Priority() float64
}

/*
SumMessage is a message whose combiner adds priorities.
*/
type SumMessage struct {
	Prio float64
}

/*
Combine merges another message into this message by adding its priority.
*/
func (m *SumMessage) Combine(other Message) {
	m.Prio += other.(*SumMessage).Prio
}

/*
Priority returns the priority of this message.
*/
func (m *SumMessage) Priority() float64 {
	return m.Prio
}

/*
MaxMessage is a message whose combiner takes the maximum priority.
*/
type MaxMessage struct {
	Prio float64
}

/*
Combine merges another message into this message by taking the maximum of
both priorities.
*/
func (m *MaxMessage) Combine(other Message) {
	m.Prio = math.Max(m.Prio, other.(*MaxMessage).Prio)
}

/*
Priority returns the priority of this message.
*/
func (m *MaxMessage) Priority() float64 {
	return m.Prio
}
