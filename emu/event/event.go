/*
 * fdcsim - Event scheduler
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package event

import (
	"fmt"
	"math"
)

// Headroom value returned when nothing is scheduled.
const Unbounded = uint64(math.MaxUint64)

type Callback = func()

// Task is owned by the device that created it. The scheduler only links
// to it while it is scheduled.
type Task struct {
	sched     *Scheduler
	expire    uint64   // Epoch task is due at
	cb        Callback // Function to callback
	scheduled bool     // Task is on the list
	prev      *Task
	next      *Task
}

type Scheduler struct {
	epoch uint64 // Current cycle count
	head  *Task
	tail  *Task
}

// Create a new scheduler at epoch zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Current time in cycles.
func (sched *Scheduler) Epoch() uint64 {
	return sched.epoch
}

// Create a task bound to this scheduler.
func (sched *Scheduler) NewTask(cb Callback) *Task {
	return &Task{sched: sched, cb: cb}
}

// Return whether task is currently queued.
func (task *Task) Scheduled() bool {
	return task.scheduled
}

// Epoch task will fire at, only valid when scheduled.
func (task *Task) Expire() uint64 {
	return task.expire
}

// Queue task to fire delay cycles from now.
func (task *Task) Schedule(delay uint64) {
	if task.scheduled {
		panic(fmt.Sprintf("event: task already scheduled for epoch %d", task.expire))
	}
	sched := task.sched
	task.expire = sched.epoch + delay
	task.scheduled = true

	// Scan back from tail for last event due at or before us, keeps FIFO order
	// for equal times.
	evptr := sched.tail
	for evptr != nil && evptr.expire > task.expire {
		evptr = evptr.prev
	}

	if evptr == nil {
		// Put on head of list.
		task.prev = nil
		task.next = sched.head
		if sched.head != nil {
			sched.head.prev = task
		} else {
			sched.tail = task
		}
		sched.head = task
		return
	}

	task.prev = evptr
	task.next = evptr.next
	if evptr.next != nil {
		evptr.next.prev = task
	} else {
		sched.tail = task
	}
	evptr.next = task
}

// Remove task from list, nothing happens if it is not queued.
func (task *Task) Cancel() {
	if !task.scheduled {
		return
	}
	sched := task.sched
	if task.prev != nil {
		task.prev.next = task.next
	} else {
		sched.head = task.next
	}
	if task.next != nil {
		task.next.prev = task.prev
	} else {
		sched.tail = task.prev
	}
	task.prev = nil
	task.next = nil
	task.scheduled = false
}

// Cancel and queue again.
func (task *Task) Reschedule(delay uint64) {
	task.Cancel()
	task.Schedule(delay)
}

// Number of cycles until next task is due.
func (sched *Scheduler) Headroom() uint64 {
	if sched.head == nil {
		return Unbounded
	}
	if sched.head.expire <= sched.epoch {
		return 0
	}
	return sched.head.expire - sched.epoch
}

// Advance time by cycles, firing everything that comes due.
func (sched *Scheduler) Polltime(cycles uint64) {
	target := sched.epoch + cycles
	for sched.head != nil && sched.head.expire <= target {
		task := sched.head
		if task.expire > sched.epoch {
			sched.epoch = task.expire
		}
		// Off the list before the callback so it may reschedule itself.
		task.Cancel()
		task.cb()
	}
	sched.epoch = target
}
