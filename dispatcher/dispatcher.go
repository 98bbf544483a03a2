// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatcher serializes all metric mutations and test reads onto a
// single worker goroutine, in FIFO order. Hosts may therefore call the
// recording API from any thread; submission never blocks on I/O.
//
// Until the core signals readiness, submitted tasks accumulate in a bounded
// pre-init buffer. Overflowing the buffer drops the oldest task and counts
// the drop. FlushInit drains the buffer in submission order and switches the
// dispatcher to direct execution.
package dispatcher // import "github.com/wlach/glean/dispatcher"

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wlach/glean/sdkmetrics"
)

// PreInitQueueSize bounds the number of tasks buffered before FlushInit.
const PreInitQueueSize = 100

type task struct {
	fn func()
	// done is closed after fn ran; only set for fence tasks.
	done chan struct{}
}

// Dispatcher is the single-writer task queue. The zero value is not usable;
// construct with New.
type Dispatcher struct {
	mu   sync.Mutex
	cond *sync.Cond

	preInit []task
	queue   []task
	flushed bool
	stopped bool

	workerDone chan struct{}
}

// New creates a dispatcher and starts its worker. Tasks are buffered until
// FlushInit is called.
func New() *Dispatcher {
	d := &Dispatcher{workerDone: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.worker()
	return d
}

// Launch submits fn for execution. Before FlushInit the task is buffered;
// once the buffer is full the oldest buffered task is dropped.
func (d *Dispatcher) Launch(fn func()) {
	d.launch(task{fn: fn})
}

func (d *Dispatcher) launch(t task) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		log.Warnf("Task submitted after dispatcher shutdown, dropping")
		return
	}
	if !d.flushed {
		if len(d.preInit) >= PreInitQueueSize {
			d.preInit = d.preInit[1:]
			sdkmetrics.Add(sdkmetrics.IDPreInitTaskOverflow, 1)
			log.Warnf("Pre-init task buffer overflow, dropped oldest task")
		}
		d.preInit = append(d.preInit, t)
		return
	}
	d.queue = append(d.queue, t)
	d.cond.Signal()
}

// FlushInit replays the pre-init buffer in submission order and switches the
// dispatcher to direct execution. Calling it again is a no-op.
func (d *Dispatcher) FlushInit() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.flushed {
		return
	}
	d.flushed = true
	d.queue = append(d.queue, d.preInit...)
	d.preInit = nil
	d.cond.Signal()
}

// BlockOnQueue submits a fence and waits until it, and therefore every
// previously submitted task, has completed. This is the happens-before
// guarantee behind the test-mode readers. Must not be called before
// FlushInit.
func (d *Dispatcher) BlockOnQueue() {
	done := make(chan struct{})
	d.launch(task{fn: func() {}, done: done})

	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return
	}
	<-done
}

// Shutdown drains the queue, stops the worker and waits for it to exit.
func (d *Dispatcher) Shutdown() {
	d.BlockOnQueue()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.cond.Signal()
	d.mu.Unlock()

	<-d.workerDone
}

func (d *Dispatcher) worker() {
	defer close(d.workerDone)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.stopped {
			d.mu.Unlock()
			return
		}
		t := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		t.fn()
		if t.done != nil {
			close(t.done)
		}
	}
}
