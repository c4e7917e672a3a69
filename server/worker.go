package server

import (
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("worker stopped")

// workspace is the set of open documents. Only the worker goroutine
// touches it.
type workspace struct {
	docs map[string]*document
}

// request represents a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func(*workspace) interface{}
	done chan result
}

// result holds the return value from a workspace operation.
type result struct {
	value interface{}
	err   error
}

// Worker serializes all document access through a single goroutine.
// LSP requests arrive concurrently; parsing and analysis run one at a time.
type Worker struct {
	ws       *workspace
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		ws:       &workspace{docs: make(map[string]*document)},
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the workspace, recovering from panics.
func (w *Worker) execute(fn func(*workspace) interface{}) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn(w.ws)
	}()
	return res
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*workspace) interface{}) (interface{}, error) {
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once
// and from several goroutines.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// withDocument runs fn on the document at uri, or returns nil when the
// document is not open.
func (w *Worker) withDocument(uri string, fn func(*document) interface{}) interface{} {
	v, err := w.Do(func(ws *workspace) interface{} {
		doc, ok := ws.docs[uri]
		if !ok {
			return nil
		}
		return fn(doc)
	})
	if err != nil {
		log.Errorf("%s: %s", uri, err)
		return nil
	}
	return v
}
