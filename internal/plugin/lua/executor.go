package lua

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// call represents a Lua operation to be executed.
type call struct {
	// fn receives the LState and performs all Lua operations.
	fn func(L *lua.LState) error

	// result receives the outcome and is closed afterwards.
	result chan error
}

// Executor serializes all Lua operations through a single goroutine.
//
// gopher-lua's LState is NOT goroutine-safe. Tile hooks, plugin hooks and
// timer callbacks arrive from many goroutines; the Executor marshals them
// onto the one goroutine that owns the state.
//
// Usage:
//
//	exec := NewExecutor(L, 0)
//	go exec.Run(ctx)
//	defer exec.Close()
//
//	// From any goroutine:
//	err := exec.Execute(ctx, func(L *lua.LState) error {
//	    return L.CallByParam(lua.P{Fn: fn, Protect: true}, arg)
//	})
type Executor struct {
	L       *lua.LState
	queue   chan *call
	closed  atomic.Bool
	done    chan struct{}
	stopped chan struct{}

	// closeOnce ensures Close is only called once
	closeOnce sync.Once
}

// NewExecutor creates a new Executor for the given Lua state.
// The queue size determines how many operations can be buffered.
func NewExecutor(L *lua.LState, queueSize int) *Executor {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Executor{
		L:       L,
		queue:   make(chan *call, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run processes Lua operations from the queue until the context is
// cancelled or Close is called. Queued operations left behind fail.
func (e *Executor) Run(ctx context.Context) {
	defer close(e.stopped)
	for {
		select {
		case <-ctx.Done():
			e.drainQueue(ctx.Err())
			return
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		case c := <-e.queue:
			c.result <- e.executeCall(c)
			close(c.result)
		}
	}
}

// executeCall runs a single Lua operation with panic recovery.
func (e *Executor) executeCall(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("lua panic")
			}
		}
	}()
	return c.fn(e.L)
}

// drainQueue fails the calls still in the queue with err.
func (e *Executor) drainQueue(err error) {
	for {
		select {
		case c := <-e.queue:
			c.result <- err
			close(c.result)
		default:
			return
		}
	}
}

// Execute runs a Lua operation on the executor's goroutine and waits for
// its result. If ctx ends first, Execute returns ctx.Err(); an operation
// that was already queued still runs.
//
// Execute must not be called from inside another operation.
func (e *Executor) Execute(ctx context.Context, fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-c.result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	case <-e.stopped:
		return e.lateResult(c)
	}
}

// lateResult collects the result of a call that may have been queued after
// the executor stopped.
func (e *Executor) lateResult(c *call) error {
	select {
	case err, ok := <-c.result:
		if ok {
			return err
		}
	default:
	}
	return ErrExecutorClosed
}

// Post queues a Lua operation without waiting for it. Errors returned by fn
// are passed to onErr when it is not nil.
func (e *Executor) Post(fn func(L *lua.LState) error, onErr func(error)) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}
	select {
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
		go func() {
			var err error
			select {
			case err = <-c.result:
			case <-e.stopped:
				err = e.lateResult(c)
			}
			if err != nil && onErr != nil {
				onErr(err)
			}
		}()
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the executor and prevents new operations.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}

// Stopped is closed once Run has returned.
func (e *Executor) Stopped() <-chan struct{} {
	return e.stopped
}

// IsClosed returns true if the executor has been closed.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}
