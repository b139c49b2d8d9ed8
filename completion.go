package capture

import (
	"log"
	"sync"
)

// CompletionToken identifies exactly one pending request/response operation.
// The token is the only thing the native side retains: it is passed through
// the shim as callback user data and handed back when the one-shot completion
// callback fires. A token is consumed by the first resolution.
type CompletionToken uint64

// resolver is the type-erased completion target stored in the registry.
type resolver[T any] interface {
	complete(value T, err error)
}

// Pending completions, keyed by token. An entry is removed when the token is
// resolved, so a duplicate resolution cannot observe a valid target.
var (
	completionsMu sync.Mutex
	completionSeq CompletionToken
	completions   = make(map[CompletionToken]any)
)

func registerCompletion(r any) CompletionToken {
	completionsMu.Lock()
	completionSeq++
	token := completionSeq
	completions[token] = r
	completionsMu.Unlock()
	return token
}

// takeCompletion consumes the registry entry for token, returning nil if the
// token was already resolved (or never issued).
func takeCompletion(token CompletionToken) any {
	completionsMu.Lock()
	r, ok := completions[token]
	if ok {
		delete(completions, token)
	}
	completionsMu.Unlock()
	if !ok {
		return nil
	}
	return r
}

func newWaiter[T any]() *Waiter[T] {
	return &Waiter[T]{ch: make(chan Result[T], 1)}
}

// Begin creates a blocking waiter for a one-shot completion and the token
// the native side will resolve it with.
func Begin[T any]() (*Waiter[T], CompletionToken) {
	w := newWaiter[T]()
	return w, registerCompletion(w)
}

// BeginAsync creates a pollable waiter for a one-shot completion and the
// token the native side will resolve it with.
func BeginAsync[T any]() (*AsyncWaiter[T], CompletionToken) {
	w := &AsyncWaiter[T]{}
	return w, registerCompletion(w)
}

// ResolveOK delivers a successful result to the waiter registered under
// token. It reports whether the token was still pending; resolving a
// consumed token is a protocol violation and is dropped without effect.
func ResolveOK[T any](token CompletionToken, value T) bool {
	return resolve(token, value, nil)
}

// ResolveErr delivers a failure to the waiter registered under token.
func ResolveErr[T any](token CompletionToken, err error) bool {
	var zero T
	return resolve(token, zero, err)
}

func resolve[T any](token CompletionToken, value T, err error) bool {
	entry := takeCompletion(token)
	if entry == nil {
		// Unknown or already-consumed token: protocol violation by the
		// native side. Dropped, never double-applied.
		log.Printf("capture: duplicate or unknown completion token %d dropped", token)
		return false
	}
	r, ok := entry.(resolver[T])
	if !ok {
		// Result type mismatch between Begin and Resolve call sites.
		log.Printf("capture: completion token %d resolved with wrong result type", token)
		return false
	}
	r.complete(value, err)
	return true
}

// Result pairs a delivered value with its error, as published to a Waiter.
type Result[T any] struct {
	Value T
	Err   error
}

// Waiter is the blocking side of a one-shot completion. The waiting
// goroutine owns the receiving end; the native callback owns the sending end
// until it resolves, after which the token is consumed.
type Waiter[T any] struct {
	ch chan Result[T]
}

// Wait blocks the calling goroutine until the native side resolves the
// operation, then returns the delivered result. There is no timeout;
// callers needing a bounded wait should select on Done with their own
// timer. A Waiter that is abandoned before resolution is harmless: the
// channel is buffered, so a late resolution completes without a receiver.
func (w *Waiter[T]) Wait() (T, error) {
	out := <-w.ch
	return out.Value, out.Err
}

// Done exposes the resolution channel for select-based composition
// (timeouts, cancellation). Receiving from it is equivalent to Wait.
func (w *Waiter[T]) Done() <-chan Result[T] {
	return w.ch
}

func (w *Waiter[T]) complete(value T, err error) {
	// Buffered by one and reachable only through a consumed token, so this
	// send never blocks and never races a second send.
	w.ch <- Result[T]{Value: value, Err: err}
}

// AsyncWaiter is the pollable side of a one-shot completion, usable from
// cooperative schedulers. Poll and resolution synchronize on one mutex so
// that exactly one of {poll observes the result, stored waker is invoked}
// happens when they race.
type AsyncWaiter[T any] struct {
	mu        sync.Mutex
	done      bool
	cancelled bool
	value     T
	err       error
	wake      func()
}

// Poll checks for the resolved result. Before resolution it stores wake
// (replacing any previously stored waker) and reports ready=false; the
// waker will run exactly once when the native side resolves. After
// resolution it returns the delivered result with ready=true. A cancelled
// waiter reports ErrProtocolViolation.
func (w *AsyncWaiter[T]) Poll(wake func()) (value T, ready bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		var zero T
		return zero, true, ErrProtocolViolation
	}
	if w.done {
		return w.value, true, w.err
	}
	w.wake = wake
	var zero T
	return zero, false, nil
}

// Cancel deregisters the stored waker so a late resolution does not invoke
// a dangling callback. The pending native operation itself is not cancelled;
// its eventual resolution is stored and ignored.
func (w *AsyncWaiter[T]) Cancel() {
	w.mu.Lock()
	w.cancelled = true
	w.wake = nil
	w.mu.Unlock()
}

func (w *AsyncWaiter[T]) complete(value T, err error) {
	w.mu.Lock()
	w.value = value
	w.err = err
	w.done = true
	wake := w.wake
	w.wake = nil
	w.mu.Unlock()
	// Invoked outside the lock; the waker may poll again immediately.
	if wake != nil {
		wake()
	}
}

// completionHook forwards a resolution to the wrapped waiter, running onOK
// first when the operation succeeded. Used to commit state transitions
// only once the native side has confirmed them.
type completionHook[T any] struct {
	next resolver[T]
	onOK func()
}

func (h *completionHook[T]) complete(value T, err error) {
	if err == nil && h.onOK != nil {
		h.onOK()
	}
	h.next.complete(value, err)
}

// pendingCompletions reports the number of unresolved tokens (test hook).
func pendingCompletions() int {
	completionsMu.Lock()
	defer completionsMu.Unlock()
	return len(completions)
}
