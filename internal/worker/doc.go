// Package worker runs blocking storage calls on a dedicated pool of goroutines.
//
// Callers never execute SQL on their own goroutine: [Do] submits the call and
// waits for the result or for the caller's context, whichever comes first. [Go]
// returns a [Future] instead so the caller can do other work and [Future.Await]
// later.
//
// Cancellation propagates into the call through its context, which is how
// database/sql releases cursors and statements. A write that already committed
// is not undone by a late cancellation; the caller only loses the result.
package worker
