// Package pipeline drives events from a feed through the prefilter, the
// normalizer, the classifier, and finally an action.
//
// The Driver is single-threaded: Run must be called from exactly one
// goroutine, and every dedup-store read and write happens on it. The only
// concurrent actor is the interrupt controller, which the driver polls
// between events through its Stopper.
//
// Shutdown order: stop consuming, let an in-flight transaction finish, flush
// the dedup store, return. A flush failure is returned as *FlushError so the
// caller can exit non-zero.
package pipeline
