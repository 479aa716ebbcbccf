// Package dedup records which events have already been acted upon.
//
// The store is an in-memory set backed by an append-only text log with one
// lower-cased identifier per line. Every record is written as "\n" + id, so an
// interrupted write can only damage the record being written, never a
// previously complete line.
//
// # Invariants
//
//   - Every identifier in the durable log had its external action performed
//     before it was appended.
//   - The converse may briefly be false (action performed, append pending).
//     That is the only permitted inconsistency window.
//   - A failed durable write never removes the identifier from memory and
//     never rewrites or truncates existing records. Failed identifiers are
//     retried by Flush.
//
// Duplicate lines are harmless: Open collapses them into the set.
package dedup
