// Package journal is the SQLite audit trail of what the bot did.
//
// One row per run and one row per action outcome (reply recorded, rejected,
// record failed, or dry-run emission). The journal is informational: the
// dedup log alone decides whether an event is handled, and journal write
// failures never change pipeline behaviour.
//
// Writes are idempotent on (run_id, seq) so a retried write cannot create a
// duplicate row.
package journal
