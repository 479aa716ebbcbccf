// Package action performs the side effect for a matched event.
//
// Live mode runs a Transaction: post the reply, then record the event id in
// the dedup store. The transaction is an explicit state machine:
//
//	Idle -> Acting -> Recording -> Idle                 reply accepted, recorded
//	Idle -> Acting -> Failed -> Idle                    reply rejected
//	Idle -> Acting -> Recording -> RecordFailed -> Idle  reply sent, append failed
//
// The Acting -> Recording span is the only critical section in the system.
// Once a reply has been accepted the transaction always attempts the append,
// even if an interrupt arrived meanwhile: the reply call runs on a context
// detached from cancellation and the Guard (the interrupt controller) defers
// shutdown until End is called.
//
// Neither step is retried here. The dedup store keeps its own pending queue
// for failed appends.
//
// Dry-run mode swaps the Transaction for a DryRun that writes the would-be
// reply to a sink and never touches the dedup store.
package action
