// Package commit executes a resolved batch atomically.
//
// Commit ordering:
//  1. Check every resource in simulate mode (material, output, energy)
//  2. Debit energy through the ledger (first mutation, first abort point)
//  3. Consume material from the containers in a stable order
//  4. Produce into the primary sink, forwarding overflow to the secondary
//
// Any shortfall found before step 2 aborts the commit with zero side
// effects. Output that neither sink accepts is reported on the Outcome as
// Stranded, never dropped silently.
package commit
