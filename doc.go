// Package kfolio tracks a multi-asset investment portfolio by replaying an
// exchange transaction ledger (deposits and two-sided trades) into per-asset
// holdings: average cost basis, invested totals, realized and unrealized
// returns, all expressed in an arbitrary reporting currency.
//
// Historical and latest exchange rates are resolved through a disk-backed
// cache, falling back to a two-hop conversion through a proxy currency when
// no direct market exists for a pair. The portfolio state is checkpointed
// after every processed ledger entry, so a later run resumes where the
// previous one stopped.
//
// The engine is single-threaded and synchronous: one replay pass runs to
// completion, interleaving blocking rate lookups with disk reads and writes.
package kfolio
