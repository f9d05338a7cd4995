// Package dac drives a human-in-the-loop approval workflow: an operator
// reviews the evidence for a delivery case, decides accept or reject, and
// the decision is propagated to two independent external systems: the
// workflow engine that owns the case and the approval ledger of record.
//
// The engine is built from pluggable service layers:
//
//   - queue     – single-consumer FIFO submission scheduler
//   - protocol  – the four-phase per-task approval state machine
//   - gate      – human note edit before the final ledger write
//   - lookahead – next-case detail prefetch with request coalescing
//   - status    – the operator-visible processing indicator
//
// The engine is designed to be embedded in host applications. End-users
// typically interact with it via the high-level Service façade exposed by
// the root package:
//
//	srv, _ := dac.New(
//		dac.WithWorkflow(workflowClient),
//		dac.WithLedger(ledgerClient),
//		dac.WithDetailFetcher(fetcher),
//	)
//	srv.LoadCases(ctx, cases)
//	_ = srv.EnqueueDecision(ctx, dac.Decision{Approve: true, Fields: form})
//
// For more details see the individual sub-packages.
package dac
