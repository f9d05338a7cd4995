// Package queue provides the single-consumer FIFO scheduler that owns one
// protocol execution at a time. Its stop-on-first-failure policy and the
// delayed success-to-idle decay are part of the operator-observable
// contract.
package queue
