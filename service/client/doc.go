// Package client declares the contracts of the external collaborators the
// submission engine depends on: the workflow engine owning the case, the
// approval ledger of record, the auth endpoint and the detail/secondary
// lookups. Wire formats are owned by the remote systems; the engine only
// observes the success/failure shape declared here.
package client
