package client

import (
	"context"

	"github.com/Luft21/owo-dac-laptop/model"
)

// SubmitResponse is the workflow engine's answer to a decision submit. A
// response with Success=false is an application-level failure that counts
// against the retry budget just like a transport error.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ViewResponse carries the raw case document returned by the workflow
// engine's view endpoint.
type ViewResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
}

// LoginResponse is returned by the auth endpoint. Token is the structured
// session field; Cookie is the raw cookie header some deployments return
// instead.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Cookie  string `json:"cookie,omitempty"`
	Message string `json:"message,omitempty"`
}

// ApprovalPayload is the final verdict written to the approval ledger.
// Status is 2 (accept) or 3 (reject).
type ApprovalPayload struct {
	Status    int    `json:"status"`
	ID        string `json:"id"`
	NPSN      string `json:"npsn"`
	Resi      string `json:"resi"`
	Note      string `json:"note"`
	SessionID string `json:"session_id"`
	BappID    string `json:"bapp_id,omitempty"`
}

// Workflow is the external system that owns the case being decided.
type Workflow interface {
	// SubmitDecision records the operator decision on the originating case.
	SubmitDecision(ctx context.Context, payload map[string]string, session string) (*SubmitResponse, error)

	// ViewCase returns the case document, used to read back the current
	// note and validation alerts after a submit.
	ViewCase(ctx context.Context, actionID, session string) (*ViewResponse, error)
}

// Ledger is the external system of record for the final verdict and note.
type Ledger interface {
	SaveApproval(ctx context.Context, payload *ApprovalPayload) error
}

// Auth performs credential login against one of the external systems.
type Auth interface {
	Login(ctx context.Context, username, password, system string) (*LoginResponse, error)
}

// DetailFetcher resolves a case to its structured detail record. A nil
// record with nil error means the case could not be located.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, item model.Item, session string) (*model.Detail, error)
}

// SecondaryLookup resolves an institution code to its staff roster.
type SecondaryLookup interface {
	FetchSchoolData(ctx context.Context, npsn string) (*model.SchoolRoster, error)
}
