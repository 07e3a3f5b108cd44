package adapter

import (
	"context"

	"rss-digest/internal/domain/model"
)

// BatchRequest is one prompt inside a provider batch. CustomID ties the
// per-request result back to the group it answered for.
type BatchRequest struct {
	CustomID  string
	Prompt    string
	MaxTokens int
}

// BatchResult is one per-request output retrieved from a completed batch.
type BatchResult struct {
	CustomID  string
	Succeeded bool
	Text      string
	ErrorKind string // provider result type when Succeeded is false
}

// BatchClient is the port for the LLM provider's asynchronous batch
// endpoint. CreateBatch returns the opaque job handle; GetBatchStatus is
// a single network round-trip (the caller owns the wait/retry loop).
type BatchClient interface {
	CreateBatch(ctx context.Context, requests []BatchRequest) (string, error)
	GetBatchStatus(ctx context.Context, batchID string) (model.BatchStatus, error)
	ListResults(ctx context.Context, batchID string) ([]BatchResult, error)
}
