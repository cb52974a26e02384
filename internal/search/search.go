// Package search forwards index, document and query operations to Elasticsearch.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTimeout is matched (errors.Is) by any error caused by the backend not
	// answering in time. A timed out write may still have been applied.
	ErrTimeout = errors.New("search backend timed out")
	// ErrIndexExists is matched when creating an index that is already there.
	ErrIndexExists = errors.New("index already exists")
)

// Engine is the set of document-store operations the gateway forwards.
type Engine interface {
	Ping(ctx context.Context) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// CreateIndex creates name; settings and mappings may be nil.
	CreateIndex(ctx context.Context, name string, settings, mappings map[string]any) error
	// ListIndices returns index names in no particular order.
	ListIndices(ctx context.Context) ([]string, error)
	IndexDocument(ctx context.Context, name string, doc map[string]any) (IndexResult, error)
	// Search runs a query-string query and returns the hit sources.
	Search(ctx context.Context, name, q string) ([]map[string]any, error)
	PutSettings(ctx context.Context, name string, settings map[string]any) error
	PutMapping(ctx context.Context, name string, mapping map[string]any) error
}

// IndexResult is the backend's answer to a single document write.
type IndexResult struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

// BackendError is a non-2xx answer from Elasticsearch.
type BackendError struct {
	Status int
	Type   string
	Reason string
}

func (e *BackendError) Error() string {
	switch {
	case e.Type != "" && e.Reason != "":
		return fmt.Sprintf("elasticsearch %d %s: %s", e.Status, e.Type, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("elasticsearch %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("elasticsearch %d %s", e.Status, http.StatusText(e.Status))
}

// Is maps backend statuses onto the sentinel errors.
func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Status == http.StatusRequestTimeout || e.Status == http.StatusGatewayTimeout
	case ErrIndexExists:
		return e.Type == "resource_already_exists_exception"
	}
	return false
}
