// Package docstore defines the contract of the remote document store the
// client mirrors, and ships an in-process implementation.
//
// # Model
//
// A store holds named collections of JSON-compatible documents keyed by id.
// Subscribe returns a push stream of full-collection snapshots: the current
// contents first, then one snapshot per change. Streams coalesce, so a slow
// reader may miss intermediate snapshots but always receives the latest one.
// Writes replace whole documents; concurrent replaces race and the later one
// wins in full.
//
// # Adapters
//
// Sub-packages provide Redis, SQL (Postgres/SQLite), Firestore, MongoDB and
// gRPC-relay implementations. All of them satisfy Store.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document is a JSON-compatible document body.
type Document map[string]any

// Record is one document together with its id.
type Record struct {
	ID  string
	Doc Document
}

// Snapshot is the complete contents of a collection at one point in time.
type Snapshot struct {
	Collection string
	Records    []Record
}

// Store is the remote document store as seen by the client.
type Store interface {
	// Subscribe starts a snapshot stream for collection. The channel is
	// closed when ctx is done or the underlying stream fails.
	Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error)

	// Create stores doc and returns its id. An empty id asks the store to
	// assign one.
	Create(ctx context.Context, collection, id string, doc Document) (string, error)

	// Replace overwrites the whole document.
	Replace(ctx context.Context, collection, id string, doc Document) error

	// Delete removes the document.
	Delete(ctx context.Context, collection, id string) error
}

// Marshal converts a tagged struct into a Document via its JSON form.
func Marshal(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return doc, nil
}

// Unmarshal fills v from doc.
func Unmarshal(doc Document, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

// Clone deep-copies a document so callers never share nested maps or slices.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(map[string]any(doc)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
