// Package profile reads the supplementary user documents (role, batch) that sit
// next to the auth identity in a document store.
package profile

import (
	"context"
	"fmt"
)

// Document is a profile document as the store returned it.
type Document struct {
	Exists bool           `json:"exists"`
	Data   map[string]any `json:"data,omitempty"`
}

type Fetcher interface {
	FetchProfile(ctx context.Context, uid string) (Document, error)
}

// FetchError wraps a transport or permission failure while reading a profile.
type FetchError struct {
	UID string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch profile %s: %v", e.UID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
