// Package automation abstracts remote browser control behind a small
// capability interface so the booking workflow is not tied to one protocol.
package automation

import (
	"context"
	"errors"
	"time"
)

// ErrConnect indicates the remote browser session could not be established.
var ErrConnect = errors.New("automation: cannot connect to browser")

// ErrNotFound indicates a located element does not exist on the page.
var ErrNotFound = errors.New("automation: element not found")

// ErrTimeout indicates a bounded wait expired before its predicate held.
var ErrTimeout = errors.New("automation: wait timed out")

// Capability opens exclusively-owned browser sessions.
type Capability interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a single browser page under exclusive control of its caller.
// Close must be called on every exit path; a Session is never shared.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Element returns the first match or ErrNotFound without waiting.
	Element(ctx context.Context, selector string) (Element, error)
	// Elements returns all matches in DOM order. No match is an empty slice.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// WaitElement blocks until the selector matches or the timeout expires.
	WaitElement(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// WaitText blocks until the selector's text contains want or the timeout expires.
	WaitText(ctx context.Context, selector, want string, timeout time.Duration) error
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Element is a handle to a located DOM node.
type Element interface {
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Fill(ctx context.Context, value string) error
	// Find returns the first descendant matching the selector or ErrNotFound.
	Find(ctx context.Context, selector string) (Element, error)
}
