package domain

import "errors"

// Sentinel errors shared across packages.
var (
	// ErrAuthFailed indicates a grant exchange produced no usable token.
	// Authentication failures are fatal to the requested operation and
	// are never retried automatically.
	ErrAuthFailed = errors.New("domain: authentication failed")

	// ErrNoSuchAccount indicates a configured account name was not found.
	ErrNoSuchAccount = errors.New("domain: no such account")

	// ErrMessageNotFound indicates a message id is absent from the store.
	ErrMessageNotFound = errors.New("domain: message not found")
)
