// Package kv defines the string key-value port the tracker persists its
// document through. Adapters live in subpackages and in internal/storage.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("kv: store closed")

// Store reads and writes whole string values.
type Store interface {
	// Get returns the value for key. A missing key is not an error: it
	// reports ok == false.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Locker is implemented by stores shared between processes. Lock blocks
// until key is held or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Pinger is implemented by stores with a remote dependency worth probing
// from a readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}
