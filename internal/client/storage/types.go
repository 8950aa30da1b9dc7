// Package storage provides the durable key/value storage the front ends
// keep session data in, the server-side counterpart of browser
// localStorage. Entries are grouped by namespace, one per browser.
package storage

import "context"

// Storage is a namespaced string key/value store.
type Storage interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, namespace, key, value string) error
	// Remove deletes the given keys; missing keys are ignored.
	Remove(ctx context.Context, namespace string, keys ...string) error
}
