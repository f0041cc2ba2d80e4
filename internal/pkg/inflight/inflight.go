// Package inflight coalesces concurrent identical requests: callers that ask
// for a key already being computed share the first caller's result instead of
// duplicating upstream cost.
package inflight

import "golang.org/x/sync/singleflight"

// Group deduplicates in-flight computations by string key.
type Group[T any] struct {
	sf singleflight.Group
}

// NewGroup creates an empty Group.
func NewGroup[T any]() *Group[T] {
	return &Group[T]{}
}

// Do runs fn for key unless a call for the same key is already in flight, in
// which case it waits for and shares that call's result.
func (g *Group[T]) Do(key string, fn func() (T, error)) (T, error) {
	v, err, _ := g.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
