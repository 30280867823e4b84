package player

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when a store is requested from a context that was never passed through [Provide].
var ErrNoProvider = errors.New("player: now-playing store requested outside of a provider; wrap the context with player.Provide")

type storeKey struct{}

// Provide mounts a new store into ctx. The returned teardown closes the store.
func Provide(ctx context.Context) (context.Context, *Store, func()) {
	store := NewStore()
	return WithStore(ctx, store), store, store.Close
}

// WithStore mounts an existing store into ctx.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the store mounted by [Provide].
func FromContext(ctx context.Context) (*Store, error) {
	store, ok := ctx.Value(storeKey{}).(*Store)
	if !ok || store == nil {
		return nil, ErrNoProvider
	}
	return store, nil
}

// MustFromContext is like [FromContext] but panics when no provider is mounted.
func MustFromContext(ctx context.Context) *Store {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
