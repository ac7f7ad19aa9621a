package judge

import (
	"context"
)

// Future is the result of a judging call that runs in the background.
type Future[T any] interface {
	Get(ctx context.Context) (T, error)
}

// Async runs fn in a goroutine.
func Async[T any](fn func() (T, error)) Future[T] {
	done := make(chan struct{})
	f := future[T]{done: done}
	go func() {
		defer close(done)
		f.value, f.err = fn()
	}()
	return &f
}

// After chains fn onto future without blocking the caller.
func After[T any, V any](future Future[T], fn func(Future[T]) (V, error)) Future[V] {
	return Async(func() (V, error) {
		return fn(future)
	})
}

type future[T any] struct {
	done  <-chan struct{}
	value T
	err   error
}

func (f *future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var empty T
		return empty, ctx.Err()
	}
}
