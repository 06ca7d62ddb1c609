// Package model wraps non-reentrant inference models so concurrent callers
// take turns, and defines the failure taxonomy shared by the service.
package model

import (
	"errors"
	"io"
	"log"
	"sync"
)

// ErrNotLoaded is returned by Invoke on a resource without a model.
var ErrNotLoaded = errors.New("model not loaded")

// Loader reads a model from path.
type Loader[T any] func(path string) (T, error)

// Resource owns one model and the lock serialising its use.
// The zero value is not usable; create resources with NewResource.
type Resource[T any] struct {
	name   string
	loader Loader[T]

	mu     sync.Mutex
	model  T
	path   string
	loaded bool
}

// NewResource returns an unloaded resource. name is used in error messages.
func NewResource[T any](name string, loader Loader[T]) *Resource[T] {
	return &Resource[T]{name: name, loader: loader}
}

// Name returns the resource name.
func (r *Resource[T]) Name() string { return r.name }

// Load reads the model at path and installs it. It is the same as Reload.
func (r *Resource[T]) Load(path string) error {
	return r.Reload(path)
}

// Reload replaces the model with the one at path. It waits for any running
// invocation to finish. On failure the previous model stays in place.
func (r *Resource[T]) Reload(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next T
	err := Guard(func() error {
		var lerr error
		next, lerr = r.loader(path)
		return lerr
	})
	if err != nil {
		return ResourceLoadError("load "+r.name+" from "+path, err)
	}

	if r.loaded {
		if cerr := closeModel(r.model); cerr != nil {
			log.Printf("WARNING: closing previous %s model: %v", r.name, cerr)
		}
	}
	r.model = next
	r.path = path
	r.loaded = true
	return nil
}

// Loaded reports whether a model is installed.
func (r *Resource[T]) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Path returns the path of the installed model.
func (r *Resource[T]) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Close releases the model. The resource can be loaded again afterwards.
func (r *Resource[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return nil
	}
	var zero T
	err := closeModel(r.model)
	r.model = zero
	r.path = ""
	r.loaded = false
	return err
}

// Invoke runs fn with exclusive use of the model in r. It blocks until the
// lock is free. Panics in fn are reported as Unknown errors and plain errors
// returned by fn are tagged as Recognize failures.
func Invoke[T, R any](r *Resource[T], fn func(T) (R, error)) (R, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out R
	if !r.loaded {
		return out, ResourceLoadError(r.name, ErrNotLoaded)
	}

	err := Guard(func() error {
		var ferr error
		out, ferr = fn(r.model)
		return ferr
	})
	if err != nil {
		var zero R
		return zero, Tag(Recognize, r.name, err)
	}
	return out, nil
}

func closeModel(m any) error {
	if c, ok := m.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
