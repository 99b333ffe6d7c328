// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import "unsafe"

// Contiguous is the (buffer, typed view) pair of spec.md §4.4. Every slice
// reachable from View() points somewhere inside Buffer(); copying a
// Contiguous[T] by value copies the pair, not the backing array, so both
// copies observe the same mutations.
//
// A deep copy utility lives outside this package's scope (spec.md §4.4);
// Contiguous only exposes the two accessors its contract requires.
type Contiguous[T any] struct {
	buf  []byte
	view *T
}

// newContiguous wraps buf — whose first sizeof(T) bytes must already hold
// a fully-sliced T — into a Contiguous[T].
func newContiguous[T any](buf []byte) Contiguous[T] {
	var view *T
	if len(buf) > 0 {
		view = (*T)(unsafe.Pointer(&buf[0]))
	} else {
		view = new(T)
	}
	return Contiguous[T]{buf: buf, view: view}
}

// View returns the typed view into the buffer.
func (c Contiguous[T]) View() *T { return c.view }

// Buffer returns the backing byte buffer. Mutating the scalar contents of
// any reachable element is safe; resizing a reachable slice is not — doing
// so does not extend this buffer and breaks contiguity (spec.md §3).
func (c Contiguous[T]) Buffer() []byte { return c.buf }
