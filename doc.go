// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package zerocopy deserializes a statically-typed record from a single
// contiguous byte buffer without per-field heap allocation.
//
// A record is an ordered struct of scalars, nested structs, fixed-size
// arrays, and slices ("dynamic arrays"). The wire format for a record T is
// produced by a matching serializer: sizeof(T) bytes of T's in-memory
// image, followed by, for every slice encountered in depth-first field
// order, a machine-word length and then the packed element payload (or, for
// a slice of slices, the child length/payload blocks themselves).
//
// Deserializing reconstructs that record in place inside one buffer: every
// slice header produced by DeserializeInPlace/DeserializeCopy points
// somewhere inside that same buffer; RequiredSize only computes the size
// that buffer needs. Only the outer buffer is ever
// grown; no field is individually allocated.
package zerocopy
