// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import (
	"unsafe"

	"v.io/x/lib/vlog"
)

// DeserializeInPlace is spec.md §4.3's in-place façade: it sizes *buf,
// grows it if necessary, and slices it into a Contiguous[T] backed by the
// same array *buf already pointed at (after growth, if any). Growth, when
// it happens, always preserves *buf's existing bytes, since those bytes
// are exactly the wire data Pass 2 is about to read.
//
// *buf must be exclusively owned by the caller for the duration of the
// call (spec.md §5): it will be read, grown, and mutated in place.
func DeserializeInPlace[T any](buf *[]byte, cfg Config) (Contiguous[T], error) {
	desc := describeRecord[T]()
	dataLen, extraLen, err := sizeRecord[T](*buf, cfg)
	if err != nil {
		return Contiguous[T]{}, err
	}
	total := dataLen + extraLen

	switch {
	case len(*buf) < total:
		growBuffer(buf, total)
	case len(*buf) > total:
		*buf = (*buf)[:total]
	}

	if err := runPass2(desc, *buf, dataLen, extraLen, cfg); err != nil {
		return Contiguous[T]{}, err
	}
	return newContiguous[T](*buf), nil
}

// DeserializeCopy is spec.md §4.3's copy façade: it leaves input
// untouched, grows *destination if required, copies the bytes
// deserialization actually needs, zero-fills whatever's left of
// *destination, and slices *destination in place.
//
// input and *destination must not overlap.
func DeserializeCopy[T any](input []byte, destination *[]byte, cfg Config) (Contiguous[T], error) {
	desc := describeRecord[T]()
	if err := enforceInputSize(desc.goType.String(), len(input), int(desc.size)); err != nil {
		return Contiguous[T]{}, err
	}
	dataLen, extraLen, err := sizeRecord[T](input, cfg)
	if err != nil {
		return Contiguous[T]{}, err
	}
	total := dataLen + extraLen

	growBuffer(destination, total)

	n := len(input)
	if n > total {
		n = total
	}
	copy((*destination)[:n], input[:n])
	if n < total {
		zeroTail(*destination, n)
	}

	if err := runPass2(desc, *destination, dataLen, extraLen, cfg); err != nil {
		return Contiguous[T]{}, err
	}
	return newContiguous[T](*destination), nil
}

// runPass2 runs the branching slicer over buf[0:dataLen+extraLen] and
// checks its two bookkeeping invariants from spec.md §4.2: every payload
// byte and every header byte the size calculator reserved gets consumed,
// exactly. A mismatch means the descriptor or the slicer disagree with the
// sizer about this type's shape — a programmer error, not a malformed
// input, so it is fatal rather than a DeserializationError.
func runPass2(desc *typeDesc, buf []byte, dataLen, extraLen int, cfg Config) error {
	headers := buf[dataLen : dataLen+extraLen]
	var base unsafe.Pointer
	if len(buf) > 0 {
		base = unsafe.Pointer(&buf[0])
	}
	consumed, err := sliceRecord(desc, base, buf[desc.size:dataLen], &headers, cfg)
	if err != nil {
		return err
	}
	if want := dataLen - int(desc.size); consumed != want {
		vlog.Fatalf("zerocopy: %s: branching slicer consumed %d payload bytes, want %d",
			desc.goType, consumed, want)
	}
	if len(headers) != 0 {
		vlog.Fatalf("zerocopy: %s: branching slicer left %d of %d header bytes unconsumed",
			desc.goType, len(headers), extraLen)
	}
	return nil
}
