// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import (
	"reflect"
	"unsafe"
)

// sizeofSliceHeader is the in-memory footprint of a Go slice value: a
// pointer, a length, and a capacity. This is the "slice header" the size
// calculator and branching slicer budget for branched-array headers; see
// the adaptation note in SPEC_FULL.md for why this is 3 machine words
// rather than the 2-word fat pointer spec.md's illustrative scenarios
// assume.
const sizeofSliceHeader = int(unsafe.Sizeof(reflect.SliceHeader{}))

// bindSlice points the slice value at field at base, with length and
// capacity both set to count. It mirrors encoding/bam/unsafe.go's
// UnsafeBytesToCigar: construct the destination SliceHeader directly
// instead of using reflect to grow a slice, so no allocation or zeroing
// happens.
func bindSlice(field unsafe.Pointer, base unsafe.Pointer, count int) {
	sh := (*reflect.SliceHeader)(field)
	sh.Data = uintptr(base)
	sh.Len = count
	sh.Cap = count
}

// fieldAt returns a pointer to the field at byteOffset within the record
// whose base address is base. This is the field-offset accessor from
// spec.md §4.5: the compile-time offset (already computed once by
// describeType, reflect.StructField.Offset) is added to the record's
// base address.
func fieldAt(base unsafe.Pointer, byteOffset uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(base) + byteOffset)
}
