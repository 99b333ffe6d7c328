// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import (
	"encoding/binary"
	"reflect"
	"unsafe"
)

// sliceValue is the branching slicer's dispatcher (spec.md §4.2): given
// the descriptor for a value and the address it already occupies in the
// output buffer, it writes whatever slice headers that value's fields
// need, consuming payload bytes from tail and, for branched arrays, bytes
// from *headers. It returns the number of tail bytes consumed.
//
// base always points at memory already holding this value's flat image —
// either inline inside a containing struct/array (the common case) or
// inside the branched-header region a parent dynamic array just
// allocated. tail is the remaining wire payload; headers is the
// bump-allocated tail-of-buffer region for branched slice headers.
func sliceValue(desc *typeDesc, base unsafe.Pointer, tail []byte, headers *[]byte, cfg Config) (int, error) {
	if !desc.hasIndirections {
		return 0, nil
	}
	switch desc.goType.Kind() {
	case reflect.Struct:
		return sliceRecord(desc, base, tail, headers, cfg)
	case reflect.Array:
		return sliceArrayElems(desc.elem, base, desc.arrayLen, tail, headers, cfg)
	case reflect.Slice:
		return sliceArray(desc, base, tail, headers, cfg)
	default:
		return 0, nil
	}
}

// sliceRecord is spec.md §4.2's slice_record: it walks T's fields in
// declared order, recursing into whichever ones carry indirections.
func sliceRecord(desc *typeDesc, base unsafe.Pointer, tail []byte, headers *[]byte, cfg Config) (int, error) {
	pos := 0
	for _, f := range desc.fields {
		c, err := sliceValue(f.desc, fieldAt(base, f.offset), tail[pos:], headers, cfg)
		if err != nil {
			return 0, err
		}
		pos += c
	}
	return pos, nil
}

// sliceArrayElems is the shared "N inline elements" loop used both for a
// static array field (no length word, no separate element region — base
// already points at the first element) and for a non-branched dynamic
// array's elements once its own header has been bound.
func sliceArrayElems(elemDesc *typeDesc, base unsafe.Pointer, n int, tail []byte, headers *[]byte, cfg Config) (int, error) {
	if !elemDesc.hasIndirections {
		return 0, nil
	}
	pos := 0
	for i := 0; i < n; i++ {
		eb := fieldAt(base, uintptr(i)*elemDesc.size)
		c, err := sliceValue(elemDesc, eb, tail[pos:], headers, cfg)
		if err != nil {
			return 0, err
		}
		pos += c
	}
	return pos, nil
}

// sliceArray is spec.md §4.2's slice_array: it reads one dynamic array's
// length word, binds *base (the slice field itself) to the right memory,
// and — for a branched element type — allocates and recurses into the
// element header region.
func sliceArray(desc *typeDesc, base unsafe.Pointer, tail []byte, headers *[]byte, cfg Config) (int, error) {
	typeName := desc.goType.String()
	if err := enforceInputSize(typeName, len(tail), wordSize); err != nil {
		return 0, err
	}
	length := int(binary.LittleEndian.Uint64(tail[:wordSize]))
	pos := wordSize
	elem := desc.elem

	if elem.goType.Kind() == reflect.Slice {
		return sliceBranchedArray(desc, elem, base, length, tail, pos, headers, cfg)
	}

	bytes := length * int(elem.size)
	if err := enforceInputSize(typeName, len(tail)-pos, bytes); err != nil {
		return 0, err
	}
	var elemBase unsafe.Pointer
	if bytes > 0 {
		elemBase = unsafe.Pointer(&tail[pos])
	}
	bindSlice(base, elemBase, length)
	pos += bytes

	c, err := sliceArrayElems(elem, elemBase, length, tail[pos:], headers, cfg)
	if err != nil {
		return 0, err
	}
	return pos + c, nil
}

// sliceBranchedArray handles a dynamic array whose element type is itself
// a dynamic array. The parent's element slice headers do not exist on the
// wire: this carves length*sizeofSliceHeader bytes off the front of
// *headers, binds the parent field to that region, and recurses into each
// child via sliceArray (spec.md §4.2's slice_sub_arrays, specialised: a
// branched element is always itself processed by slice_array, never
// slice_record, because only a dynamic array can be branched).
func sliceBranchedArray(desc, elem *typeDesc, base unsafe.Pointer, length int, tail []byte, pos int, headers *[]byte, cfg Config) (int, error) {
	need := length * sizeofSliceHeader
	if len(*headers) < need {
		return 0, newDeserializationError(
			"zerocopy: %s: branched-header region exhausted (need %d, have %d)",
			desc.goType.String(), need, len(*headers))
	}
	region := (*headers)[:need]
	*headers = (*headers)[need:]

	var headerBase unsafe.Pointer
	if need > 0 {
		headerBase = unsafe.Pointer(&region[0])
	}
	bindSlice(base, headerBase, length)

	for i := 0; i < length; i++ {
		eb := fieldAt(headerBase, uintptr(i)*uintptr(sizeofSliceHeader))
		c, err := sliceArray(elem, eb, tail[pos:], headers, cfg)
		if err != nil {
			return 0, err
		}
		pos += c
	}
	return pos, nil
}
