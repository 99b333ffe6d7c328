// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import (
	"encoding/binary"
	"reflect"
)

// wordSize is the width, in bytes, of a serialized dynamic-array length
// prefix: a host-native machine word on a 64-bit host.
const wordSize = 8

// RequiredSize is Pass 1, the size calculator of spec.md §4.1, first
// arity: it returns data_len + extra_len for a record of type T encoded at
// the front of input.
func RequiredSize[T any](input []byte, cfg Config) (int, error) {
	dataLen, extraLen, err := sizeRecord[T](input, cfg)
	if err != nil {
		return 0, err
	}
	return dataLen + extraLen, nil
}

// RequiredSizeExtra is Pass 1's second arity: it returns data_len alone,
// and accumulates extra_len into *extra (so a caller sizing several
// top-level records into one arena can sum their header requirements).
func RequiredSizeExtra[T any](input []byte, cfg Config, extra *int) (int, error) {
	dataLen, extraLen, err := sizeRecord[T](input, cfg)
	if err != nil {
		return 0, err
	}
	*extra += extraLen
	return dataLen, nil
}

// sizeRecord computes (data_len, extra_len) for the top-level record type
// T. data_len is desc.size (T's flat in-memory image) plus whatever
// dynamic-array length/payload bytes follow it on the wire.
func sizeRecord[T any](input []byte, cfg Config) (dataLen, extraLen int, err error) {
	desc := describeRecord[T]()
	if err := enforceInputSize(desc.goType.String(), len(input), int(desc.size)); err != nil {
		return 0, 0, err
	}
	consumed, extra, err := consume(desc, input[desc.size:], cfg)
	if err != nil {
		return 0, 0, err
	}
	return int(desc.size) + consumed, extra, nil
}

// consume is the recursive walk behind the size calculator. Given a
// descriptor and the wire bytes immediately following whatever flat image
// already accounts for desc's own sizeof, it returns the number of
// additional bytes consumed from tail and the number of bytes that must be
// reserved in the branched-header region.
//
// The same function serves every case in spec.md §4.1's algorithm:
// reflect.Struct walks fields in declared order, reflect.Array recurses N
// times into its element type, reflect.Slice is exactly "a dynamic array
// occurrence" (reading its length word and, for a branched element type,
// its child dynamic arrays), and anything else is a scalar with nothing to
// consume.
func consume(desc *typeDesc, tail []byte, cfg Config) (consumed, extra int, err error) {
	if !desc.hasIndirections {
		return 0, 0, nil
	}
	switch desc.goType.Kind() {
	case reflect.Struct:
		pos := 0
		for _, f := range desc.fields {
			c, e, err := consume(f.desc, tail[pos:], cfg)
			if err != nil {
				return 0, 0, err
			}
			pos += c
			extra += e
		}
		return pos, extra, nil

	case reflect.Array:
		pos := 0
		for i := 0; i < desc.arrayLen; i++ {
			c, e, err := consume(desc.elem, tail[pos:], cfg)
			if err != nil {
				return 0, 0, err
			}
			pos += c
			extra += e
		}
		return pos, extra, nil

	case reflect.Slice:
		return sizeDynamicArray(desc, tail, cfg)

	default:
		return 0, 0, nil
	}
}

// sizeDynamicArray handles one dynamic-array occurrence on the wire: a
// length word, followed either by inline element payload (non-branched) or
// by nothing but the child arrays' own length/payload blocks (branched —
// the element slice headers are materialised later, from extra_len).
func sizeDynamicArray(desc *typeDesc, tail []byte, cfg Config) (consumed, extra int, err error) {
	typeName := desc.goType.String()
	if err := enforceInputSize(typeName, len(tail), wordSize); err != nil {
		return 0, 0, err
	}
	raw := binary.LittleEndian.Uint64(tail[:wordSize])
	if err := enforceSizeLimit(typeName, raw, cfg.maxLength()); err != nil {
		return 0, 0, err
	}
	length := int(raw)
	pos := wordSize
	elem := desc.elem

	if elem.goType.Kind() == reflect.Slice {
		// Branched: element slice headers are not on the wire; reserve
		// room for them in the tail region and recurse into each child
		// dynamic array to consume its own length/payload.
		extra += length * sizeofSliceHeader
		for i := 0; i < length; i++ {
			c, e, err := sizeDynamicArray(elem, tail[pos:], cfg)
			if err != nil {
				return 0, 0, err
			}
			pos += c
			extra += e
		}
		return pos, extra, nil
	}

	bytes := length * int(elem.size)
	if err := enforceInputSize(typeName, len(tail)-pos, bytes); err != nil {
		return 0, 0, err
	}
	pos += bytes
	if elem.hasIndirections {
		for i := 0; i < length; i++ {
			c, e, err := consume(elem, tail[pos:], cfg)
			if err != nil {
				return 0, 0, err
			}
			pos += c
			extra += e
		}
	}
	return pos, extra, nil
}
