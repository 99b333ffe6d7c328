// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy_test

import (
	"encoding/binary"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/zerocopy"
)

// sliceHeaderSize is computed independently of the package under test, the
// way a caller building wire bytes by hand would have to: it's "a platform
// constant", per spec.md's glossary, not something this package exports.
var sliceHeaderSize = int(unsafe.Sizeof(reflect.SliceHeader{}))

func word(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

type Scalars struct {
	A int32
	B int32
}

type DynInts struct {
	Xs []int32
}

type Inner struct {
	Bs []byte
}

type NestedWithArray struct {
	I Inner
}

type Branched struct {
	M [][]int32
}

type ArrOfRecords struct {
	A [2]Inner
}

func TestTrivialScalars(t *testing.T) {
	input := []byte{0x2A, 0, 0, 0, 0x2B, 0, 0, 0}
	buf := append([]byte(nil), input...)
	c, err := zerocopy.DeserializeInPlace[Scalars](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, int32(42), c.View().A)
	require.Equal(t, int32(43), c.View().B)
	require.Len(t, c.Buffer(), 8)
}

func buildDynInts(xs []int32) []byte {
	var wire []byte
	wire = append(wire, make([]byte, sliceHeaderSize)...) // garbage header, ignored
	wire = append(wire, word(uint64(len(xs)))...)
	for _, x := range xs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(x))
		wire = append(wire, b[:]...)
	}
	return wire
}

func TestDynamicArrayOfScalars(t *testing.T) {
	input := buildDynInts([]int32{1, 2, 3})
	wantSize := sliceHeaderSize + 8 + 12
	require.Len(t, input, wantSize)

	buf := append([]byte(nil), input...)
	total, err := zerocopy.RequiredSize[DynInts](buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, wantSize, total)

	c, err := zerocopy.DeserializeInPlace[DynInts](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3}, c.View().Xs)
	require.Equal(t, total, len(c.Buffer()))

	base := uintptr(unsafe.Pointer(&c.Buffer()[0]))
	xsPtr := uintptr(unsafe.Pointer(&c.View().Xs[0]))
	require.Equal(t, base+uintptr(sliceHeaderSize+8), xsPtr)
}

func TestDynamicArrayEmpty(t *testing.T) {
	input := buildDynInts(nil)
	buf := append([]byte(nil), input...)
	c, err := zerocopy.DeserializeInPlace[DynInts](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, c.View().Xs, 0)
}

func TestNestedRecordWithArray(t *testing.T) {
	var wire []byte
	wire = append(wire, make([]byte, sliceHeaderSize)...) // NestedWithArray's flat image == Inner's slice header
	wire = append(wire, word(2)...)
	wire = append(wire, 0xAA, 0xBB)

	buf := append([]byte(nil), wire...)
	c, err := zerocopy.DeserializeInPlace[NestedWithArray](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, c.View().I.Bs)
}

func buildDynIntArray(elems [][]int32) []byte {
	var wire []byte
	wire = append(wire, word(uint64(len(elems)))...)
	for _, e := range elems {
		wire = append(wire, word(uint64(len(e)))...)
		for _, x := range e {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(x))
			wire = append(wire, b[:]...)
		}
	}
	return wire
}

func TestBranchedArray(t *testing.T) {
	var wire []byte
	wire = append(wire, make([]byte, sliceHeaderSize)...) // Branched's own flat image
	wire = append(wire, buildDynIntArray([][]int32{{1, 2}, {3}})...)

	wantData := sliceHeaderSize + 8 + (8 + 8) + (8 + 4)
	wantExtra := 2 * sliceHeaderSize
	require.Len(t, wire, wantData)

	buf := append([]byte(nil), wire...)
	total, err := zerocopy.RequiredSize[Branched](buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, wantData+wantExtra, total)

	c, err := zerocopy.DeserializeInPlace[Branched](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	m := c.View().M
	require.Len(t, m, 2)
	require.Equal(t, []int32{1, 2}, m[0])
	require.Equal(t, []int32{3}, m[1])

	base := uintptr(unsafe.Pointer(&c.Buffer()[0]))
	// m's own elements (each a []int32 header) live in the materialised
	// branched-header region at the tail of the buffer.
	elemsPtr := uintptr(unsafe.Pointer(&m[0]))
	require.GreaterOrEqual(t, elemsPtr, base+uintptr(wantData))
	require.Less(t, elemsPtr, base+uintptr(wantData+wantExtra))
	for _, row := range m {
		rowPtr := uintptr(unsafe.Pointer(&row[0]))
		require.GreaterOrEqual(t, rowPtr, base)
		require.Less(t, rowPtr, base+uintptr(wantData))
	}
}

func TestStaticArrayOfRecordsWithIndirections(t *testing.T) {
	var wire []byte
	wire = append(wire, make([]byte, 2*sliceHeaderSize)...) // [2]Inner flat image
	wire = append(wire, word(1)...)
	wire = append(wire, 0x11)
	wire = append(wire, word(2)...)
	wire = append(wire, 0x22, 0x33)

	buf := append([]byte(nil), wire...)
	c, err := zerocopy.DeserializeInPlace[ArrOfRecords](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []byte{0x11}, c.View().A[0].Bs)
	require.Equal(t, []byte{0x22, 0x33}, c.View().A[1].Bs)
}

func TestOverLengthRejection(t *testing.T) {
	var wire []byte
	wire = append(wire, make([]byte, sliceHeaderSize)...)
	wire = append(wire, word(^uint64(0))...)
	buf := append([]byte(nil), wire...)

	_, err := zerocopy.RequiredSize[DynInts](buf, zerocopy.DefaultConfig())
	require.Error(t, err)
	var dsErr *zerocopy.DeserializationError
	require.ErrorAs(t, err, &dsErr)
	require.Contains(t, err.Error(), "[]int32")
	require.Contains(t, err.Error(), "exceeds limit")
}

func TestTruncatedInput(t *testing.T) {
	input := buildDynInts([]int32{1, 2, 3})
	truncated := input[:len(input)-2] // missing part of the last element

	_, err := zerocopy.RequiredSize[DynInts](truncated, zerocopy.DefaultConfig())
	require.Error(t, err)
	var dsErr *zerocopy.DeserializationError
	require.ErrorAs(t, err, &dsErr)
	require.Contains(t, err.Error(), "input data length")
}

func TestInputShorterThanSizeof(t *testing.T) {
	_, err := zerocopy.RequiredSize[Scalars]([]byte{1, 2, 3}, zerocopy.DefaultConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), "input data length")
}

func TestPointerIdentityInPlace(t *testing.T) {
	input := buildDynInts([]int32{7, 8, 9})
	buf := append([]byte(nil), input...)
	before := unsafe.Pointer(&buf[0])

	c, err := zerocopy.DeserializeInPlace[DynInts](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, before, unsafe.Pointer(&c.Buffer()[0]))
	require.Equal(t, before, unsafe.Pointer(&buf[0]))
}

func TestPointerDistinctnessCopy(t *testing.T) {
	src := buildDynInts([]int32{1, 2})
	var dst []byte
	c, err := zerocopy.DeserializeCopy[DynInts](src, &dst, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.NotEqual(t, unsafe.Pointer(&src[0]), unsafe.Pointer(&c.Buffer()[0]))
	require.Equal(t, []int32{1, 2}, c.View().Xs)
	// src is untouched.
	require.Equal(t, src, buildDynInts([]int32{1, 2}))
}

func TestCopyHandlesDirtyOversizedDestination(t *testing.T) {
	var wire []byte
	wire = append(wire, make([]byte, sliceHeaderSize)...)
	wire = append(wire, buildDynIntArray([][]int32{{1, 2}, {3}})...)

	dst := make([]byte, 256)
	for i := range dst {
		dst[i] = 0xFF
	}
	c, err := zerocopy.DeserializeCopy[Branched](wire, &dst, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2}, c.View().M[0])
	require.Equal(t, []int32{3}, c.View().M[1])
	require.Less(t, len(c.Buffer()), 256) // trimmed to data_len+extra_len, not left at 256
}

func TestIdempotence(t *testing.T) {
	input := buildDynInts([]int32{4, 5})
	buf := append([]byte(nil), input...)

	c1, err := zerocopy.DeserializeInPlace[DynInts](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	first := append([]int32(nil), c1.View().Xs...)

	c2, err := zerocopy.DeserializeInPlace[DynInts](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, first, c2.View().Xs)
}

func TestSufficientBufferNoGrowth(t *testing.T) {
	input := buildDynInts([]int32{1, 2, 3})
	buf := make([]byte, len(input), len(input)+64)
	copy(buf, input)
	dataPtr := unsafe.Pointer(&buf[:1][0])

	c, err := zerocopy.DeserializeInPlace[DynInts](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, dataPtr, unsafe.Pointer(&c.Buffer()[0]))
}

type emptyRecord struct{}

func TestZeroSizedRecord(t *testing.T) {
	var buf []byte
	c, err := zerocopy.DeserializeInPlace[emptyRecord](&buf, zerocopy.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, c.Buffer(), 0)
	require.NotNil(t, c.View())
}

// TestRequiredSizeExtraAccumulates exercises RequiredSizeExtra's documented
// use: sizing several top-level records of different shapes into one shared
// arena, summing their extra_len requirements into a caller-owned *int.
func TestRequiredSizeExtraAccumulates(t *testing.T) {
	dynInput := buildDynInts([]int32{1, 2, 3}) // non-branched: contributes 0 extra

	var branchedWire []byte
	branchedWire = append(branchedWire, make([]byte, sliceHeaderSize)...)
	branchedWire = append(branchedWire, buildDynIntArray([][]int32{{1, 2}, {3}})...)
	wantBranchedExtra := 2 * sliceHeaderSize

	var extra int

	dynData, err := zerocopy.RequiredSizeExtra[DynInts](dynInput, zerocopy.DefaultConfig(), &extra)
	require.NoError(t, err)
	require.Equal(t, len(dynInput), dynData)
	require.Equal(t, 0, extra)

	branchedData, err := zerocopy.RequiredSizeExtra[Branched](branchedWire, zerocopy.DefaultConfig(), &extra)
	require.NoError(t, err)
	require.Equal(t, len(branchedWire), branchedData)
	require.Equal(t, wantBranchedExtra, extra)

	// A third record accumulates on top of the first two, rather than
	// overwriting what they already reserved.
	dynInput2 := buildDynInts([]int32{4, 5})
	dynData2, err := zerocopy.RequiredSizeExtra[DynInts](dynInput2, zerocopy.DefaultConfig(), &extra)
	require.NoError(t, err)
	require.Equal(t, len(dynInput2), dynData2)
	require.Equal(t, wantBranchedExtra, extra) // unchanged: DynInts never branches

	arena := dynData + branchedData + dynData2 + extra
	require.Equal(t, len(dynInput)+len(branchedWire)+len(dynInput2)+wantBranchedExtra, arena)
}
