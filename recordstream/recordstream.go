// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package recordstream reads a sequence of zerocopy records packed
// back-to-back in one file: each record is a little-endian uint64 byte
// count followed by that many bytes of wire data, the on-disk framing a
// batch writer would use to hand many records to zerocopy.RequiredSize /
// zerocopy.DeserializeInPlace one at a time. The file itself may optionally
// be zstd-compressed.
package recordstream

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/zstd"

	"github.com/grailbio/zerocopy"
)

// frameLenSize is the width, in bytes, of a record's length prefix.
const frameLenSize = 8

// Reader reads successive records of type T from an underlying file,
// reusing one buffer across calls the way zerocopy.DeserializeInPlace
// expects its callers to.
type Reader[T any] struct {
	src     io.Reader
	zr      *zstd.Decoder
	closer  func(context.Context) error
	cfg     zerocopy.Config
	scratch []byte
	buf     []byte
}

// Open opens path (through grailbio's file abstraction, so s3:// and local
// paths both work) and returns a Reader over the zerocopy records packed
// into it. If zstdCompressed is true, the file's bytes are transparently
// decompressed first.
func Open[T any](ctx context.Context, path string, zstdCompressed bool, cfg zerocopy.Config) (*Reader[T], error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "recordstream: opening", path)
	}
	raw := f.Reader(ctx)
	r := &Reader[T]{src: bufio.NewReaderSize(raw, 1<<20), cfg: cfg}

	if zstdCompressed {
		zr, err := zstd.NewReader(r.src)
		if err != nil {
			f.Close(ctx) // nolint: errcheck
			return nil, errors.E(err, "recordstream: opening zstd stream", path)
		}
		r.zr = zr
		r.src = zr
	}
	r.closer = f.Close
	return r, nil
}

// Next reads the next record into the Reader's internal buffer and returns
// a Contiguous view over it. The returned Contiguous is only valid until
// the next call to Next or Close: Next reuses its backing buffer exactly as
// zerocopy.DeserializeInPlace's caller contract requires. Callers that need
// a record to outlive the next Next call must copy it out, e.g. via
// zerocopy.DeserializeCopy with a fresh destination.
//
// Next returns io.EOF, unwrapped, once the stream is exhausted.
func (r *Reader[T]) Next(ctx context.Context) (zerocopy.Contiguous[T], error) {
	var lenBuf [frameLenSize]byte
	if _, err := io.ReadFull(r.src, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return zerocopy.Contiguous[T]{}, errors.E(err, "recordstream: truncated frame length")
		}
		return zerocopy.Contiguous[T]{}, err // io.EOF included, propagated as-is
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])

	if uint64(cap(r.scratch)) < n {
		r.scratch = make([]byte, n)
	}
	r.scratch = r.scratch[:n]
	if _, err := io.ReadFull(r.src, r.scratch); err != nil {
		return zerocopy.Contiguous[T]{}, errors.E(err, "recordstream: truncated record body")
	}

	r.buf = append(r.buf[:0], r.scratch...)
	c, err := zerocopy.DeserializeInPlace[T](&r.buf, r.cfg)
	if err != nil {
		return zerocopy.Contiguous[T]{}, err
	}
	log.Debug.Printf("recordstream: read record of %d wire bytes, %d resident bytes", n, len(c.Buffer()))
	return c, nil
}

// Close releases the underlying file and, if this stream was opened with
// zstdCompressed, its decompressor.
func (r *Reader[T]) Close(ctx context.Context) error {
	if r.zr != nil {
		r.zr.Close()
	}
	if r.closer != nil {
		return r.closer(ctx)
	}
	return nil
}
