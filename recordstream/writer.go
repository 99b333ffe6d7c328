// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recordstream

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/zstd"
)

// Writer writes the length-prefixed record framing Reader expects. It does
// not know about zerocopy.Contiguous[T] at all: callers hand it the wire
// bytes for one record (the same bytes a matching serializer would have
// produced), not an already-deserialized view.
type Writer struct {
	dst    io.Writer
	bw     *bufio.Writer
	zw     *zstd.Encoder
	closer func(context.Context) error
}

// Create opens path for writing and returns a Writer over it. If
// zstdCompress is true, every byte written is zstd-compressed before
// reaching disk.
func Create(ctx context.Context, path string, zstdCompress bool) (*Writer, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "recordstream: creating", path)
	}
	w := &Writer{closer: f.Close}
	bw := bufio.NewWriterSize(f.Writer(ctx), 1<<20)
	w.bw = bw
	w.dst = bw

	if zstdCompress {
		zw, err := zstd.NewWriter(bw)
		if err != nil {
			f.Close(ctx) // nolint: errcheck
			return nil, errors.E(err, "recordstream: opening zstd writer", path)
		}
		w.zw = zw
		w.dst = zw
	}
	return w, nil
}

// WriteRecord appends one length-prefixed record.
func (w *Writer) WriteRecord(wire []byte) error {
	var lenBuf [frameLenSize]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(wire)))
	if _, err := w.dst.Write(lenBuf[:]); err != nil {
		return errors.E(err, "recordstream: writing frame length")
	}
	if _, err := w.dst.Write(wire); err != nil {
		return errors.E(err, "recordstream: writing record body")
	}
	return nil
}

// Close flushes and closes the Writer, in dependency order: the zstd
// encoder (if any), then the buffered writer, then the underlying file.
func (w *Writer) Close(ctx context.Context) error {
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return errors.E(err, "recordstream: closing zstd writer")
		}
	}
	if err := w.bw.Flush(); err != nil {
		return errors.E(err, "recordstream: flushing")
	}
	if w.closer != nil {
		return w.closer(ctx)
	}
	return nil
}
