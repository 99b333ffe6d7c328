// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// See doc.go for documentation.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"golang.org/x/sys/unix"

	"github.com/grailbio/zerocopy"
	"github.com/grailbio/zerocopy/recordstream"
)

var (
	zstdCompressed = flag.Bool("zstd", false, "treat the input recordstream as zstd-compressed")
	every          = flag.Int("report-every", 100000, "print an RSS sample every N records")
	maxLength      = flag.Int("max-length", 0, "zerocopy.Config.MaxLength; 0 uses the default")
)

// Row is the record schema zerocopy-bench reads. Its branched field (Cols)
// exercises the allocation path the tool exists to measure: each call to
// recordstream.Reader.Next materializes len(Cols) slice headers into the
// reused scratch buffer rather than onto the heap.
type Row struct {
	ID   int64
	Tags []int32
	Cols [][]float64
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: zerocopy-bench [flags] <recordstream-path>")
		os.Exit(2)
	}

	ctx := vcontext.Background()
	cfg := zerocopy.DefaultConfig()
	if *maxLength > 0 {
		cfg.MaxLength = *maxLength
	}
	r, err := recordstream.Open[Row](ctx, flag.Arg(0), *zstdCompressed, cfg)
	if err != nil {
		log.Fatalf("zerocopy-bench: %v", err)
	}
	defer r.Close(ctx) // nolint: errcheck

	var n int64
	for {
		if _, err := r.Next(ctx); err != nil {
			if err == io.EOF {
				break
			}
			log.Fatalf("zerocopy-bench: %v", err)
		}
		n++
		if *every > 0 && n%int64(*every) == 0 {
			reportRSS(n)
		}
	}
	reportRSS(n)
}

func reportRSS(n int64) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		log.Error.Printf("zerocopy-bench: getrusage: %v", err)
		return
	}
	// Maxrss is kilobytes on Linux.
	fmt.Printf("records=%d maxrss_kb=%d\n", n, ru.Maxrss)
}
