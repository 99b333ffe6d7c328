// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
zerocopy-bench reads every record out of a recordstream file and reports
how much resident memory the process used doing it. It exists to make the
"no per-field allocation" claim in this repo's package doc checkable: run it
once against a stream of many-branched-array records and watch RSS stay
flat as the record count grows, instead of climbing with the number of
slices materialized.

Sample usage:

	zerocopy-bench -zstd points.rs.zst
*/
package main
