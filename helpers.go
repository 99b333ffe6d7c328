// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import (
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
)

// growBuffer makes *buf exactly n bytes long, growing its capacity if
// necessary, the same way sam/grail.go's ResizeScratch grows a scratch
// buffer: when the existing capacity already covers n, it extends the
// slice's length in place without a fresh allocation ("enable-stomping",
// spec.md §4.5 — the newly exposed bytes are about to be overwritten by
// the copied-in payload or by slice headers this call itself binds, so
// skipping a redundant zero-fill pass is safe). Otherwise it allocates a
// new backing array with a little slack, to reduce the odds of repeated
// reallocation when a caller reuses one buffer across many growing
// records.
func growBuffer(buf *[]byte, n int) {
	if cap(*buf) < n {
		size := (n/16 + 1) * 16
		grown := make([]byte, n, size)
		copy(grown, *buf)
		*buf = grown
		log.Debug.Printf("zerocopy: grew buffer to %d bytes (cap %d)", n, size)
		return
	}
	gunsafe.ExtendBytes(buf, n)
}

// zeroTail clears buf[from:]. DeserializeCopy uses it on the destination
// buffer's trailing bytes past whatever was actually copied in from the
// source, per spec.md §9's resolution of the original's open question.
func zeroTail(buf []byte, from int) {
	clear(buf[from:])
}
