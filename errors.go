// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import "fmt"

// DeserializationError is the one error type this package raises. It is
// always returned, never panicked. The slicer's internal bookkeeping checks
// (see runPass2) do not produce a DeserializationError: a violation there is
// a programmer error and ends the process through vlog.Fatalf.
type DeserializationError struct {
	msg string
}

func (e *DeserializationError) Error() string { return e.msg }

func newDeserializationError(format string, args ...interface{}) *DeserializationError {
	return &DeserializationError{msg: fmt.Sprintf(format, args...)}
}

// enforceInputSize raises a DeserializationError naming typeName if the
// available input (len) is smaller than required.
func enforceInputSize(typeName string, length, required int) error {
	if length < required {
		return newDeserializationError(
			"zerocopy: %s: input data length %d < required %d", typeName, length, required)
	}
	return nil
}

// enforceSizeLimit raises a DeserializationError naming typeName if an
// observed dynamic-array length exceeds max. length is taken as the raw
// wire value (uint64) rather than a pre-converted int so that an
// out-of-range length (e.g. the all-ones sentinel a corrupt or hostile
// length word might carry) is rejected instead of silently wrapping to a
// small or negative int on conversion.
func enforceSizeLimit(typeName string, length uint64, max int) error {
	if length > uint64(max) {
		return newDeserializationError(
			"zerocopy: %s: length %d exceeds limit %d", typeName, length, max)
	}
	return nil
}
