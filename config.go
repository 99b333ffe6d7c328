// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import "math"

// Config bounds the behavior of the size calculator and branching slicer.
// A MaxLength of zero or less (including the zero Config) is treated as
// DefaultConfig's MaxLength.
type Config struct {
	// MaxLength is a hard ceiling on the length of any single dynamic
	// array encountered on the wire. A serialized length exceeding this
	// raises a DeserializationError rather than being trusted.
	MaxLength int
}

// DefaultConfig returns the Config used when callers do not supply one:
// MaxLength set to the largest length representable on this host.
func DefaultConfig() Config {
	return Config{MaxLength: math.MaxInt64}
}

func (c Config) maxLength() int {
	if c.MaxLength <= 0 {
		return DefaultConfig().MaxLength
	}
	return c.MaxLength
}
