// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package zerocopy

import (
	"fmt"
	"reflect"
	"sync"
)

// fieldDesc is one field of a record (struct) type: its byte offset within
// the struct and the descriptor of its own type.
type fieldDesc struct {
	name   string
	offset uintptr
	desc   *typeDesc
}

// typeDesc is the runtime type descriptor spec.md §4.5 assumes is available
// at compile time. Go has no field-iterating generics, so it is derived
// once per type by reflection (spec.md §9's re-architecture point (a)) and
// cached in descCache.
type typeDesc struct {
	goType reflect.Type

	// size is the in-memory footprint of a value of this type, as it sits
	// inline inside a containing struct or array: unsafe.Sizeof for a
	// struct or array, sizeofSliceHeader for a slice, and the natural
	// width for a scalar.
	size uintptr

	// hasIndirections is true iff this type, or something transitively
	// reachable from it, is a dynamic array (slice).
	hasIndirections bool

	// fields is populated iff goType.Kind() == reflect.Struct.
	fields []fieldDesc

	// elem and arrayLen are populated iff goType.Kind() is
	// reflect.Array or reflect.Slice: elem describes the element type,
	// arrayLen is the compile-time length (0, meaningless, for a slice).
	elem     *typeDesc
	arrayLen int
}

var descCache sync.Map // reflect.Type -> *typeDesc

// describeType derives, or returns the cached, typeDesc for t. It is the
// package's single reflect-qualifier guard: a type graph that reaches a
// map, channel, function, interface, or pointer field is rejected here,
// once, with a diagnostic naming the offending type — the Go analogue of
// spec.md §4.5's compile-time "reject-qualifier guard", since Go structs
// have no const/readonly field qualifier to check instead. This also
// enforces spec.md §1's non-goals: no pointer fields, no unions/tagged
// variants (interfaces), no associative containers (maps).
func describeType(t reflect.Type) *typeDesc {
	if cached, ok := descCache.Load(t); ok {
		return cached.(*typeDesc)
	}
	d := buildTypeDesc(t)
	actual, _ := descCache.LoadOrStore(t, d)
	return actual.(*typeDesc)
}

func buildTypeDesc(t reflect.Type) *typeDesc {
	switch t.Kind() {
	case reflect.Struct:
		d := &typeDesc{goType: t, size: t.Size()}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported: not part of the wire layout
			}
			fd := describeType(f.Type)
			d.fields = append(d.fields, fieldDesc{name: f.Name, offset: f.Offset, desc: fd})
			d.hasIndirections = d.hasIndirections || fd.hasIndirections
		}
		return d

	case reflect.Array:
		elem := describeType(t.Elem())
		return &typeDesc{
			goType:          t,
			size:            t.Size(),
			elem:            elem,
			arrayLen:        t.Len(),
			hasIndirections: elem.hasIndirections,
		}

	case reflect.Slice:
		elem := describeType(t.Elem())
		return &typeDesc{
			goType:          t,
			size:            uintptr(sizeofSliceHeader),
			elem:            elem,
			hasIndirections: true, // a dynamic array is itself an indirection
		}

	case reflect.Map, reflect.Chan, reflect.Func, reflect.Interface,
		reflect.Ptr, reflect.UnsafePointer:
		panic(fmt.Sprintf("zerocopy: %s: fields of kind %s are not supported "+
			"(no pointer fields, unions, tagged variants, or associative containers)",
			t, t.Kind()))

	default: // scalar: numeric kinds, bool, string is also disallowed below
		if t.Kind() == reflect.String {
			panic(fmt.Sprintf("zerocopy: %s: string fields are not fixed-size and are not supported", t))
		}
		return &typeDesc{goType: t, size: t.Size()}
	}
}

// describeRecord is the typed entry point used by RequiredSize and the
// deserialize façades: it requires T to be an unqualified struct type, per
// spec.md §4.3's "T must be an unqualified record type" compile-time
// requirement.
func describeRecord[T any]() *typeDesc {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("zerocopy: %T is not a record (struct) type", zero))
	}
	return describeType(t)
}
