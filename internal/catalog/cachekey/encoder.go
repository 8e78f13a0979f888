// Package cachekey canonicalizes arbitrary filter and pagination values into
// deterministic cache-key strings. Two structurally equal values always encode
// to the same string regardless of map iteration order or nil-valued entries.
package cachekey

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Encode renders v as a canonical string suitable for use as a cache key.
// Map keys are sorted, nil-valued map entries and nil struct pointer fields
// are dropped, and array element order is preserved. Cyclic references are
// rendered as a marker instead of being followed twice.
func Encode(v any) string {
	var b strings.Builder
	seen := map[uintptr]bool{}
	writeValue(&b, reflect.ValueOf(v), seen)
	return b.String()
}

// EncodeScoped prefixes the canonical encoding with a scope token, keeping
// keys from different logical namespaces disjoint even for equal params.
func EncodeScoped(scope string, v any) string {
	return scope + ":" + Encode(v)
}

func writeValue(b *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	if !v.IsValid() {
		b.WriteString("null")
		return
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		if v.Kind() == reflect.Pointer {
			addr := v.Pointer()
			if seen[addr] {
				b.WriteString(`"<cycle>"`)
				return
			}
			seen[addr] = true
			defer delete(seen, addr)
		}
		writeValue(b, v.Elem(), seen)

	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		addr := v.Pointer()
		if seen[addr] {
			b.WriteString(`"<cycle>"`)
			return
		}
		seen[addr] = true
		defer delete(seen, addr)

		keys := make([]string, 0, v.Len())
		byKey := make(map[string]reflect.Value, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if isNilish(iter.Value()) {
				continue
			}
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			byKey[k] = iter.Value()
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, k)
			b.WriteByte(':')
			writeValue(b, byKey[k], seen)
		}
		b.WriteByte('}')

	case reflect.Slice:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		addr := v.Pointer()
		if seen[addr] {
			b.WriteString(`"<cycle>"`)
			return
		}
		seen[addr] = true
		defer delete(seen, addr)
		writeSequence(b, v, seen)

	case reflect.Array:
		writeSequence(b, v, seen)

	case reflect.Struct:
		t := v.Type()
		names := make([]string, 0, t.NumField())
		fields := make(map[string]reflect.Value, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fv := v.Field(i)
			if isNilish(fv) {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				tagName := strings.Split(tag, ",")[0]
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			names = append(names, name)
			fields[name] = fv
		}
		sort.Strings(names)

		b.WriteByte('{')
		for i, name := range names {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, name)
			b.WriteByte(':')
			writeValue(b, fields[name], seen)
		}
		b.WriteByte('}')

	case reflect.String:
		writeString(b, v.String())

	case reflect.Bool:
		fmt.Fprintf(b, "%t", v.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(b, "%d", v.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fmt.Fprintf(b, "%d", v.Uint())

	case reflect.Float32, reflect.Float64:
		fmt.Fprintf(b, "%g", v.Float())

	default:
		// chan, func and friends have no stable textual form; render the type
		// name so at least equal shapes still collide on purpose.
		writeString(b, v.Type().String())
	}
}

func writeSequence(b *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeValue(b, v.Index(i), seen)
	}
	b.WriteByte(']')
}

func writeString(b *strings.Builder, s string) {
	raw, err := json.Marshal(s)
	if err != nil {
		b.WriteString(`"?"`)
		return
	}
	b.Write(raw)
}

// isNilish reports whether a value should be treated as an absent field:
// nil pointers, nil interfaces, nil maps and nil slices.
func isNilish(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
