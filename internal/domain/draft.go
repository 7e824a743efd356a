package domain

import (
	"reflect"
	"strings"
)

// Draft is the in-progress package being authored. It stays a loose map so
// each wizard step can send only the fields it renders.
type Draft map[FieldName]any

// Merge returns the shallow union of d and partial; keys in partial win. A nil
// value in partial removes the key. Neither input is modified.
func (d Draft) Merge(partial Draft) Draft {
	out := make(Draft, len(d)+len(partial))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range partial {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Clone copies d including nested JSON-like maps and slices.
func (d Draft) Clone() Draft {
	if d == nil {
		return Draft{}
	}
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Type returns the selected package type; ok is false when the type is
// missing or not a known variant.
func (d Draft) Type() (t PackageType, ok bool) {
	s, _ := d[FieldType].(string)
	if s == "" {
		return "", false
	}
	pt, err := ParsePackageType(s)
	if err != nil {
		return PackageType(s), false
	}
	return pt, true
}

// RawType is the type tag as sent, even when unrecognized.
func (d Draft) RawType() string {
	s, _ := d[FieldType].(string)
	return s
}

// Has reports whether f holds a non-empty value (see Present).
func (d Draft) Has(f FieldName) bool {
	return Present(d[f])
}

// Lookup resolves a dot path ("duration.days") through nested maps.
func (d Draft) Lookup(path string) any {
	parts := strings.Split(path, ".")
	cur, ok := d[FieldName(parts[0])]
	if !ok {
		return nil
	}
	for _, part := range parts[1:] {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = obj[part]; !ok {
			return nil
		}
	}
	return cur
}

// Present reports whether a draft value counts as filled in. Numbers and
// booleans are always present, including 0 and false; strings must contain
// non-space characters; slices and maps must be non-empty.
func Present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool, float64, float32, int, int64, int32:
		return true
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Present(rv.Elem().Interface())
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.String:
		return strings.TrimSpace(rv.String()) != ""
	}
	return true
}
