package reconcile

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/brunoga/deep"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// State is a resource representation keyed by API field name. A nil State
// passed as current means the resource does not exist remotely.
type State map[string]any

// ChangeSet holds the desired values of the fields that differ from current.
type ChangeSet map[string]any

// Keys returns the changed field names in sorted order.
func (c ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Empty reports whether no field differs.
func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

// FieldKind selects the comparison semantics of one field.
type FieldKind int

const (
	// FieldOrdered compares with deep equality; sequences are order-sensitive.
	FieldOrdered FieldKind = iota
	// FieldScalar is an alias of FieldOrdered kept for table readability.
	FieldScalar
	// FieldUnordered compares sequences as multisets.
	FieldUnordered
	// FieldIgnored is never compared nor reported (write-only fields).
	FieldIgnored
)

func (k FieldKind) String() string {
	switch k {
	case FieldOrdered:
		return "ordered"
	case FieldScalar:
		return "scalar"
	case FieldUnordered:
		return "unordered"
	case FieldIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Schema declares comparison semantics per field. Fields not listed are
// compared as FieldOrdered.
type Schema map[string]FieldKind

// Kind returns the comparison kind for field.
func (s Schema) Kind(field string) FieldKind {
	if s == nil {
		return FieldOrdered
	}
	if kind, ok := s[field]; ok {
		return kind
	}
	return FieldOrdered
}

var unorderedOpt = cmpopts.SortSlices(func(a, b any) bool {
	return fmt.Sprintf("%#v", a) < fmt.Sprintf("%#v", b)
})

// ComputeChangeSet returns the subset of desired whose values differ from
// current. Keys present only in current are never reported. A nil desired
// value is equal to a missing or nil current value. Neither input is
// mutated and the returned values are copies.
func ComputeChangeSet(current, desired State, schema Schema) ChangeSet {
	changes := ChangeSet{}

	for key, want := range desired {
		kind := schema.Kind(key)
		if kind == FieldIgnored {
			continue
		}

		var have any
		if current != nil {
			have = current[key]
		}

		if FieldsEqual(have, want, kind) {
			continue
		}

		changes[key] = copyValue(want)
	}

	return changes
}

// FieldsEqual compares two field values under the given kind, after
// normalising numbers, typed slices and maps, and dropping nil map entries.
func FieldsEqual(have, want any, kind FieldKind) bool {
	if kind == FieldIgnored {
		return true
	}

	a := normalize(have)
	b := normalize(want)

	if kind == FieldUnordered {
		return cmp.Equal(a, b, unorderedOpt, cmpopts.EquateEmpty())
	}
	return cmp.Equal(a, b)
}

func copyValue(v any) any {
	if v == nil {
		return nil
	}
	copied, err := deep.Copy(v)
	if err != nil {
		return v
	}
	return copied
}

// normalize maps the many shapes a value can take (YAML ints, JSON float64,
// typed slices, pointers) onto a canonical form: float64 for numbers, []any
// for sequences and map[string]any without nil entries for mappings.
func normalize(v any) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			val := normalize(iter.Value().Interface())
			if val == nil {
				continue
			}
			out[fmt.Sprint(iter.Key().Interface())] = val
		}
		return out
	default:
		return rv.Interface()
	}
}
