package resource

import (
	"fmt"
	"reflect"

	"github.com/brunoga/deep"

	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

// StateBuilder assembles a desired state keyed by API field names. Values
// that were not declared (nil pointers, nil slices, empty strings, zero
// numbers) are left out so they never take part in the comparison.
//
// A value reached through a non-nil pointer was declared explicitly: zero
// numbers are kept, and an empty string is stored as nil so the field is
// cleared on the grid.
type StateBuilder struct {
	state reconcile.State
}

// NewState starts an empty desired state.
func NewState() *StateBuilder {
	return &StateBuilder{state: reconcile.State{}}
}

// Set stores v under key unless v is undeclared. Pointers are dereferenced.
func (b *StateBuilder) Set(key string, v any) *StateBuilder {
	if v == nil {
		return b
	}

	rv := reflect.ValueOf(v)
	explicit := false
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return b
		}
		rv = rv.Elem()
		explicit = true
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return b
		}
	case reflect.String:
		if rv.Len() == 0 {
			if explicit {
				b.state[key] = nil
			}
			return b
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if rv.IsZero() && !explicit {
			return b
		}
	}

	b.state[key] = rv.Interface()
	return b
}

// Put stores v under key unconditionally.
func (b *StateBuilder) Put(key string, v any) *StateBuilder {
	b.state[key] = v
	return b
}

// State returns the assembled state.
func (b *StateBuilder) State() reconcile.State {
	return b.state
}

// DecodeState decodes an object response. A response without data yields an
// empty, existing state.
func DecodeState(resp *sgapi.Response) (reconcile.State, error) {
	state := reconcile.State{}
	if resp == nil || !resp.HasData() {
		return state, nil
	}
	if err := resp.Decode(&state); err != nil {
		return nil, err
	}
	if state == nil {
		state = reconcile.State{}
	}
	return state, nil
}

// FindItem decodes a list response and returns the first element match
// accepts, or nil when none does.
func FindItem(resp *sgapi.Response, match func(reconcile.State) bool) (reconcile.State, error) {
	if resp == nil || !resp.HasData() {
		return nil, nil
	}
	var items []reconcile.State
	if err := resp.Decode(&items); err != nil {
		return nil, err
	}
	for _, item := range items {
		if match(item) {
			return item, nil
		}
	}
	return nil, nil
}

// UpdateBody builds a full PUT body: current state, overlaid with the
// change set, overlaid with the write-only fields of desired that the
// comparison ignored. The inputs are not modified.
func UpdateBody(current reconcile.State, changes reconcile.ChangeSet, desired reconcile.State, schema reconcile.Schema) map[string]any {
	body := make(map[string]any, len(current)+len(changes))
	for k, v := range current {
		body[k] = copyValue(v)
	}
	for k, v := range changes {
		body[k] = copyValue(v)
	}
	for k, v := range desired {
		if schema.Kind(k) == reconcile.FieldIgnored {
			body[k] = copyValue(v)
		}
	}
	return body
}

// StringField returns state[key] as a string, or "".
func StringField(state reconcile.State, key string) string {
	switch v := state[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Redact returns a copy of state with secret-bearing fields masked, at any
// depth.
func Redact(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		if logger.IsSecretKey(k) && v != nil {
			out[k] = logger.Redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Redact(val)
	case reconcile.State:
		return Redact(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Redact(item)
		}
		return out
	default:
		return v
	}
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
